package k8s

// UserAgent is sent with every API request.
const UserAgent = "deployctl"
