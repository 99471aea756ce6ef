package instrumentation

import "strings"

// ClusterType is a low-cardinality classification of a context name.
type ClusterType string

const (
	ClusterTypeProduction  ClusterType = "production"
	ClusterTypeUAT         ClusterType = "uat"
	ClusterTypeStaging     ClusterType = "staging"
	ClusterTypeDevelopment ClusterType = "development"
	ClusterTypeOther       ClusterType = "other"
)

// ClassifyCluster maps a context name to a ClusterType so metrics do not
// carry one series per cluster. Matching is case-insensitive and follows the
// same prod/uat prefixes the label selector rules use.
//
//	ClassifyCluster("prod-eu")      // "production"
//	ClassifyCluster("uat1")         // "uat"
//	ClassifyCluster("stg-eu")       // "staging"
//	ClassifyCluster("dev-local")    // "development"
//	ClassifyCluster("eu-central-1") // "other"
func ClassifyCluster(name string) string {
	n := strings.ToLower(name)

	switch {
	case strings.HasPrefix(n, "prod") || strings.HasSuffix(n, "-prod") || strings.Contains(n, "production"):
		return string(ClusterTypeProduction)
	case strings.HasPrefix(n, "uat") || strings.HasSuffix(n, "-uat"):
		return string(ClusterTypeUAT)
	case strings.HasPrefix(n, "stg") || strings.Contains(n, "staging") || strings.HasSuffix(n, "-stg"):
		return string(ClusterTypeStaging)
	case strings.HasPrefix(n, "dev") || strings.HasSuffix(n, "-dev") ||
		strings.HasPrefix(n, "test") || strings.HasSuffix(n, "-test"):
		return string(ClusterTypeDevelopment)
	}
	return string(ClusterTypeOther)
}
