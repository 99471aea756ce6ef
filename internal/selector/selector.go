// Package selector maps the label an operator types into the Kubernetes
// label selector used to find a service's workloads.
package selector

import "strings"

const (
	// AllAlias selects every Helm-managed release.
	AllAlias = "all"

	allSelector = "heritage=Tiller"
)

// releasePrefixes mark labels that name a whole release rather than an app.
var releasePrefixes = []string{"prod", "uat"}

// Resolve returns the label selector for a raw label. It is total: every
// input maps to exactly one rule.
//
//	"all"        -> "heritage=Tiller"
//	"prod*"      -> "release=<label>"
//	"uat*"       -> "release=<label>"
//	anything else -> "app=<label>"
func Resolve(label string) string {
	if label == AllAlias {
		return allSelector
	}
	for _, prefix := range releasePrefixes {
		if strings.HasPrefix(label, prefix) {
			return "release=" + label
		}
	}
	return "app=" + label
}

// App returns the plain app selector used to find a deployment's pods.
func App(name string) string {
	return "app=" + name
}
