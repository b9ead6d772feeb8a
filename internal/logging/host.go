package logging

import "strings"

// Host identifies the application embedding the log engine.
type Host struct {
	// RootName is the application's root type name. Logging under it is the
	// same as logging without a category.
	RootName string

	// RootNamespace prefixes every category that belongs to the
	// application rather than to a third-party component.
	RootNamespace string
}

// Classify normalizes category and reports whether it is an app category.
// The empty category and RootName both normalize to "" and are app
// categories.
func (h Host) Classify(category string) (string, bool) {
	category = strings.TrimSpace(category)
	if category == "" || category == h.RootName {
		return "", true
	}
	return category, h.RootNamespace != "" && strings.HasPrefix(category, h.RootNamespace)
}
