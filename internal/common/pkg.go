package common

import (
	"path"
	"strings"
)

// UnknownStr is the String() value of enum members outside their declared range.
const UnknownStr = "unknown"

// PkgAlias returns the package alias (last element of path) for a given package path.
// Returns empty string if pkgPath is empty.
func PkgAlias(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}

	return path.Base(pkgPath)
}

// SplitQualified splits "import/path.Name" into its package path and name.
// A name without a dot has an empty package path.
func SplitQualified(qualified string) (pkgPath, name string) {
	lastDot := strings.LastIndex(qualified, ".")
	if lastDot < 0 {
		return "", qualified
	}

	return qualified[:lastDot], qualified[lastDot+1:]
}
