// Package diagnostic collects errors and warnings found while validating
// configuration documents, with suggestions for misspelled values.
package diagnostic
