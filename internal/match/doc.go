// Package match ranks known member names against an unknown one so error
// messages can say "did you mean".
//
// Key functions:
//   - Levenshtein: edit distance over runes
//   - Normalize: case- and separator-insensitive form of an identifier
//   - Rank / Suggest: closest known names
package match
