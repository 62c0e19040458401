// Package completion adapts hosted LLM chat APIs to a single call:
// one system message, one user prompt, one text answer.
//
// An answer without any candidate text comes back as "" with a nil error;
// deciding that blank text is a failure is the caller's job.
package completion

import "strings"

func joinParts(parts []string) string {
	return strings.Join(parts, "")
}
