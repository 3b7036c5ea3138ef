//go:build !unix

package executor

// Replace is unavailable here; callers fall back to Run.
func Replace(string, []string, []string) error {
	return ErrReplaceUnsupported
}
