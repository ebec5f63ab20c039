package github

import (
	"fmt"
	"regexp"
	"strings"
)

// handlePattern matches valid GitHub usernames: alphanumeric start and end,
// alphanumeric or hyphen in between.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)

// InvalidHandleError reports a handle that failed format validation.
type InvalidHandleError struct {
	Handle string
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("invalid GitHub handle %q", e.Handle)
}

// NormalizeHandle trims whitespace and strips a single leading "@" from a
// user-supplied handle, then validates the result. The returned handle is
// safe to interpolate into API paths.
func NormalizeHandle(raw string) (string, error) {
	handle := strings.TrimSpace(raw)
	handle = strings.TrimPrefix(handle, "@")

	if !handlePattern.MatchString(handle) {
		return "", &InvalidHandleError{Handle: handle}
	}
	return handle, nil
}
