package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// Graph size limits for requests accepted by the CLI and the HTTP API. The
// repair engine itself has no limit; these bound untrusted input.
const (
	MaxGraphNodes = 5000
	MaxGraphEdges = 20000
)

// ValidatePath validates a local file path supplied on the command line or in
// a configuration file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// workflowIDRegex matches identifiers usable as storage keys and URL segments.
var workflowIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateWorkflowID validates a stored workflow identifier.
// It rejects names that could be used for path traversal or key injection
// in the file, Redis, and Mongo stores.
func ValidateWorkflowID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "workflow id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "workflow id too long (max 128 characters)")
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "workflow id cannot contain '..'")
	}
	if !workflowIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid workflow id: %q", id)
	}
	return nil
}

// ValidateGraphSize rejects graphs larger than the accepted request limits.
func ValidateGraphSize(nodes, edges int) error {
	if nodes > MaxGraphNodes {
		return New(ErrCodeTooLarge, "graph has %d nodes (max %d)", nodes, MaxGraphNodes)
	}
	if edges > MaxGraphEdges {
		return New(ErrCodeTooLarge, "graph has %d edges (max %d)", edges, MaxGraphEdges)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a scheme accepted by the store and cache backends.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(schemes, ", "))
}
