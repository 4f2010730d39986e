package errors

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// maxDirPathLen bounds directory paths accepted from API callers.
const maxDirPathLen = 500

// ValidatePath checks a slash-separated directory path relative to a
// repository root, as used in directory IDs and the ?dir= query. The empty
// path is the root itself.
func ValidatePath(path string) error {
	if len(path) > maxDirPathLen {
		return New(ErrCodeInvalidPath, "path longer than %d bytes", maxDirPathLen)
	}
	if strings.IndexFunc(path, unicode.IsControl) >= 0 {
		return New(ErrCodeInvalidPath, "path contains control characters")
	}
	if strings.ContainsRune(path, '\\') {
		return New(ErrCodeInvalidPath, "path must use forward slashes")
	}
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path %q is absolute", path)
	}
	if slices.Contains(strings.Split(path, "/"), "..") {
		return New(ErrCodeInvalidPath, "path %q leaves the repository", path)
	}
	return nil
}

// ValidateLocalPath validates a filesystem path given to the analyzer.
// It only rejects obviously malformed input; existence is checked by the caller.
func ValidateLocalPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidPath, "path contains a null byte")
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// repoNameRegex matches GitHub owner and repository names.
var repoNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)

// ValidateRepoRef validates a GitHub owner/repository pair.
func ValidateRepoRef(owner, repo string) error {
	if owner == "" || repo == "" {
		return New(ErrCodeInvalidRepoRef, "owner and repo are required")
	}
	if !repoNameRegex.MatchString(owner) {
		return New(ErrCodeInvalidRepoRef, "invalid owner: %q", owner)
	}
	if !repoNameRegex.MatchString(repo) || repo == "." || repo == ".." {
		return New(ErrCodeInvalidRepoRef, "invalid repository name: %q", repo)
	}
	return nil
}
