package errors

import (
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	valid := []string{"", "cmd", "pkg/city/layout", "docs/v1.2", "a..b/c", strings.Repeat("d", maxDirPathLen)}
	for _, p := range valid {
		if err := ValidatePath(p); err != nil {
			t.Errorf("ValidatePath(%q) = %v, want nil", p, err)
		}
	}

	invalid := map[string]string{
		"too long":    strings.Repeat("d", maxDirPathLen+1),
		"absolute":    "/var/lib",
		"leading up":  "../other-repo",
		"inner up":    "pkg/../../etc",
		"backslash":   `pkg\city`,
		"null byte":   "pkg\x00city",
		"tab":         "pkg\tcity",
		"trailing up": "pkg/..",
	}
	for name, p := range invalid {
		t.Run(name, func(t *testing.T) {
			if err := ValidatePath(p); !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) = %v, want INVALID_PATH", p, err)
			}
		})
	}
}

func TestValidateLocalPath(t *testing.T) {
	if err := ValidateLocalPath("/tmp/repo"); err != nil {
		t.Errorf("valid path rejected: %v", err)
	}
	for _, p := range []string{"", "   ", "a\x00b"} {
		if err := ValidateLocalPath(p); !Is(err, ErrCodeInvalidPath) {
			t.Errorf("ValidateLocalPath(%q) = %v", p, err)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://github.com/a/b.git", false},
		{"http://localhost:3001", false},
		{"", true},
		{"file:///etc/passwd", true},
		{"git@github.com:a/b.git", true},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateRepoRef(t *testing.T) {
	tests := []struct {
		name        string
		owner, repo string
		wantErr     bool
	}{
		{"valid", "golang", "go", false},
		{"dots and dashes", "my-org", "site.github.io", false},
		{"missing owner", "", "go", true},
		{"missing repo", "golang", "", true},
		{"slash", "golang/go", "x", true},
		{"traversal", "golang", "..", true},
		{"leading dash", "-x", "y", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoRef(tt.owner, tt.repo)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRepoRef(%q, %q) error = %v, wantErr %v", tt.owner, tt.repo, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidRepoRef) {
				t.Errorf("wrong code: %v", err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	seen := make(map[Code]bool)
	for _, code := range []Code{
		ErrCodeInvalidInput, ErrCodeInvalidPath, ErrCodeInvalidFormat, ErrCodeInvalidView,
		ErrCodeInvalidRepoRef, ErrCodeInvalidConfig, ErrCodeNotFound, ErrCodeRepoNotFound,
		ErrCodeNotGitRepo, ErrCodeNoCommits, ErrCodeNoData, ErrCodeNetwork,
		ErrCodeTimeout, ErrCodeInternal, ErrCodeUnsupported,
	} {
		if seen[code] {
			t.Errorf("code %s declared twice", code)
		}
		seen[code] = true
	}
}
