package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "formatted message",
			err:  New(ErrCodeInvalidView, "unknown view %q", "suburbs"),
			want: `INVALID_VIEW: unknown view "suburbs"`,
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeNotGitRepo, fs.ErrNotExist, "open %s", "/src/app"),
			want: "NOT_GIT_REPO: open /src/app: file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ErrCodeNetwork, fs.ErrPermission, "clone github.com/acme/api")
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("cause lost through Wrap")
	}
	if errors.Unwrap(err) != fs.ErrPermission {
		t.Errorf("Unwrap() = %v", errors.Unwrap(err))
	}

	// A coded error behind fmt.Errorf still reports its code.
	outer := fmt.Errorf("analyze: %w", err)
	if GetCode(outer) != ErrCodeNetwork {
		t.Errorf("GetCode() = %q, want %q", GetCode(outer), ErrCodeNetwork)
	}
}

func TestIs(t *testing.T) {
	missing := New(ErrCodeRepoNotFound, "no repository %q", "api")
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"same code", missing, ErrCodeRepoNotFound, true},
		{"other code", missing, ErrCodeNotFound, false},
		{"outermost code wins", Wrap(ErrCodeInternal, missing, "layout"), ErrCodeInternal, true},
		{"inner code hidden", Wrap(ErrCodeInternal, missing, "layout"), ErrCodeRepoNotFound, false},
		{"plain error", fs.ErrNotExist, ErrCodeNotFound, false},
		{"nil", nil, ErrCodeNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeNoData, "repository has no tracked files")); got != "repository has no tracked files" {
		t.Errorf("coded error: got %q", got)
	}
	if got := UserMessage(fs.ErrClosed); got != fs.ErrClosed.Error() {
		t.Errorf("plain error: got %q", got)
	}
	if got := GetCode(fs.ErrClosed); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{ErrCodeInvalidFormat, http.StatusBadRequest},
		{ErrCodeInvalidRepoRef, http.StatusBadRequest},
		{ErrCodeNoCommits, http.StatusBadRequest},
		{ErrCodeRepoNotFound, http.StatusNotFound},
		{ErrCodeNoData, http.StatusUnprocessableEntity},
		{ErrCodeNetwork, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeUnsupported, http.StatusNotImplemented},
		{ErrCodeInvalidConfig, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := HTTPStatus(New(tt.code, "x")); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
	if got := HTTPStatus(fs.ErrInvalid); got != http.StatusInternalServerError {
		t.Errorf("plain error status = %d", got)
	}
}
