package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "upstream.base_url",
		Message: "missing required field",
	}

	expected := "config error in upstream.base_url: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "run: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() does not reach the wrapped error")
	}
}

func TestNewCommandError_Nil(t *testing.T) {
	if err := NewCommandError("run", nil); err != nil {
		t.Errorf("NewCommandError(nil) = %v, want nil", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("store.path", "required"), ExitConfig},
		{"wrapped config", NewCommandError("run", fmt.Errorf("load: %w", NewConfigError("x", "y"))), ExitConfig},
		{"command", NewCommandError("logs", errors.New("read failed")), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
