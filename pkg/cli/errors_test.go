package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		want    string
	}{
		{
			name:    "field error",
			field:   "listeners[0].port",
			message: "port out of range",
			want:    "configuration error in listeners[0].port: port out of range",
		},
		{
			name:    "whole file error",
			field:   "",
			message: "config.yaml not found",
			want:    "configuration error: config.yaml not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigError(tt.field, tt.message)
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
			if got := err.ExitCode(); got != ExitConfig {
				t.Errorf("ExitCode() = %d, want %d", got, ExitConfig)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("store unreachable")
	err := NewCommandError("logs", cause)

	want := "atrium logs: store unreachable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("CommandError should unwrap to its cause")
	}
	if got := err.ExitCode(); got != ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", got, ExitFailure)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "config error", err: NewConfigError("tls.cert_file", "missing"), want: ExitConfig},
		{name: "command error", err: NewCommandError("certs", errors.New("bad pem")), want: ExitFailure},
		{
			name: "wrapped config error",
			err:  fmt.Errorf("loading: %w", NewConfigError("admin.address", "invalid")),
			want: ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
