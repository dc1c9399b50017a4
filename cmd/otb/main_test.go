package main

import (
	"bytes"
	"errors"
	"testing"

	"otb/internal/services"
)

func TestPrintErrorIncludesKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "classified",
			err:  services.Wrap(services.ErrNotFound, "bundle", "resolve", "photo.jpg", nil),
			want: "Error [not_found]: not found: bundle: resolve: photo.jpg\n",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "Error: boom\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			if buf.String() != tt.want {
				t.Fatalf("printError = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrValidation, "", "", "x", nil), 2},
		{services.Wrap(services.ErrConfiguration, "", "", "x", nil), 2},
		{services.Wrap(services.ErrBusy, "", "", "x", nil), 3},
		{services.Wrap(services.ErrIO, "", "", "x", nil), 1},
		{errors.New("plain"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRootHelpWithoutConfig(t *testing.T) {
	out, _, err := runCLI(t, nil, []string{"--help"})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, sub := range []string{"export", "verify", "project", "tour", "asset", "route", "check", "config"} {
		requireContains(t, out, sub)
	}
}
