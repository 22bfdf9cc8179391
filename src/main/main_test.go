package main

import (
	"errors"
	"net"
	"testing"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"desk-bridge", "-no-tray", "-env", "/tmp/.env"},
			out:  []string{"desk-bridge", "--no-tray", "--env", "/tmp/.env"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"desk-bridge", "-log-file=true", "-release-hotkey=ctrl+f9"},
			out:  []string{"desk-bridge", "--log-file=true", "--release-hotkey=ctrl+f9"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"desk-bridge", "--no-tray", "-x"},
			out:  []string{"desk-bridge", "--no-tray", "-x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--no-tray", "--env", "/tmp/.env", "--release-hotkey", "alt+f12"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.noTray {
		t.Fatal("Expected noTray=true")
	}
	if opts.envPath != "/tmp/.env" {
		t.Fatalf("Expected envPath=/tmp/.env, got %q", opts.envPath)
	}
	if opts.releaseHotkey != "alt+f12" {
		t.Fatalf("Expected releaseHotkey=alt+f12, got %q", opts.releaseHotkey)
	}
}

func TestLoadOptionsFileLogging(t *testing.T) {
	opts := mainOptions{envPath: "/tmp/.env", fileLogging: false}

	lo := opts.loadOptions(false)
	if lo.FileLoggingOverride != nil {
		t.Fatal("Expected no file logging override when the flag is unset")
	}
	if lo.EnvPathOverride != "/tmp/.env" {
		t.Fatalf("Expected env override, got %q", lo.EnvPathOverride)
	}

	lo = opts.loadOptions(true)
	if lo.FileLoggingOverride == nil || *lo.FileLoggingOverride {
		t.Fatal("Expected explicit file logging override=false")
	}
}

func TestPreflight(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port

	if err := preflight(port); !errors.Is(err, errAlreadyRunning) {
		t.Fatalf("Expected errAlreadyRunning while the port is held, got %v", err)
	}

	_ = l.Close()
	if err := preflight(port); err != nil {
		t.Fatalf("Expected free port after close, got %v", err)
	}
}
