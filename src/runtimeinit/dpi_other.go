//go:build !windows

package runtimeinit

func enableDPIAwareness() {}
