package main

import (
	"errors"
	"os/exec"
	"testing"
)

func TestExitCode(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 3").Run()
	if got := exitCode(err); got != 3 {
		t.Fatalf("expected exit code 3, got %d", got)
	}

	err = exec.Command("./definitely-not-a-command").Run()
	if got := exitCode(err); got != exitStartFailed {
		t.Fatalf("expected %d for start failure, got %d", exitStartFailed, got)
	}

	if got := exitCode(errors.New("other")); got != exitStartFailed {
		t.Fatalf("expected %d for unknown error, got %d", exitStartFailed, got)
	}
}
