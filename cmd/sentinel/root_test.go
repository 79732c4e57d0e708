package main

import (
	"bytes"
	"testing"
)

// The root command silences cobra's own error printing, so Execute must
// hand errors back for main to report on stderr.
func TestExecuteReturnsErrors(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"no-such-command"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := Execute(); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if out.Len() != 0 {
		t.Errorf("command printed the error itself: %q", out.String())
	}
}

func TestRunCommandRequiresDate(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"run"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := Execute(); err == nil {
		t.Fatal("expected error when --date is missing")
	}
}
