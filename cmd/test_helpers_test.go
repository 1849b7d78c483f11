package cmd

import (
	"bytes"
	"flag"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli"
)

// captureOutput runs f with os.Stdout and os.Stderr redirected to pipes
// and returns what was written. Output is drained concurrently so that
// large tables do not block f.
func captureOutput(f func()) (stdout, stderr string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	var bufOut, bufErr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(&bufOut, rOut) }()
	go func() { defer wg.Done(); _, _ = io.Copy(&bufErr, rErr) }()

	defer func() {
		wOut.Close()
		wErr.Close()
		os.Stdout = oldStdout
		os.Stderr = oldStderr
		wg.Wait()
		rOut.Close()
		rErr.Close()
		stdout, stderr = bufOut.String(), bufErr.String()
	}()

	f()
	return
}

// assertContains checks if output contains the expected substring.
// It reports a test failure with the actual output if the substring is not found.
func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// assertNotContains checks if output does NOT contain the specified substring.
// It reports a test failure if the substring is found in the output.
func assertNotContains(t *testing.T, output, notExpected string) {
	t.Helper()
	if strings.Contains(output, notExpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", notExpected, output)
	}
}

// assertErrorFormat checks that error output follows the standard format:
// sundriven: cmd[action]: msg
// This validates that runtime errors are formatted consistently.
func assertErrorFormat(t *testing.T, output, cmd, action string) {
	t.Helper()
	pattern := "sundriven: " + cmd + "[" + action + "]:"
	if !strings.Contains(output, pattern) {
		t.Errorf("expected error format %q, got:\n%s", pattern, output)
	}
}

// assertContainsAll checks that output contains all expected substrings.
// It reports a failure for each missing substring.
func assertContainsAll(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q, got:\n%s", exp, output)
		}
	}
}

// assertLineCount checks that output has at least the expected number of lines.
func assertLineCount(t *testing.T, output string, minLines int) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < minLines {
		t.Errorf("expected at least %d lines, got %d:\n%s", minLines, len(lines), output)
	}
}

// newApp returns an app whose HelpName matches the real binary.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "sundriven"
	app.HelpName = "sundriven"
	return app
}

// newContext creates a CLI context for testing commands.
func newContext(app *cli.App, args []string, name string) *cli.Context {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	_ = set.Parse(args)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: name}
	return ctx
}
