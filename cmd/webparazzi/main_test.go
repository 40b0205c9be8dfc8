package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChoiSG/webparazzi"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the command with args and returns the cli it parsed into,
// without resolving or capturing anything.
func execute(t *testing.T, args ...string) (*cli, error) {
	t.Helper()
	c := newCLI()
	cmd := c.command(func(ctx context.Context, c *cli) error { return nil })
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return c, cmd.Execute()
}

func TestReadFileLines(t *testing.T) {
	path := writeFile(t, "targets.txt", "example.com\n  https://example.org  \n\n10.0.0.1\n")

	lines, err := readFileLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "https://example.org", "", "10.0.0.1"}, lines)

	_, err = readFileLines(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestTargets(t *testing.T) {
	c := newCLI()
	c.Infile = writeFile(t, "targets.txt", "example.com\n\nnosuchdomain-xyz123.test\n")
	c.TargetURL = " https://example.org "

	assert.Equal(t, []string{"example.com", "nosuchdomain-xyz123.test", "https://example.org"}, c.targets())

	c.Infile = filepath.Join(t.TempDir(), "missing.txt")
	assert.Equal(t, []string{"https://example.org"}, c.targets())
}

func TestParseFlags(t *testing.T) {
	c, err := execute(t,
		"-f", "targets.txt",
		"-c", "5",
		"-o", "./output",
		"--capture-concurrency", "2",
		"--engine", "chromedp",
		"--ignore-status-codes", "404, 503",
		"--debug",
	)
	require.NoError(t, err)

	assert.Equal(t, "targets.txt", c.Infile)
	assert.Equal(t, 5, c.options.Resolver.Concurrency)
	assert.Equal(t, "./output", c.options.OutputDir)
	assert.Equal(t, 2, c.options.CaptureConcurrency)
	assert.Equal(t, "chromedp", c.options.Capture.Engine)
	assert.Equal(t, []int{404, 503}, c.options.Resolver.IgnoreStatusCodes)
	assert.True(t, c.options.Verbose)
	assert.Equal(t, c.options.Capture.UserAgent, c.options.Resolver.UserAgent)
}

func TestDefaults(t *testing.T) {
	c, err := execute(t, "--file", "targets.txt")
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, 12, c.options.Resolver.Concurrency)
	assert.Equal(t, 3, c.options.Resolver.Timeout)
	assert.Equal(t, 20, c.options.Capture.Timeout)
	assert.Equal(t, filepath.Join(cwd, "images"), c.options.OutputDir)
}

func TestMissingFileFlag(t *testing.T) {
	_, err := execute(t, "-u", "https://example.com")
	assert.Error(t, err)
}

func TestInvalidFlags(t *testing.T) {
	_, err := execute(t, "-f", "targets.txt", "--ignore-status-codes", "abc")
	assert.Error(t, err)

	_, err = execute(t, "-f", "targets.txt", "--engine", "firefox")
	assert.Error(t, err)
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	config := writeFile(t, "webparazzi.yaml", `
resolver:
  concurrency: 20
capture:
  engine: chromedp
  timeout: 45
`)

	c, err := execute(t, "-f", "targets.txt", "--config", config, "-c", "5")
	require.NoError(t, err)

	assert.Equal(t, 5, c.options.Resolver.Concurrency)
	assert.Equal(t, "chromedp", c.options.Capture.Engine)
	assert.Equal(t, 45, c.options.Capture.Timeout)
}

func TestRunErrorExits(t *testing.T) {
	c := newCLI()
	cmd := c.command(func(ctx context.Context, c *cli) error { return errors.New("boom") })
	cmd.SetArgs([]string{"-f", "targets.txt"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestPrintResolved(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printResolved(&buf, []string{"http://example.com/", "https://example.org/"}, []string{"nosuchdomain-xyz123.test"})

	out := buf.String()
	assert.Contains(t, out, "======== VALID TARGET ========\nhttp://example.com/\nhttps://example.org/\n")
	assert.Contains(t, out, "======== INVALID TARGET ========\nnosuchdomain-xyz123.test\n")
}

func TestPrintSaved(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSaved(&buf, []webparazzi.Outcome{
		{URL: "http://a.test/", Path: "out/a.test.png"},
		{URL: "http://b.test/", Skipped: true},
		{URL: "http://c.test/", Err: errors.New("navigation timeout")},
	}, "out")

	out := buf.String()
	assert.Contains(t, out, "[-] [URL] http://c.test/ Error: navigation timeout")
	assert.Contains(t, out, "1 screenshots saved in out (1 failed, 1 duplicates skipped)")
}
