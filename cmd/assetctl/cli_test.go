package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const canonicalMaterial = `!Material
Id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
Name*: wood
Layers:
    01000000010000000100000001000000: grain
    02000000020000000200000002000000: knots
`

const sloppyMaterial = `!Material
Id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
Name*: wood
Layers:
  01000000010000000100000001000000: grain
  02000000020000000200000002000000: knots
`

// run executes assetctl with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cli := NewCLI()
	var stdout, stderr bytes.Buffer
	cli.rootCmd.SetOut(&stdout)
	cli.rootCmd.SetErr(&stderr)
	cli.rootCmd.SetArgs(args)
	err := cli.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestFmtCheck(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "clean.yaml", canonicalMaterial)
	sloppy := writeFile(t, dir, "sloppy.yaml", sloppyMaterial)

	t.Run("canonical documents pass", func(t *testing.T) {
		out, _, err := run(t, "fmt", "--check", clean)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "" {
			t.Errorf("unexpected diff:\n%s", out)
		}
	})

	t.Run("non canonical documents fail with a diff", func(t *testing.T) {
		out, _, err := run(t, "fmt", "--check", clean, sloppy)
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "1 of 2 documents are not canonical") {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "+    01000000010000000100000001000000: grain") {
			t.Errorf("diff does not show the reindented line:\n%s", out)
		}
		if readFile(t, sloppy) != sloppyMaterial {
			t.Error("--check rewrote the file")
		}
	})
}

func TestFmtRewrites(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wood.yaml", sloppyMaterial)
	if _, _, err := run(t, "fmt", path); err != nil {
		t.Fatalf("fmt failed: %v", err)
	}
	if diff := cmp.Diff(canonicalMaterial, readFile(t, path)); diff != "" {
		t.Errorf("formatted document (-want +got):\n%s", diff)
	}
}

func TestDocCommands(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "wood.yaml", canonicalMaterial)
		out, _, err := run(t, "doc", "get", path, "Layers")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		want := "01000000010000000100000001000000: grain\n02000000020000000200000002000000: knots\n"
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("output (-want +got):\n%s", diff)
		}
	})

	t.Run("get missing path", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "wood.yaml", canonicalMaterial)
		_, _, err := run(t, "doc", "get", path, "Colour")
		var cliErr *CLIError
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not found error, got %v", err)
		}
		if !errors.As(err, &cliErr) || cliErr.Operation != "get" {
			t.Errorf("expected CLIError for get, got %#v", err)
		}
	})

	t.Run("rm", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "wood.yaml", canonicalMaterial)
		if _, _, err := run(t, "doc", "rm", path, "Layers.01000000010000000100000001000000"); err != nil {
			t.Fatalf("rm failed: %v", err)
		}
		got := readFile(t, path)
		if strings.Contains(got, "grain") || !strings.Contains(got, "knots") {
			t.Errorf("unexpected document:\n%s", got)
		}
	})

	t.Run("override", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "wood.yaml", canonicalMaterial)
		if _, _, err := run(t, "doc", "override", path, "Name", "base"); err != nil {
			t.Fatalf("override failed: %v", err)
		}
		if _, _, err := run(t, "doc", "override", path, "Layers", "new|sealed"); err != nil {
			t.Fatalf("override failed: %v", err)
		}
		got := readFile(t, path)
		if !strings.Contains(got, "\nName: wood\n") || !strings.Contains(got, "\nLayers*!:\n") {
			t.Errorf("unexpected document:\n%s", got)
		}
	})

	t.Run("override rejects unknown type", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "wood.yaml", canonicalMaterial)
		_, _, err := run(t, "doc", "override", path, "Name", "frozen")
		if err == nil || !strings.Contains(err.Error(), `invalid override type: "frozen"`) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestCleanRenumbersDuplicates(t *testing.T) {
	const copyText = `!Material
Id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
Name: copy
`
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", canonicalMaterial)
	b := writeFile(t, dir, "b.yaml", copyText)

	t.Run("dry run from the environment", func(t *testing.T) {
		t.Setenv("ASSETCTL_DRY_RUN", "true")
		out, _, err := run(t, "clean", dir)
		if err != nil {
			t.Fatalf("clean failed: %v", err)
		}
		if !strings.HasPrefix(out, "would write b (") {
			t.Errorf("unexpected output %q", out)
		}
		if readFile(t, b) != copyText {
			t.Error("dry run wrote the document")
		}
	})

	t.Run("writes the renumbered asset", func(t *testing.T) {
		out, _, err := run(t, "clean", dir)
		if err != nil {
			t.Fatalf("clean failed: %v", err)
		}
		if out != "cleaned 1 assets, wrote 1 documents\n" {
			t.Errorf("unexpected output %q", out)
		}
		got := readFile(t, b)
		if strings.Contains(got, "6ba7b810-9dad-11d1-80b4-00c04fd430c8") || !strings.Contains(got, "Name: copy") {
			t.Errorf("unexpected document:\n%s", got)
		}
		if _, err := os.Stat(filepath.Join(dir, ".assetyaml.lock")); !os.IsNotExist(err) {
			t.Error("lock file left behind")
		}
	})
}

func TestCleanGivesHandAddedEntriesAnID(t *testing.T) {
	const text = `!Material
Id: 6ba7b810-9dad-11d1-80b4-00c04fd430c9
Layers:
    01000000010000000100000001000000~grain: a
    knots*: b
`
	dir := t.TempDir()
	path := writeFile(t, dir, "wood.yaml", text)

	out, _, err := run(t, "clean", dir)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if out != "cleaned 0 assets, wrote 1 documents\n" {
		t.Errorf("unexpected output %q", out)
	}
	got := readFile(t, path)
	if !regexp.MustCompile(`\n    [0-9a-f]{32}\*~knots: b\n`).MatchString(got) {
		t.Errorf("entry not given an id:\n%s", got)
	}
	if !strings.Contains(got, "01000000010000000100000001000000~grain: a") {
		t.Errorf("existing entry changed:\n%s", got)
	}

	out, _, err = run(t, "clean", dir)
	if err != nil || out != "cleaned 0 assets, wrote 0 documents\n" {
		t.Errorf("second clean: %q, %v", out, err)
	}
}

func TestConfigFileFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "assetctl.yaml", "case-insensitive: true\nlog-level: debug\n")
	t.Setenv("ASSETCTL_CONFIG", config)

	cli := NewCLI()
	if !cli.viperInst.GetBool("case-insensitive") {
		t.Error("case-insensitive not read from the config file")
	}
	if got := cli.viperInst.GetString("log-level"); got != "debug" {
		t.Errorf("log-level = %q, want debug", got)
	}
}

func TestCLIErrorFormat(t *testing.T) {
	err := &CLIError{
		Operation:   "clean",
		Cause:       "file not found",
		Details:     "open x: no such file",
		Suggestions: []string{CommonSuggestions.CheckPath},
	}
	want := "Failed to clean: file not found (open x: no such file)\n\nSuggestions:\n  1. Verify the file or directory path exists"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}

	if got := NewFileError("load package", os.ErrPermission).Cause; got != "insufficient permissions to access file" {
		t.Errorf("cause = %q", got)
	}
}
