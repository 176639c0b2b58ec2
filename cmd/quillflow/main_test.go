package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configFile, storeFlag, mockFlag, verbose = "", "", false, false

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY", "TAVILY_API_KEY"} {
		t.Setenv(key, "")
	}
	return home
}

func TestGenerateAndHistory(t *testing.T) {
	isolateHome(t)
	db := filepath.Join(t.TempDir(), "versions.db")

	for i := 0; i < 2; i++ {
		stdout, stderr, err := execute(t, "generate", "--mock", "--store", db, "-s", "Solar Energy")
		if err != nil {
			t.Fatalf("generate: %v\n%s", err, stderr)
		}
		if !strings.Contains(stdout, "mock response:") {
			t.Fatalf("expected mock artifact on stdout, got %q", stdout)
		}
		if !strings.Contains(stderr, "6/6 stages") || !strings.Contains(stderr, "Quality:") {
			t.Fatalf("expected run stats and quality on stderr, got %q", stderr)
		}
	}

	stdout, _, err := execute(t, "history", "--store", db, "Solar Energy")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	v2 := strings.Index(stdout, "v2")
	v1 := strings.Index(stdout, "v1")
	if v2 < 0 || v1 < 0 || v2 > v1 {
		t.Fatalf("history should list v2 before v1:\n%s", stdout)
	}

	stdout, _, err = execute(t, "show", "--store", db, "--version", "1", "Solar Energy")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(stdout, "mock response:") {
		t.Fatalf("show should print stored content, got %q", stdout)
	}
}

func TestGenerateRequiresAdapter(t *testing.T) {
	isolateHome(t)
	_, _, err := execute(t, "generate", "--store", "memory", "-s", "Solar Energy")
	if err == nil || !strings.Contains(err.Error(), "no adapters configured") {
		t.Fatalf("expected missing adapter error, got %v", err)
	}
}

func TestScoreCommand(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "post.md")
	if err := os.WriteFile(path, []byte("# Title\nShort sentence. Another one.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "score", path)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(stdout, "Quality:") || !strings.Contains(stdout, "Add more headers.") {
		t.Fatalf("unexpected score output:\n%s", stdout)
	}
}

func TestStagesAndValidate(t *testing.T) {
	isolateHome(t)

	stdout, _, err := execute(t, "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, name := range []string{"research", "outline", "write", "edit", "factcheck", "seo"} {
		if !strings.Contains(stdout, name) {
			t.Fatalf("stages output missing %s:\n%s", name, stdout)
		}
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(good, []byte("name: brief\nstages:\n  - name: draft\n    prompt: Draft {{ .Subject }}\n"), 0644)
	os.WriteFile(bad, []byte("name: brief\nstages:\n  - name: draft\n    after: [research]\n    prompt: Draft\n"), 0644)

	if stdout, _, err := execute(t, "validate", good); err != nil || !strings.Contains(stdout, "valid") {
		t.Fatalf("validate good manifest: %v %q", err, stdout)
	}
	if _, _, err := execute(t, "validate", bad); err == nil {
		t.Fatal("expected validation error for unknown predecessor")
	}
}
