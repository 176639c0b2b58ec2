package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRejectsInvalidPipelines(t *testing.T) {
	cases := []struct {
		name   string
		stages []*Stage
		reason string
	}{
		{"no stages", nil, "at least one stage"},
		{"empty name", []*Stage{{Prompt: "x"}}, "stage name is required"},
		{"empty prompt", []*Stage{{Name: "a", Prompt: "  "}}, "prompt is required"},
		{"duplicate", []*Stage{stage("a"), stage("a")}, "duplicate stage name"},
		{"self reference", []*Stage{stage("a", "a")}, "cannot depend on itself"},
		{"forward reference", []*Stage{stage("a", "b"), stage("b")}, "declared later"},
		{"unknown predecessor", []*Stage{stage("a"), stage("b", "zzz")}, "unknown predecessor zzz"},
		{"repeated predecessor", []*Stage{stage("a"), stage("b", "a", "a")}, "listed twice"},
		{"bad template", []*Stage{{Name: "a", Prompt: "{{ .Subject "}}, "parse prompt"},
		{"require search without query", []*Stage{{Name: "a", Prompt: "x", RequireSearch: true}}, "require_search"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("p", tc.stages...)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if !strings.Contains(cfgErr.Error(), tc.reason) {
				t.Fatalf("expected %q in %q", tc.reason, cfgErr.Error())
			}
		})
	}
}

func TestNewRequiresName(t *testing.T) {
	if _, err := New("", stage("a")); err == nil {
		t.Fatal("expected error for unnamed pipeline")
	}
}

func TestNewRejectsTemplateReadingHiddenOutput(t *testing.T) {
	cases := map[string]string{
		"field":          "Use {{ .Outputs.b }}",
		"index":          `Use {{ index .Outputs "b" }}`,
		"inside if":      "{{ if .Subject }}{{ .Outputs.b }}{{ end }}",
		"inside else":    "{{ if .Subject }}ok{{ else }}{{ .Outputs.b }}{{ end }}",
		"inside with":    "{{ with .Subject }}{{ $.Outputs.b }}{{ end }}",
		"piped function": "{{ printf \"%s\" .Outputs.b }}",
	}

	for name, prompt := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New("p",
				stage("a"),
				stage("b", "a"),
				&Stage{Name: "c", Prompt: prompt, After: []string{"a"}},
			)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Stage != "c" || !strings.Contains(cfgErr.Reason, "b") {
				t.Fatalf("unexpected error: %v", cfgErr)
			}
		})
	}
}

func TestNewChecksSearchTemplateReferences(t *testing.T) {
	_, err := New("p",
		stage("a"),
		&Stage{Name: "b", Prompt: "x", Search: "{{ .Outputs.a }}"},
	)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNewAcceptsPredecessorReferences(t *testing.T) {
	p, err := New("p",
		stage("a"),
		stage("b", "a"),
		&Stage{Name: "c", Prompt: `{{ .Outputs.a }} and {{ index .Outputs "b" }} and {{ index $.Outputs "a" }}`, After: []string{"a", "b"}},
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Last().Name != "c" {
		t.Fatalf("unexpected last stage %s", p.Last().Name)
	}
	if s, ok := p.Stage("b"); !ok || s.Name != "b" {
		t.Fatalf("expected to find stage b")
	}
	if _, ok := p.Stage("zzz"); ok {
		t.Fatalf("unexpected stage zzz")
	}
}

func TestNewRejectsWholeOutputsMap(t *testing.T) {
	cases := map[string]string{
		"with block":    "{{ with .Outputs }}{{ .b }}{{ end }}",
		"variable":      "{{ $o := .Outputs }}{{ $o.b }}",
		"root variable": "{{ with .Subject }}{{ range $.Outputs }}{{ . }}{{ end }}{{ end }}",
		"range":         "{{ range $k, $v := .Outputs }}{{ $v }}{{ end }}",
		"dynamic index": "{{ index .Outputs .Subject }}",
		"parenthesized": "{{ (.Outputs).b }}",
		"function":      "{{ len .Outputs }}",
	}

	for name, prompt := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New("p",
				stage("a"),
				stage("b", "a"),
				&Stage{Name: "c", Prompt: prompt, After: []string{"a"}},
			)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Stage != "c" || !strings.Contains(cfgErr.Reason, ".Outputs") {
				t.Fatalf("unexpected error: %v", cfgErr)
			}
		})
	}
}

func TestValidateLeavesStagesUntouched(t *testing.T) {
	a := stage("a")
	p, err := New("p", a, stage("b", "a"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.prompt != nil || a.query != nil {
		t.Fatal("expected caller's stage to stay uncompiled")
	}
	if p.Stages[0] != a {
		t.Fatal("expected Stages to keep the caller's stage")
	}
}

func TestSystemPrompt(t *testing.T) {
	s := &Stage{Role: "Senior Editor", Backstory: "You edit.", Goal: "Polish"}
	want := "You are Senior Editor.\nYou edit.\nYour goal: Polish"
	if got := s.systemPrompt(); got != want {
		t.Fatalf("systemPrompt() = %q, want %q", got, want)
	}
	if got := (&Stage{}).systemPrompt(); got != "" {
		t.Fatalf("expected empty system prompt, got %q", got)
	}
}
