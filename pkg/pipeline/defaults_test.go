package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultContentShape(t *testing.T) {
	p := DefaultContent()

	want := map[string][]string{
		"research":  nil,
		"outline":   {"research"},
		"write":     {"research", "outline"},
		"edit":      {"write"},
		"factcheck": {"edit"},
		"seo":       {"edit", "factcheck"},
	}
	got := make(map[string][]string, len(p.Stages))
	var order []string
	for _, s := range p.Stages {
		got[s.Name] = s.Predecessors()
		order = append(order, s.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("predecessors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"research", "outline", "write", "edit", "factcheck", "seo"}, order); diff != "" {
		t.Fatalf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultContentStagesAreFresh(t *testing.T) {
	a := DefaultContentStages()
	a[0].Prompt = "tampered"
	if DefaultContentStages()[0].Prompt == "tampered" {
		t.Fatal("default stages must not share state between calls")
	}
}

func TestDefaultContentWriterPersona(t *testing.T) {
	p := DefaultContent()
	outline, _ := p.Stage("outline")
	write, _ := p.Stage("write")

	if diff := cmp.Diff(outline.systemPrompt(), write.systemPrompt()); diff != "" {
		t.Fatalf("outline and write personas differ (-outline +write):\n%s", diff)
	}
	for _, want := range []string{"You are Expert Content Writer.", "award-winning", "active voice"} {
		if !strings.Contains(write.systemPrompt(), want) {
			t.Fatalf("write persona missing %q: %s", want, write.systemPrompt())
		}
	}
}

func TestDefaultContentRun(t *testing.T) {
	w := newScriptedWorker()
	w.outputs["seo"] = "# Final\n\nOptimized article."

	result, err := Run(context.Background(), DefaultContent(), w, RunOptions{Subject: "Solar Energy", ContentType: "Blog Post"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Artifact != "# Final\n\nOptimized article." {
		t.Fatalf("artifact must be the seo output, got %q", result.Artifact)
	}
	if result.StagesCompleted != 6 {
		t.Fatalf("expected 6 completed stages, got %d", result.StagesCompleted)
	}

	if diff := cmp.Diff([]string{
		"Solar Energy latest developments statistics",
		"Solar Energy facts statistics verification",
	}, w.queries); diff != "" {
		t.Fatalf("search queries mismatch (-want +got):\n%s", diff)
	}

	seo, _ := w.task("seo")
	if !strings.Contains(seo.Prompt, "### Output of edit\nedit output") ||
		!strings.Contains(seo.Prompt, "### Output of factcheck\nfactcheck output") {
		t.Fatalf("seo should see edit and factcheck outputs: %q", seo.Prompt)
	}
	for _, hidden := range []string{"research output", "outline output", "write output"} {
		if strings.Contains(seo.Prompt, hidden) {
			t.Fatalf("seo must not see %q", hidden)
		}
	}
	if !strings.HasPrefix(seo.System, "You are SEO Optimization Expert.") {
		t.Fatalf("unexpected system prompt %q", seo.System)
	}
}
