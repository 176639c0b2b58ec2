package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
)

// Pipeline represents a multi-stage content workflow. Stages run in declared
// order, which Validate guarantees is a valid topological order.
type Pipeline struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Stages      []*Stage `yaml:"stages"`

	mu       sync.Mutex
	compiled []*Stage
}

// New builds and validates a pipeline.
func New(name string, stages ...*Stage) (*Pipeline, error) {
	p := &Pipeline{Name: name, Stages: stages}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the pipeline configuration and compiles stage templates.
// Every failure is a *ConfigurationError. On success the compiled stages
// replace the ones runs execute; runs already in flight keep their own.
// Changes to Stages after a successful Validate do not affect runs until
// Validate is called again.
func (p *Pipeline) Validate() error {
	compiled, err := p.compile()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.compiled = compiled
	p.mu.Unlock()
	return nil
}

// snapshot returns the compiled stages, compiling them on first use.
func (p *Pipeline) snapshot() ([]*Stage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.compiled != nil {
		return p.compiled, nil
	}
	compiled, err := p.compile()
	if err != nil {
		return nil, err
	}
	p.compiled = compiled
	return compiled, nil
}

// compile validates Stages and returns compiled copies. Stages itself is
// only read.
func (p *Pipeline) compile() ([]*Stage, error) {
	if p.Name == "" {
		return nil, &ConfigurationError{Reason: "pipeline name is required"}
	}
	if len(p.Stages) == 0 {
		return nil, &ConfigurationError{Reason: "pipeline must define at least one stage"}
	}

	compiled := make([]*Stage, 0, len(p.Stages))
	seen := make(map[string]struct{})
	for _, stage := range p.Stages {
		if stage == nil {
			return nil, &ConfigurationError{Reason: "stage is nil"}
		}
		if stage.Name == "" {
			return nil, &ConfigurationError{Reason: "stage name is required"}
		}
		if _, ok := seen[stage.Name]; ok {
			return nil, &ConfigurationError{Stage: stage.Name, Reason: "duplicate stage name"}
		}
		if strings.TrimSpace(stage.Prompt) == "" {
			return nil, &ConfigurationError{Stage: stage.Name, Reason: "prompt is required"}
		}

		preds := make(map[string]struct{}, len(stage.After))
		for _, dep := range stage.After {
			switch {
			case dep == stage.Name:
				return nil, &ConfigurationError{Stage: stage.Name, Reason: "stage cannot depend on itself"}
			case !contains(seen, dep):
				if p.defines(dep) {
					return nil, &ConfigurationError{Stage: stage.Name, Reason: fmt.Sprintf("predecessor %s is declared later in the pipeline", dep)}
				}
				return nil, &ConfigurationError{Stage: stage.Name, Reason: fmt.Sprintf("unknown predecessor %s", dep)}
			}
			if _, dup := preds[dep]; dup {
				return nil, &ConfigurationError{Stage: stage.Name, Reason: fmt.Sprintf("predecessor %s listed twice", dep)}
			}
			preds[dep] = struct{}{}
		}

		c, err := compileStage(stage, preds)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
		seen[stage.Name] = struct{}{}
	}
	return compiled, nil
}

// Stage returns the stage with the given name.
func (p *Pipeline) Stage(name string) (*Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Last returns the finishing stage, whose output is the run's artifact.
func (p *Pipeline) Last() *Stage {
	if len(p.Stages) == 0 {
		return nil
	}
	return p.Stages[len(p.Stages)-1]
}

func (p *Pipeline) defines(name string) bool {
	_, ok := p.Stage(name)
	return ok
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// compileStage returns a copy of stage with its templates parsed.
func compileStage(stage *Stage, preds map[string]struct{}) (*Stage, error) {
	tmpl, err := template.New(stage.Name).Option("missingkey=error").Parse(stage.Prompt)
	if err != nil {
		return nil, &ConfigurationError{Stage: stage.Name, Reason: fmt.Sprintf("parse prompt: %v", err)}
	}
	if err := checkOutputRefs(stage.Name, tmpl, preds); err != nil {
		return nil, err
	}

	c := *stage
	c.After = stage.Predecessors()
	c.prompt = tmpl
	c.query = nil

	if strings.TrimSpace(stage.Search) == "" {
		if stage.RequireSearch {
			return nil, &ConfigurationError{Stage: stage.Name, Reason: "require_search set without a search query"}
		}
		return &c, nil
	}
	query, err := template.New(stage.Name + ".search").Option("missingkey=error").Parse(stage.Search)
	if err != nil {
		return nil, &ConfigurationError{Stage: stage.Name, Reason: fmt.Sprintf("parse search query: %v", err)}
	}
	if err := checkOutputRefs(stage.Name, query, preds); err != nil {
		return nil, err
	}
	c.query = query
	return &c, nil
}

// checkOutputRefs rejects templates that read .Outputs of a stage outside the
// declared predecessors.
func checkOutputRefs(stageName string, tmpl *template.Template, preds map[string]struct{}) error {
	for _, t := range tmpl.Templates() {
		if t.Tree == nil {
			continue
		}
		var refs []string
		collectOutputRefs(t.Tree.Root, &refs)
		for _, ref := range refs {
			if ref == bareOutputs {
				return &ConfigurationError{Stage: stageName, Reason: "prompt reads .Outputs without naming a predecessor; use .Outputs.<stage> or index .Outputs \"<stage>\""}
			}
			if !contains(preds, ref) {
				return &ConfigurationError{Stage: stageName, Reason: fmt.Sprintf("prompt reads output of %s, which is not a declared predecessor", ref)}
			}
		}
	}
	return nil
}

// bareOutputs marks a reference to the whole Outputs map, which cannot be
// checked against the predecessors.
const bareOutputs = ""

func collectOutputRefs(node parse.Node, refs *[]string) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectOutputRefs(child, refs)
		}
	case *parse.ActionNode:
		collectPipeRefs(n.Pipe, refs)
	case *parse.IfNode:
		collectBranchRefs(&n.BranchNode, refs)
	case *parse.RangeNode:
		collectBranchRefs(&n.BranchNode, refs)
	case *parse.WithNode:
		collectBranchRefs(&n.BranchNode, refs)
	case *parse.TemplateNode:
		collectPipeRefs(n.Pipe, refs)
	case *parse.PipeNode:
		collectPipeRefs(n, refs)
	case *parse.ChainNode:
		collectOutputRefs(n.Node, refs)
	case *parse.FieldNode:
		if len(n.Ident) > 0 && n.Ident[0] == "Outputs" {
			*refs = append(*refs, outputsKey(n.Ident[1:]))
		}
	case *parse.VariableNode:
		if len(n.Ident) >= 2 && n.Ident[0] == "$" && n.Ident[1] == "Outputs" {
			*refs = append(*refs, outputsKey(n.Ident[2:]))
		}
	}
}

func collectBranchRefs(b *parse.BranchNode, refs *[]string) {
	collectPipeRefs(b.Pipe, refs)
	collectOutputRefs(b.List, refs)
	if b.ElseList != nil {
		collectOutputRefs(b.ElseList, refs)
	}
}

func collectPipeRefs(pipe *parse.PipeNode, refs *[]string) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		args := cmd.Args
		// {{ index .Outputs "name" }}
		if key, ok := indexedOutput(args); ok {
			*refs = append(*refs, key)
			args = args[2:]
		}
		for _, arg := range args {
			collectOutputRefs(arg, refs)
		}
	}
}

func indexedOutput(args []parse.Node) (string, bool) {
	if len(args) < 3 {
		return "", false
	}
	ident, isIdent := args[0].(*parse.IdentifierNode)
	key, isString := args[2].(*parse.StringNode)
	if !isIdent || !isString || ident.Ident != "index" {
		return "", false
	}
	switch target := args[1].(type) {
	case *parse.FieldNode:
		return key.Text, len(target.Ident) == 1 && target.Ident[0] == "Outputs"
	case *parse.VariableNode:
		return key.Text, len(target.Ident) == 2 && target.Ident[0] == "$" && target.Ident[1] == "Outputs"
	}
	return "", false
}

func outputsKey(rest []string) string {
	if len(rest) == 0 {
		return bareOutputs
	}
	return rest[0]
}
