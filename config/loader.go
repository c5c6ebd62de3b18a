package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/jacksongrove/impossibly/logging"
)

// Loader reads graph definitions from .hcl files.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL definition loader reading the process
// environment.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Agents   []*hclAgent    `hcl:"agent,block"`
	Edges    []*hclEdge     `hcl:"edge,block"`
	Settings []*hclSettings `hcl:"settings,block"`
}

type hclAgent struct {
	Name         string   `hcl:"name,label"`
	Provider     *string  `hcl:"provider,optional"`
	Model        *string  `hcl:"model,optional"`
	APIKey       *string  `hcl:"api_key,optional"`
	SystemPrompt *string  `hcl:"system_prompt,optional"`
	Description  *string  `hcl:"description,optional"`
	SharedMemory []string `hcl:"shared_memory,optional"`
	Temperature  *float64 `hcl:"temperature,optional"`
	MaxTokens    *int64   `hcl:"max_tokens,optional"`
}

type hclEdge struct {
	From []string `hcl:"from"`
	To   []string `hcl:"to"`
}

type hclSettings struct {
	MaxSteps  *int    `hcl:"max_steps,optional"`
	SelfLoops *bool   `hcl:"self_loops,optional"`
	SessionID *string `hcl:"session_id,optional"`
}

// Load parses every .hcl file under paths and merges their blocks in file
// order. Directories are walked recursively; paths that do not exist are
// skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Definition, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("config.load.start", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("config.load.discovered", "count", len(files))

	evalCtx := l.evalContext()
	parser := hclparse.NewParser()
	def := &Definition{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, a := range root.Agents {
			if _, dup := def.Agent(a.Name); dup {
				return nil, fmt.Errorf("%w: %q redeclared in %s", ErrDuplicateAgent, a.Name, file)
			}
			def.Agents = append(def.Agents, translateAgent(a, file))
		}
		for _, e := range root.Edges {
			def.Edges = append(def.Edges, &EdgeDefinition{From: e.From, To: e.To})
		}
		for _, s := range root.Settings {
			mergeSettings(&def.Settings, s)
		}
	}

	logger.Debug("config.load.completed", "agents", len(def.Agents), "edges", len(def.Edges))
	return def, nil
}

// evalContext exposes the environment as the env object.
func (l *Loader) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func translateAgent(a *hclAgent, file string) *AgentDefinition {
	def := &AgentDefinition{
		Name:         a.Name,
		Provider:     deref(a.Provider),
		Model:        deref(a.Model),
		APIKey:       deref(a.APIKey),
		SystemPrompt: deref(a.SystemPrompt),
		Description:  deref(a.Description),
		SharedMemory: a.SharedMemory,
		Temperature:  a.Temperature,
		Source:       file,
	}
	if a.MaxTokens != nil {
		def.MaxTokens = *a.MaxTokens
	}
	return def
}

func mergeSettings(dst *Settings, s *hclSettings) {
	if s.MaxSteps != nil {
		dst.MaxSteps = *s.MaxSteps
	}
	if s.SelfLoops != nil {
		dst.SelfLoops = *s.SelfLoops
	}
	if s.SessionID != nil {
		dst.SessionID = *s.SessionID
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}

		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}
