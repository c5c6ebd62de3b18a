package config

import (
	"errors"
	"fmt"

	"github.com/jacksongrove/impossibly/agent"
	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/graph"
	"github.com/jacksongrove/impossibly/logging"
	"github.com/jacksongrove/impossibly/model"
	"github.com/jacksongrove/impossibly/model/provider"
)

var (
	// ErrUnknownAgent is returned when an edge or shared-memory list names
	// an agent that was never declared.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrDuplicateAgent is returned when two agent blocks share a name.
	ErrDuplicateAgent = errors.New("duplicate agent")
)

// ModelFactory builds the model behind one agent.
type ModelFactory func(name provider.Name, optFns ...func(o *provider.Options)) (model.Model, error)

// BuildOptions configures Build.
type BuildOptions struct {
	Logger       logging.Logger
	ModelFactory ModelFactory
	// AgentOptions are applied to every agent after the definition.
	AgentOptions []func(o *agent.Options)
}

// Build turns a definition into a graph. Agents are registered in
// declaration order and edges are added in declaration order.
func Build(def *Definition, optFns ...func(o *BuildOptions)) (*graph.Graph, error) {
	opts := BuildOptions{
		Logger:       logging.NoOpLogger{},
		ModelFactory: provider.New,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	g := graph.New(func(o *graph.Options) {
		o.Logger = opts.Logger
		o.MaxSteps = def.Settings.MaxSteps
		o.AllowSelfLoops = def.Settings.SelfLoops
		o.SessionID = def.Settings.SessionID
	})

	agents := make(map[string]*agent.Agent, len(def.Agents))
	for _, a := range def.Agents {
		built, err := buildAgent(a, opts)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(built); err != nil {
			return nil, fmt.Errorf("agent %q: %w", a.Name, err)
		}
		agents[a.Name] = built
	}

	for _, a := range def.Agents {
		peers := make([]core.Node, 0, len(a.SharedMemory))
		for _, name := range a.SharedMemory {
			peer, ok := agents[name]
			if !ok {
				return nil, fmt.Errorf("agent %q shared_memory: %w: %q", a.Name, ErrUnknownAgent, name)
			}
			peers = append(peers, peer)
		}
		agents[a.Name].SetSharedMemory(peers...)
	}

	for i, e := range def.Edges {
		srcs, err := resolve(e.From, agents)
		if err != nil {
			return nil, fmt.Errorf("edge %d from: %w", i, err)
		}
		dsts, err := resolve(e.To, agents)
		if err != nil {
			return nil, fmt.Errorf("edge %d to: %w", i, err)
		}
		if err := g.AddEdges(srcs, dsts); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	return g, nil
}

func buildAgent(a *AgentDefinition, opts BuildOptions) (*agent.Agent, error) {
	name := provider.OpenAI
	if a.Provider != "" {
		parsed, err := provider.Parse(a.Provider)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", a.Name, err)
		}
		name = parsed
	}

	llm, err := opts.ModelFactory(name, func(o *provider.Options) {
		o.Model = a.Model
		o.APIKey = a.APIKey
		o.Temperature = a.Temperature
		o.MaxTokens = a.MaxTokens
	})
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", a.Name, err)
	}

	return agent.New(llm, func(o *agent.Options) {
		o.Name = a.Name
		o.Description = a.Description
		if a.SystemPrompt != "" {
			o.Instruction = agent.NewInstructionFromText(a.SystemPrompt)
		}
		o.Logger = opts.Logger
		for _, fn := range opts.AgentOptions {
			fn(o)
		}
	}), nil
}

func resolve(names []string, agents map[string]*agent.Agent) ([]core.Node, error) {
	out := make([]core.Node, 0, len(names))
	for _, n := range names {
		switch n {
		case core.StartName:
			out = append(out, core.Start)
		case core.EndName:
			out = append(out, core.End)
		default:
			a, ok := agents[n]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, n)
			}
			out = append(out, a)
		}
	}
	return out, nil
}
