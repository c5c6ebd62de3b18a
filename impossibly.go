// Package impossibly builds graphs of LLM agents that hand work to each other
// by embedding routing commands in their replies. Most applications:
//  1. Create agents with NewAgent, naming the provider explicitly
//  2. Wire them into a Graph between the Start and End sentinels
//  3. Call Invoke with the user's prompt
//
// Graphs can also be declared in HCL files and loaded with LoadGraph.
package impossibly

import (
	"context"
	"fmt"
	"io"

	"github.com/jacksongrove/impossibly/agent"
	"github.com/jacksongrove/impossibly/config"
	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/graph"
	"github.com/jacksongrove/impossibly/logging"
	"github.com/jacksongrove/impossibly/model/provider"
)

var (
	// Start is the entry sentinel of every graph.
	Start = core.Start
	// End is the sentinel that returns a reply to the caller.
	End = core.End
)

// Providers selectable by NewAgent.
const (
	OpenAI    = provider.OpenAI
	Anthropic = provider.Anthropic
)

// AgentOptions configures NewAgent.
type AgentOptions struct {
	Name         string
	Model        string
	APIKey       string
	SystemPrompt string
	Description  string
	SharedMemory []core.Node
	// Stream receives the reply as it is generated.
	Stream io.Writer
	Logger logging.Logger
}

// NewAgent creates an agent backed by the named provider. API keys default to
// the provider's environment variable.
func NewAgent(p provider.Name, optFns ...func(o *AgentOptions)) (*agent.Agent, error) {
	opts := AgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	llm, err := provider.New(p, func(o *provider.Options) {
		o.Model = opts.Model
		o.APIKey = opts.APIKey
	})
	if err != nil {
		return nil, fmt.Errorf("new agent %q: %w", opts.Name, err)
	}

	return agent.New(llm, func(o *agent.Options) {
		if opts.Name != "" {
			o.Name = opts.Name
		}
		o.Description = opts.Description
		if opts.SystemPrompt != "" {
			o.Instruction = agent.NewInstructionFromText(opts.SystemPrompt)
		}
		o.SharedMemory = opts.SharedMemory
		o.Stream = opts.Stream
		o.Logger = opts.Logger
	}), nil
}

// NewGraph creates an empty graph.
func NewGraph(optFns ...func(o *graph.Options)) *graph.Graph {
	return graph.New(optFns...)
}

// LoadGraph reads HCL definitions from paths and builds the graph they
// declare.
func LoadGraph(ctx context.Context, paths []string, optFns ...func(o *config.BuildOptions)) (*graph.Graph, error) {
	def, err := config.NewLoader().Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	return config.Build(def, optFns...)
}
