package agent

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/logging"
	"github.com/jacksongrove/impossibly/model"
)

const (
	// DefaultName is used when Options.Name is empty.
	DefaultName = "agent"
	// DefaultSystemPrompt is used when no instruction is configured.
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Options configures an Agent.
//
// Use functional options with New to override defaults.
type Options struct {
	Name         string
	Description  string
	Instruction  Instruction
	SharedMemory []core.Node
	// Observer receives show-thinking output. Defaults to os.Stdout.
	Observer io.Writer
	// Stream, when set, enables streaming and receives every partial chunk.
	Stream io.Writer
	Logger logging.Logger
}

// modelCallLogger is implemented by loggers that record model latency.
type modelCallLogger interface {
	LogModelCall(model string, dur time.Duration, success bool, err error)
}

// Agent is a graph node backed by a remote language model.
type Agent struct {
	BaseAgent
	llm         model.Model
	instruction Instruction
	observer    io.Writer
	stream      io.Writer
	logger      logging.Logger
}

// New creates an agent driving llm.
func New(llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:        DefaultName,
		Instruction: NewInstructionFromText(DefaultSystemPrompt),
		Observer:    os.Stdout,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(DefaultSystemPrompt)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = io.Discard
	}

	a := &Agent{
		BaseAgent:   NewBaseAgent(opts.Name, opts.Description),
		llm:         llm,
		instruction: opts.Instruction,
		observer:    opts.Observer,
		stream:      opts.Stream,
		logger:      opts.Logger,
	}
	a.SetSharedMemory(opts.SharedMemory...)
	return a
}

// Model returns the underlying model.
func (a *Agent) Model() model.Model { return a.llm }

// Instruction returns the agent's system instruction.
func (a *Agent) Instruction() Instruction { return a.instruction }

// Invoke sends prompt, authored as role, to the model and returns the raw
// reply. edges are the destinations the reply may be routed to; they only
// shape the routing block of the prompt.
//
// The first invocation within the run's session seeds the history with the
// system instruction. Every invocation appends exactly one entry holding the
// assembled prompt. Model failures are returned wrapped and never retried.
func (a *Agent) Invoke(rc *core.RunContext, role core.Role, prompt string, edges []core.Node, showThinking bool) (string, error) {
	if err := core.ValidateRole(role); err != nil {
		return "", err
	}
	if rc == nil || rc.History == nil {
		return "", fmt.Errorf("agent %q: run context without history store", a.Name())
	}

	system, err := a.instruction.Resolve(rc)
	if err != nil {
		return "", fmt.Errorf("agent %q: resolve instruction: %w", a.Name(), err)
	}

	history, err := rc.History.Messages(rc.SessionID, a.Name())
	if err != nil {
		return "", fmt.Errorf("agent %q: load history: %w", a.Name(), err)
	}
	if len(history) == 0 {
		if err := a.appendHistory(rc, core.NewTextContent(core.RoleSystem, system)); err != nil {
			return "", err
		}
	}

	if showThinking {
		renderThinking(a.observer, a.Name(), system, prompt)
	}

	if err := a.appendHistory(rc, core.NewTextContent(role, AssemblePrompt(system, prompt, edges))); err != nil {
		return "", err
	}
	if history, err = rc.History.Messages(rc.SessionID, a.Name()); err != nil {
		return "", fmt.Errorf("agent %q: load history: %w", a.Name(), err)
	}

	a.logger.Debug("agent.invoke.start", "agent", a.Name(), "role", role, "edges", len(edges), "history", len(history), "run_id", rc.RunID)

	var onPartial func(string)
	if a.stream != nil {
		onPartial = func(s string) { _, _ = io.WriteString(a.stream, s) }
	}

	start := time.Now()
	out, err := model.Complete(rc.Context, a.llm, model.Request{Contents: history, Stream: a.stream != nil}, onPartial)
	if ml, ok := a.logger.(modelCallLogger); ok {
		ml.LogModelCall(a.llm.Info().Name, time.Since(start), err == nil, err)
	}
	if err != nil {
		a.logger.Error("agent.invoke.failed", "agent", a.Name(), "model", a.llm.Info().Name, "error", err, "duration", time.Since(start))
		return "", fmt.Errorf("agent %q: %w", a.Name(), err)
	}

	a.logger.Debug("agent.invoke.completed", "agent", a.Name(), "model", a.llm.Info().Name, "duration", time.Since(start))
	return out, nil
}

// History returns a copy of the agent's message history in the run's session.
func (a *Agent) History(rc *core.RunContext) ([]core.Content, error) {
	if rc == nil || rc.History == nil {
		return nil, nil
	}
	return rc.History.Messages(rc.SessionID, a.Name())
}

func (a *Agent) appendHistory(rc *core.RunContext, c core.Content) error {
	if err := rc.History.Append(rc.SessionID, a.Name(), c); err != nil {
		return fmt.Errorf("agent %q: append history: %w", a.Name(), err)
	}
	return nil
}
