package graph

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/logging"
	"github.com/jacksongrove/impossibly/memory"
	"github.com/jacksongrove/impossibly/routing"
	"github.com/jacksongrove/impossibly/session"
)

// previousConversationsHeader precedes the transcript injected for nodes with
// shared-memory peers.
const previousConversationsHeader = "\n\n## Previous Conversations:\n"

// Node is a graph participant that can be invoked.
type Node interface {
	core.Node

	// SharedMemory lists the peers whose exchanges are injected into the
	// node's prompt.
	SharedMemory() []core.Node

	// Invoke runs one step of the node and returns its raw reply.
	Invoke(rc *core.RunContext, role core.Role, prompt string, edges []core.Node, showThinking bool) (string, error)
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Logger receives run, routing and fallback diagnostics.
	Logger logging.Logger
	// MaxSteps bounds the number of node invocations per run. Zero means
	// unlimited.
	MaxSteps int
	// AllowSelfLoops keeps edges whose source and destination are the same
	// node. When false such pairs are skipped.
	AllowSelfLoops bool
	// SessionID, when set, makes every run share one history session so node
	// histories accumulate across runs. When empty each run uses a fresh
	// session that is dropped once the run returns.
	SessionID string
	// History stores node message histories.
	History core.HistoryStore
}

// RunOptions tunes a single run.
type RunOptions struct {
	// ShowThinking asks nodes to render their prompts before each call.
	ShowThinking bool
	// RunID names the run, e.g. for Cancel. Defaults to a random UUID.
	RunID string
}

// RunResult describes a finished run.
type RunResult struct {
	RunID     string
	SessionID string
	// Output is the reply that was routed to END.
	Output string
	// Steps is the number of node invocations.
	Steps int
	// Transcript holds every recorded hop. The final hop to END is never
	// recorded.
	Transcript []memory.Record
}

// routeLogger is implemented by loggers that understand graph events.
type routeLogger interface {
	LogRoute(from, to string, index int, fallback bool)
	LogRunExecution(steps int, dur time.Duration, success bool, err error)
}

// Graph is a registry of nodes and edges plus the walk that executes them.
// Public methods are safe for concurrent use.
type Graph struct {
	maxSteps       int
	allowSelfLoops bool
	sessionID      string
	history        core.HistoryStore
	logger         logging.Logger
	extractor      *routing.Extractor

	nodes []Node
	index map[string]Node
	edges map[string][]core.Node

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs an empty Graph holding only START and END.
func New(optFns ...func(o *Options)) *Graph {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.History == nil {
		opts.History = session.NewInMemoryStore()
	}

	return &Graph{
		maxSteps:       opts.MaxSteps,
		allowSelfLoops: opts.AllowSelfLoops,
		sessionID:      opts.SessionID,
		history:        opts.History,
		logger:         opts.Logger,
		extractor:      routing.NewExtractor(func(o *routing.Options) { o.Logger = opts.Logger }),
		index:          make(map[string]Node),
		edges:          map[string][]core.Node{core.StartName: nil},
		activeRuns:     make(map[string]context.CancelFunc),
	}
}

// AddNode registers nodes with an empty outgoing list. Re-adding a node that
// is already registered resets its outgoing list. Every node is validated
// before any is registered.
func (g *Graph) AddNode(nodes ...Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if isNil(n) {
			return core.ErrInvalidNode
		}
		name := n.Name()
		if core.IsReservedName(name) {
			return fmt.Errorf("%w: %q", core.ErrReservedName, name)
		}
		if prev, ok := g.index[name]; ok && prev != n {
			return fmt.Errorf("%w: %q", core.ErrDuplicateName, name)
		}
		if prev, ok := seen[name]; ok && prev != n {
			return fmt.Errorf("%w: %q", core.ErrDuplicateName, name)
		}
		seen[name] = n
	}

	for _, n := range nodes {
		if _, ok := g.index[n.Name()]; !ok {
			g.nodes = append(g.nodes, n)
			g.index[n.Name()] = n
		}
		g.edges[n.Name()] = nil
	}
	return nil
}

// AddEdge appends dst to src's outgoing list.
func (g *Graph) AddEdge(src, dst core.Node) error {
	return g.AddEdges([]core.Node{src}, []core.Node{dst})
}

// AddEdges appends every destination to every source's outgoing list,
// sources outermost, in the order given. Pairs whose source and destination
// are the same node are skipped unless self loops are allowed. If any node is
// invalid the graph is left unchanged.
func (g *Graph) AddEdges(srcs, dsts []core.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range srcs {
		if err := g.checkEndpoint(s); err != nil {
			return err
		}
		if s == core.End {
			return fmt.Errorf("%w: %s has no outgoing edges", core.ErrInvalidEdge, core.EndName)
		}
	}
	for _, d := range dsts {
		if err := g.checkEndpoint(d); err != nil {
			return err
		}
		if d == core.Start {
			return fmt.Errorf("%w: %s has no incoming edges", core.ErrInvalidEdge, core.StartName)
		}
	}

	for _, s := range srcs {
		for _, d := range dsts {
			if s == d && !g.allowSelfLoops {
				g.logger.Debug("graph.edge.self_loop_skipped", "node", s.Name())
				continue
			}
			g.edges[s.Name()] = append(g.edges[s.Name()], d)
		}
	}
	return nil
}

// Edges returns a copy of n's outgoing list.
func (g *Graph) Edges(n core.Node) []core.Node {
	if n == nil {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]core.Node, len(g.edges[n.Name()]))
	copy(out, g.edges[n.Name()])
	return out
}

// Nodes returns the registered nodes in registration order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Invoke runs the graph and returns the output routed to END.
func (g *Graph) Invoke(ctx context.Context, prompt string, showThinking bool) (string, error) {
	res, err := g.Run(ctx, prompt, func(o *RunOptions) { o.ShowThinking = showThinking })
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Run walks the graph from START until a node routes to END.
//
// The node and edge structure is snapshotted when the run starts; later
// changes only affect later runs.
func (g *Graph) Run(ctx context.Context, prompt string, optFns ...func(o *RunOptions)) (*RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var opts RunOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	sessionID := g.sessionID
	if sessionID == "" {
		sessionID = runID
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.mu.Lock()
	if _, busy := g.activeRuns[runID]; busy {
		g.mu.Unlock()
		return nil, fmt.Errorf("run %s already active", runID)
	}
	g.activeRuns[runID] = cancel
	index, edges := g.snapshot()
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.activeRuns, runID)
		g.mu.Unlock()
	}()

	if g.sessionID == "" {
		defer func() {
			if err := g.history.Delete(sessionID); err != nil {
				g.logger.Warn("graph.session.delete_failed", "session_id", sessionID, "error", err)
			}
		}()
	}

	logger := g.runLogger(runID)
	rc := core.NewRunContext(ctx, runID, sessionID, g.history, g.maxSteps, logger)
	res := &RunResult{RunID: runID, SessionID: sessionID}

	start := time.Now()
	err := g.walk(rc, index, edges, prompt, opts, res)
	res.Steps = rc.Limiter.Count()

	if rl, ok := logger.(routeLogger); ok {
		rl.LogRunExecution(res.Steps, time.Since(start), err == nil, err)
	} else if err != nil {
		logger.Error("graph.run.failed", "run_id", runID, "steps", res.Steps, "error", err)
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel cancels an in-flight run by ID.
func (g *Graph) Cancel(runID string) error {
	g.mu.Lock()
	cancel, exists := g.activeRuns[runID]
	g.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

func (g *Graph) walk(
	rc *core.RunContext,
	index map[string]Node,
	edges map[string][]core.Node,
	prompt string,
	opts RunOptions,
	res *RunResult,
) error {
	if len(index) == 0 {
		rc.LogDebug("graph.run.empty", "run_id", rc.RunID)
		res.Output = prompt
		return nil
	}

	entry := edges[core.StartName]
	if len(entry) == 0 {
		return core.ErrNoEntryPoint
	}
	if len(entry) > 1 {
		rc.LogWarn("graph.run.extra_entry_edges_ignored", "run_id", rc.RunID, "edges", len(entry))
	}
	if entry[0] == core.End {
		res.Output = prompt
		return nil
	}

	mem := memory.NewConversationMemory()
	current := index[entry[0].Name()]
	rc.LogDebug("graph.run.start", "run_id", rc.RunID, "session_id", rc.SessionID, "entry", current.Name())

	for {
		if err := rc.Limiter.Increment(); err != nil {
			return err
		}
		if err := rc.Err(); err != nil {
			return err
		}

		outs := edges[current.Name()]
		if len(outs) == 0 {
			return fmt.Errorf("%w: node %q", core.ErrNoOutgoingEdges, current.Name())
		}

		rc.LogDebug("graph.step", "node", current.Name(), "step", rc.Limiter.Count(), "edges", len(outs))

		input := prompt
		if peers := current.SharedMemory(); len(peers) > 0 {
			names := memory.Names(peers...)
			if transcript := mem.GetFormatted(names, names); transcript != "" {
				input += previousConversationsHeader + transcript
			}
		}

		out, err := current.Invoke(rc, core.RoleUser, input, outs, opts.ShowThinking)
		if err != nil {
			return fmt.Errorf("node %q: %w", current.Name(), err)
		}

		next, stripped := 0, out
		if len(outs) > 1 {
			next, stripped = g.extractor.Extract(out, memory.Names(outs...))
		}
		dst := outs[next]
		g.logRoute(rc, current.Name(), dst.Name(), next, len(outs) > 1 && stripped == out)

		if dst == core.End {
			res.Output = stripped
			res.Transcript = mem.GetAll()
			return nil
		}

		mem.Add(current, dst, stripped)
		current = index[dst.Name()]
		prompt = stripped
	}
}

// snapshot copies the structure a run reads. Callers hold g.mu.
func (g *Graph) snapshot() (map[string]Node, map[string][]core.Node) {
	index := make(map[string]Node, len(g.index))
	for k, v := range g.index {
		index[k] = v
	}
	edges := make(map[string][]core.Node, len(g.edges))
	for k, v := range g.edges {
		edges[k] = append([]core.Node(nil), v...)
	}
	return index, edges
}

// checkEndpoint reports whether n may appear in an edge. Callers hold g.mu.
func (g *Graph) checkEndpoint(n core.Node) error {
	if isNil(n) {
		return core.ErrInvalidNode
	}
	if core.IsSentinel(n) {
		return nil
	}
	if registered, ok := g.index[n.Name()]; !ok || core.Node(registered) != n {
		return fmt.Errorf("%w: %q", core.ErrUnregisteredNode, n.Name())
	}
	return nil
}

// isNil reports whether n is nil or a nil pointer behind the interface.
func isNil(n core.Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (g *Graph) runLogger(runID string) logging.Logger {
	if gl, ok := g.logger.(*logging.GraphLogger); ok {
		return gl.WithRun(runID)
	}
	return g.logger
}

func (g *Graph) logRoute(rc *core.RunContext, from, to string, index int, fallback bool) {
	if rl, ok := rc.Logger().(routeLogger); ok {
		rl.LogRoute(from, to, index, fallback)
		return
	}
	rc.LogDebug("graph.route", "from", from, "to", to, "index", index, "fallback", fallback)
}
