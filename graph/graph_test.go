package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksongrove/impossibly/agent"
	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/internal/testutil"
	"github.com/jacksongrove/impossibly/memory"
	"github.com/jacksongrove/impossibly/model"
	"github.com/jacksongrove/impossibly/session"
)

func newScripted(name string, replies ...string) (*agent.Agent, *testutil.ScriptedModel) {
	llm := testutil.NewScriptedModel(name, replies...)
	return agent.New(llm, func(o *agent.Options) {
		o.Name = name
		o.Description = "handles " + name
	}), llm
}

var _ Node = (*agent.Agent)(nil)

func TestRun_SinglePathReturnsRawOutput(t *testing.T) {
	a, llm := newScripted("A", `done \\END\\ with a command left in`)
	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	res, err := g.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `done \\END\\ with a command left in`, res.Output)
	assert.Equal(t, 1, res.Steps)
	assert.Empty(t, res.Transcript)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, res.SessionID)
	assert.Contains(t, llm.LastPrompt(), "## Chat Prompt: hello")
	assert.Contains(t, llm.LastPrompt(), "## Routing Disclosure: Your response will be routed to 'END'")
}

func TestRun_MixtureOfExperts(t *testing.T) {
	router, routerLLM := newScripted("Router", `This is algebra. \\ExpertA\\`)
	expertA, aLLM := newScripted("ExpertA", "x = 1")
	expertB, bLLM := newScripted("ExpertB")
	summarizer, sLLM := newScripted("Summarizer", "The answer is x = 1.")

	g := New()
	require.NoError(t, g.AddNode(router, expertA, expertB, summarizer))
	require.NoError(t, g.AddEdge(core.Start, router))
	require.NoError(t, g.AddEdges([]core.Node{router}, []core.Node{expertA, expertB}))
	require.NoError(t, g.AddEdges([]core.Node{expertA, expertB}, []core.Node{summarizer}))
	require.NoError(t, g.AddEdge(summarizer, core.End))

	res, err := g.Run(context.Background(), "Solve x + 1 = 2")
	require.NoError(t, err)

	assert.Equal(t, "The answer is x = 1.", res.Output)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, 1, routerLLM.Calls())
	assert.Equal(t, 1, aLLM.Calls())
	assert.Equal(t, 0, bLLM.Calls())
	assert.Equal(t, 1, sLLM.Calls())

	assert.Contains(t, routerLLM.LastPrompt(), `Command: '\\ExpertA\\'	Description: handles ExpertA`)
	assert.Contains(t, routerLLM.LastPrompt(), `Command: '\\ExpertB\\'	Description: handles ExpertB`)
	assert.Contains(t, aLLM.LastPrompt(), "## Chat Prompt: This is algebra. \n")

	assert.Equal(t, []memory.Record{
		{Author: "Router", Recipient: "ExpertA", Content: "This is algebra. "},
		{Author: "ExpertA", Recipient: "Summarizer", Content: "x = 1"},
	}, res.Transcript)
}

func TestRun_RoutingToEndStopsWithoutRecording(t *testing.T) {
	a, _ := newScripted("A", `all done \\END\\`)
	b, bLLM := newScripted("B")

	g := New()
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdges([]core.Node{a}, []core.Node{b, core.End}))
	require.NoError(t, g.AddEdge(b, core.End))

	res, err := g.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "all done ", res.Output)
	assert.Empty(t, res.Transcript)
	assert.Equal(t, 0, bLLM.Calls())
}

func TestRun_FallbackToFirstEdge(t *testing.T) {
	rec := &testutil.RecordingLogger{}
	a, _ := newScripted("A", "no command here")
	b, bLLM := newScripted("B", "b out")

	g := New(func(o *Options) { o.Logger = rec })
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdges([]core.Node{a}, []core.Node{b, core.End}))
	require.NoError(t, g.AddEdge(b, core.End))

	out, err := g.Invoke(context.Background(), "go", false)
	require.NoError(t, err)
	assert.Equal(t, "b out", out)
	assert.Contains(t, bLLM.LastPrompt(), "## Chat Prompt: no command here")
	assert.Contains(t, rec.Messages("warn"), "routing.fallback")
}

func TestRun_SharedMemoryTranscript(t *testing.T) {
	x, _ := newScripted("X", "x says hi")
	y, _ := newScripted("Y", "y says hi")
	z, _ := newScripted("Z", "z says hi")
	w, wLLM := newScripted("W", "w done")
	w.SetSharedMemory(x, y)

	g := New()
	require.NoError(t, g.AddNode(x, y, z, w))
	require.NoError(t, g.AddEdge(core.Start, x))
	require.NoError(t, g.AddEdge(x, y))
	require.NoError(t, g.AddEdge(y, z))
	require.NoError(t, g.AddEdge(z, w))
	require.NoError(t, g.AddEdge(w, core.End))

	out, err := g.Invoke(context.Background(), "start", false)
	require.NoError(t, err)
	assert.Equal(t, "w done", out)

	prompt := wLLM.LastPrompt()
	assert.Contains(t, prompt, "## Chat Prompt: z says hi\n\n## Previous Conversations:\nX -> Y: x says hi\n\n")
	assert.NotContains(t, prompt, "Y -> Z")
	assert.NotContains(t, prompt, "Z -> W")
}

func TestRun_NoTranscriptWhenPeersHaveNoRecords(t *testing.T) {
	a, aLLM := newScripted("A", "a out")
	other, _ := newScripted("Other")
	a.SetSharedMemory(other)

	g := New()
	require.NoError(t, g.AddNode(a, other))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	_, err := g.Invoke(context.Background(), "hi", false)
	require.NoError(t, err)
	assert.NotContains(t, aLLM.LastPrompt(), "Previous Conversations")
}

func TestAddEdge_SelfLoopSkippedByDefault(t *testing.T) {
	a, _ := newScripted("A")
	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(a, core.End))

	require.NoError(t, g.AddEdge(a, a))
	assert.Equal(t, []core.Node{core.End}, g.Edges(a))
}

func TestAddEdge_SelfLoopAllowed(t *testing.T) {
	a, llm := newScripted("Thinker", `step one \\Thinker\\`, `final \\END\\`)
	g := New(func(o *Options) { o.AllowSelfLoops = true })
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdges([]core.Node{a}, []core.Node{a, core.End}))
	assert.Equal(t, []core.Node{a, core.End}, g.Edges(a))

	res, err := g.Run(context.Background(), "think")
	require.NoError(t, err)
	assert.Equal(t, "final ", res.Output)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, []memory.Record{{Author: "Thinker", Recipient: "Thinker", Content: "step one "}}, res.Transcript)
	assert.Contains(t, llm.LastPrompt(), "## Chat Prompt: step one \n")
}

func TestAddEdge_UnregisteredLeavesStateUnchanged(t *testing.T) {
	a, _ := newScripted("A")
	b, _ := newScripted("B")
	stranger, _ := newScripted("Stranger")

	g := New()
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdge(a, b))

	err := g.AddEdge(a, stranger)
	assert.ErrorIs(t, err, core.ErrUnregisteredNode)

	err = g.AddEdges([]core.Node{a, b}, []core.Node{core.End, stranger})
	assert.ErrorIs(t, err, core.ErrUnregisteredNode)

	assert.Equal(t, []core.Node{b}, g.Edges(a))
	assert.Empty(t, g.Edges(b))
}

func TestAddEdge_SameNameDifferentInstanceIsUnregistered(t *testing.T) {
	a, _ := newScripted("A")
	impostor, _ := newScripted("A")

	g := New()
	require.NoError(t, g.AddNode(a))
	assert.ErrorIs(t, g.AddEdge(impostor, core.End), core.ErrUnregisteredNode)
}

func TestAddEdge_SentinelDirection(t *testing.T) {
	a, _ := newScripted("A")
	g := New()
	require.NoError(t, g.AddNode(a))

	assert.ErrorIs(t, g.AddEdge(core.End, a), core.ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(a, core.Start), core.ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(nil, a), core.ErrInvalidNode)
	assert.Empty(t, g.Edges(a))
}

func TestAddEdges_CartesianOrder(t *testing.T) {
	a, _ := newScripted("A")
	b, _ := newScripted("B")
	c, _ := newScripted("C")
	d, _ := newScripted("D")

	g := New()
	require.NoError(t, g.AddNode(a, b, c, d))
	require.NoError(t, g.AddEdges([]core.Node{a, b}, []core.Node{c, d, core.End}))

	assert.Equal(t, []core.Node{c, d, core.End}, g.Edges(a))
	assert.Equal(t, []core.Node{c, d, core.End}, g.Edges(b))
}

func TestAddNode_Validation(t *testing.T) {
	a, _ := newScripted("A")
	dup, _ := newScripted("A")
	end, _ := newScripted(core.EndName)
	start, _ := newScripted(core.StartName)

	g := New()
	assert.ErrorIs(t, g.AddNode(nil), core.ErrInvalidNode)
	assert.ErrorIs(t, g.AddNode(end), core.ErrReservedName)
	assert.ErrorIs(t, g.AddNode(start), core.ErrReservedName)
	assert.ErrorIs(t, g.AddNode(a, dup), core.ErrDuplicateName)
	assert.Empty(t, g.Nodes())

	require.NoError(t, g.AddNode(a))
	assert.ErrorIs(t, g.AddNode(dup), core.ErrDuplicateName)
}

func TestAddNode_TypedNil(t *testing.T) {
	a, _ := newScripted("A")
	g := New()

	var typedNil *agent.Agent
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, g.AddNode(typedNil), core.ErrInvalidNode)
		assert.ErrorIs(t, g.AddNode(a, typedNil), core.ErrInvalidNode)
	})
	assert.Empty(t, g.Nodes())
}

func TestAddEdge_TypedNil(t *testing.T) {
	a, _ := newScripted("A")
	g := New()
	require.NoError(t, g.AddNode(a))

	var typedNil *agent.Agent
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, g.AddEdge(a, typedNil), core.ErrInvalidNode)
		assert.ErrorIs(t, g.AddEdges([]core.Node{typedNil}, []core.Node{core.End}), core.ErrInvalidNode)
	})
	assert.Empty(t, g.Edges(a))
}

func TestAddNode_ReAddResetsEdges(t *testing.T) {
	a, _ := newScripted("A")
	b, _ := newScripted("B")

	g := New()
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdge(a, b))
	require.Len(t, g.Edges(a), 1)

	require.NoError(t, g.AddNode(a))
	assert.Empty(t, g.Edges(a))
	assert.Equal(t, []Node{a, b}, g.Nodes())
}

func TestRun_EmptyGraphReturnsPrompt(t *testing.T) {
	out, err := New().Invoke(context.Background(), "echo me", false)
	require.NoError(t, err)
	assert.Equal(t, "echo me", out)
}

func TestRun_NoEntryPoint(t *testing.T) {
	a, _ := newScripted("A")
	g := New()
	require.NoError(t, g.AddNode(a))

	_, err := g.Run(context.Background(), "hi")
	assert.ErrorIs(t, err, core.ErrNoEntryPoint)
}

func TestRun_OnlyFirstStartEdgeIsUsed(t *testing.T) {
	a, aLLM := newScripted("A", "from a")
	b, bLLM := newScripted("B", "from b")

	g := New()
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdges([]core.Node{core.Start}, []core.Node{a, b}))
	require.NoError(t, g.AddEdges([]core.Node{a, b}, []core.Node{core.End}))

	out, err := g.Invoke(context.Background(), "hi", false)
	require.NoError(t, err)
	assert.Equal(t, "from a", out)
	assert.Equal(t, 1, aLLM.Calls())
	assert.Equal(t, 0, bLLM.Calls())
}

func TestRun_NoOutgoingEdges(t *testing.T) {
	a, _ := newScripted("A", "stuck")
	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))

	_, err := g.Run(context.Background(), "hi")
	assert.ErrorIs(t, err, core.ErrNoOutgoingEdges)
	assert.Contains(t, err.Error(), `"A"`)
}

func TestRun_NodeErrorPropagates(t *testing.T) {
	boom := errors.New("upstream timeout")
	a, llm := newScripted("A")
	llm.FailWith(boom)

	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	_, err := g.Run(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `node "A"`)
	assert.Equal(t, 1, llm.Calls())
}

func TestRun_MaxStepsFailsClosed(t *testing.T) {
	a, _ := newScripted("A", "1", "2", "3", "4")
	b, _ := newScripted("B", "1", "2", "3", "4")

	g := New(func(o *Options) { o.MaxSteps = 3 })
	require.NoError(t, g.AddNode(a, b))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, a))

	_, err := g.Run(context.Background(), "loop")
	assert.ErrorIs(t, err, core.ErrDidNotTerminate)
}

func TestRun_CancelledContext(t *testing.T) {
	a, llm := newScripted("A", "unused")
	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Run(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, llm.Calls())
}

// blockingModel waits for cancellation once started.
type blockingModel struct{ started chan struct{} }

func (m *blockingModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		close(m.started)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()
	return respCh, errCh
}

func (m *blockingModel) Info() model.Info { return model.Info{Name: "blocking", Provider: "test"} }

func TestCancel_InFlightRun(t *testing.T) {
	llm := &blockingModel{started: make(chan struct{})}
	a := agent.New(llm, func(o *agent.Options) { o.Name = "Slow" })

	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	errCh := make(chan error, 1)
	go func() {
		_, err := g.Run(context.Background(), "hi", func(o *RunOptions) { o.RunID = "slow-run" })
		errCh <- err
	}()

	<-llm.started
	require.NoError(t, g.Cancel("slow-run"))

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), `node "Slow"`)
	assert.Error(t, g.Cancel("slow-run"))
}

// gatedModel replies once release is closed.
type gatedModel struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedModel() *gatedModel {
	return &gatedModel{started: make(chan struct{}), release: make(chan struct{})}
}

func (m *gatedModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(respCh)
		defer close(errCh)
		m.once.Do(func() { close(m.started) })
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case <-m.release:
			respCh <- model.Response{Content: core.NewTextContent(core.RoleAssistant, "released"), FinishReason: "stop"}
		}
	}()
	return respCh, errCh
}

func (m *gatedModel) Info() model.Info { return model.Info{Name: "gated", Provider: "test"} }

func TestRun_DuplicateRunIDRejected(t *testing.T) {
	store := session.NewInMemoryStore()
	llm := newGatedModel()
	a := agent.New(llm, func(o *agent.Options) { o.Name = "A" })

	g := New(func(o *Options) { o.History = store })
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	type outcome struct {
		res *RunResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := g.Run(context.Background(), "first", func(o *RunOptions) { o.RunID = "x" })
		first <- outcome{res, err}
	}()
	<-llm.started

	before, err := store.Messages("x", "A")
	require.NoError(t, err)
	require.Len(t, before, 2)

	_, err = g.Run(context.Background(), "second", func(o *RunOptions) { o.RunID = "x" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")

	after, err := store.Messages("x", "A")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	close(llm.release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, "released", got.res.Output)
	assert.Equal(t, "x", got.res.SessionID)
	assert.Equal(t, 0, store.Sessions())
}

func TestCancel_UnknownRun(t *testing.T) {
	assert.Error(t, New().Cancel("missing"))
}

func TestRun_HistoryIsolatedPerRun(t *testing.T) {
	store := session.NewInMemoryStore()
	a, llm := newScripted("A", "one", "two")

	g := New(func(o *Options) { o.History = store })
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	_, err := g.Invoke(context.Background(), "first", false)
	require.NoError(t, err)
	_, err = g.Invoke(context.Background(), "second", false)
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Contents, 2)
	assert.Len(t, reqs[1].Contents, 2)
	assert.Equal(t, 0, store.Sessions())
}

func TestRun_HistoryAccumulatesInSharedSession(t *testing.T) {
	store := session.NewInMemoryStore()
	a, llm := newScripted("A", "one", "two")

	g := New(func(o *Options) {
		o.History = store
		o.SessionID = "conversation"
	})
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	res, err := g.Run(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "conversation", res.SessionID)
	_, err = g.Run(context.Background(), "second")
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Contents, 3)
	assert.Equal(t, 1, store.Sessions())

	history, err := store.Messages("conversation", "A")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	store := session.NewInMemoryStore()
	a := agent.New(model.NewMockModel("mock"), func(o *agent.Options) { o.Name = "A" })

	g := New(func(o *Options) { o.History = store })
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	outs := make([]string, 8)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = g.Invoke(context.Background(), fmt.Sprintf("prompt %d", i), false)
		}(i)
	}
	wg.Wait()

	for i := range 8 {
		require.NoError(t, errs[i])
		assert.Contains(t, outs[i], fmt.Sprintf("## Chat Prompt: prompt %d\n", i))
	}
	assert.Equal(t, 0, store.Sessions())
}

func TestRun_StructureSnapshot(t *testing.T) {
	a, _ := newScripted("A", "a out")
	g := New()
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddEdge(core.Start, a))
	require.NoError(t, g.AddEdge(a, core.End))

	edges := g.Edges(a)
	edges[0] = a
	assert.Equal(t, []core.Node{core.End}, g.Edges(a))

	nodes := g.Nodes()
	nodes[0] = nil
	assert.Equal(t, []Node{a}, g.Nodes())
}
