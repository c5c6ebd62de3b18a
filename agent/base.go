package agent

import (
	"sync"

	"github.com/jacksongrove/impossibly/core"
)

// BaseAgent bundles the identity every node exposes: name, description and
// the peers whose conversation it may read. Embed it in concrete agents. All
// exported methods are goroutine-safe.
type BaseAgent struct {
	name         string      // Unique name, used by routing commands
	description  string      // Shown when this agent is a routing option
	sharedMemory []core.Node // Peers whose exchanges are injected before each call
	mu           sync.RWMutex
}

// NewBaseAgent constructs a BaseAgent.
func NewBaseAgent(name, description string) BaseAgent {
	return BaseAgent{name: name, description: description}
}

// Name returns the agent's unique name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the text shown when this agent is a routing option.
func (b *BaseAgent) Description() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.description
}

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.description = desc
}

// SharedMemory returns a copy of the peers whose memory this agent reads.
func (b *BaseAgent) SharedMemory() []core.Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Node, len(b.sharedMemory))
	copy(out, b.sharedMemory)
	return out
}

// SetSharedMemory replaces the shared-memory peer list. Peers are
// non-owning references; nil entries are dropped.
func (b *BaseAgent) SetSharedMemory(peers ...core.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sharedMemory = b.sharedMemory[:0:0]
	for _, p := range peers {
		if p != nil {
			b.sharedMemory = append(b.sharedMemory, p)
		}
	}
}
