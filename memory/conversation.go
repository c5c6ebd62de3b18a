package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jacksongrove/impossibly/core"
)

// Record is a single hop between two nodes.
type Record struct {
	Author    string `json:"author"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

// String renders the record as "{author} -> {recipient}: {content}".
func (r Record) String() string {
	return fmt.Sprintf("%s -> %s: %s", r.Author, r.Recipient, r.Content)
}

// ConversationMemory is a process-local, append-only record log.
//
// Concurrency: protected by RWMutex. Retrieval never mutates stored records
// and always returns copies.
type ConversationMemory struct {
	mu      sync.RWMutex
	records []Record
}

// NewConversationMemory creates an empty memory.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Add appends a record. Names are read from the nodes, so END is always
// stored as "END".
func (m *ConversationMemory) Add(author, recipient core.Node, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{
		Author:    author.Name(),
		Recipient: recipient.Name(),
		Content:   content,
	})
}

// Get returns, in insertion order, the records whose author is in authors
// AND whose recipient is in recipients.
func (m *ConversationMemory) Get(authors, recipients []string) []Record {
	as, rs := toSet(authors), toSet(recipients)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0)
	for _, r := range m.records {
		if _, ok := as[r.Author]; !ok {
			continue
		}
		if _, ok := rs[r.Recipient]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetFormatted renders the records selected by Get one per line.
func (m *ConversationMemory) GetFormatted(authors, recipients []string) string {
	records := m.Get(authors, recipients)
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// GetAll returns a copy of every record.
func (m *ConversationMemory) GetAll() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of stored records.
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Clear drops every record.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Names returns the display names of nodes, in order.
func Names(nodes ...core.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name()
	}
	return names
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
