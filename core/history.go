package core

// HistoryStore persists the private message history of every node, scoped
// by session id. A graph run either owns a fresh session (isolated history)
// or reuses a caller-provided one (history accumulates across runs).
type HistoryStore interface {
	// Append adds one entry to the node's history within the session.
	Append(sessionID, node string, c Content) error
	// Messages returns a copy of the node's history within the session.
	Messages(sessionID, node string) ([]Content, error)
	// Delete drops every node history recorded under the session.
	Delete(sessionID string) error
}
