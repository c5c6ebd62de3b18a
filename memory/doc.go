// Package memory holds the conversation memory of a graph run: an
// append-only log of (author, recipient, content) records describing every
// hop between nodes. Nodes that declare shared-memory peers are shown the
// slice of this log exchanged among those peers.
//
// A ConversationMemory belongs to exactly one run; it is created empty when
// the run starts and discarded when it returns.
package memory
