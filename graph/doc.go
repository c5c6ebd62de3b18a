// Package graph wires agents into a directed routing graph and walks it.
//
// A Graph owns the node registry and every node's ordered list of outgoing
// edges, including the implicit START and END sentinels. A run enters at the
// first successor of START and, at each step, invokes the current node, picks
// a successor (via the routing extractor when there is more than one) and
// records the hop in a run-local conversation memory. Routing to END returns
// the current output to the caller.
//
// Runs over the same Graph are isolated: each gets its own memory, step
// limiter and (unless Options.SessionID is set) its own history session.
package graph
