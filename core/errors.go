package core

import "errors"

// Configuration errors. They are raised at setup time and never recovered
// locally.
var (
	ErrInvalidNode      = errors.New("invalid node")
	ErrReservedName     = errors.New("reserved node name")
	ErrDuplicateName    = errors.New("duplicate node name")
	ErrUnregisteredNode = errors.New("node not registered")
	ErrInvalidEdge      = errors.New("invalid edge")
	ErrNoEntryPoint     = errors.New("no edge from START")
	ErrNoOutgoingEdges  = errors.New("node has no outgoing edges")
)

// ErrDidNotTerminate reports that a run hit its step ceiling before routing
// to END.
var ErrDidNotTerminate = errors.New("graph did not terminate")
