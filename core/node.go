package core

const (
	// StartName is the display name of the START sentinel.
	StartName = "START"
	// EndName is the display name of the END sentinel and the routing
	// command that terminates a run.
	EndName = "END"
	// EndDescription is presented to agents whenever END is a routing option.
	EndDescription = "the end of the graph, returns the final response to the user"
)

// Node is the identity every graph participant exposes. Names are unique
// within a graph and are what routing commands and memory records refer to.
type Node interface {
	Name() string
	Description() string
}

// sentinel is a distinguished, immutable graph endpoint. Sentinels never
// carry history and are never invoked.
type sentinel struct {
	name        string
	description string
}

func (s *sentinel) Name() string        { return s.name }
func (s *sentinel) Description() string { return s.description }
func (s *sentinel) String() string      { return s.name }

var (
	// Start is the entry sentinel. It has no incoming edges; the walk begins
	// at the first node in its outgoing list.
	Start Node = &sentinel{name: StartName, description: "the start of the graph"}

	// End is the absorbing sentinel. It has no outgoing edges; routing to it
	// returns the current output to the caller.
	End Node = &sentinel{name: EndName, description: EndDescription}
)

// IsSentinel reports whether n is START or END.
func IsSentinel(n Node) bool {
	return n == Start || n == End
}

// IsReservedName reports whether name collides with a sentinel.
func IsReservedName(name string) bool {
	return name == StartName || name == EndName
}
