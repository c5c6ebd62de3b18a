package config

// Definition is the merged content of every loaded file.
type Definition struct {
	Agents   []*AgentDefinition
	Edges    []*EdgeDefinition
	Settings Settings
}

// AgentDefinition declares one agent node.
type AgentDefinition struct {
	Name         string
	Provider     string
	Model        string
	APIKey       string
	SystemPrompt string
	Description  string
	SharedMemory []string
	Temperature  *float64
	MaxTokens    int64
	// Source is the file the block was read from.
	Source string
}

// EdgeDefinition connects every From name to every To name, in order.
type EdgeDefinition struct {
	From []string
	To   []string
}

// Settings tunes the built graph.
type Settings struct {
	MaxSteps  int
	SelfLoops bool
	// SessionID makes runs share node histories.
	SessionID string
}

// Agent returns the definition named name.
func (d *Definition) Agent(name string) (*AgentDefinition, bool) {
	for _, a := range d.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}
