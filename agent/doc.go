// Package agent implements the graph's conversational nodes. An Agent wraps
// one remote model behind a name, a description (shown to other agents when
// it is a routing option) and a system instruction, and keeps a private
// message history per session.
//
// Each Invoke validates the author role, assembles the prompt (system
// instruction, chat prompt and routing block), appends it to the history and
// sends the whole history to the model. The raw reply is returned unchanged;
// stripping routing commands is the graph's job.
//
// Design principles:
//   - Minimal hidden global state: history lives in the run's HistoryStore
//   - Explicit wiring: the model is chosen by the caller, never inferred
//   - Observability: optional show-thinking rendering to an observer writer
package agent
