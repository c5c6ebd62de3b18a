// Package core provides the foundational domain types shared by every other
// package in impossibly. It defines:
//
//   - Node identity and the START / END sentinels that bound every graph
//   - Conversational roles and the closed set accepted by agents
//   - Content (role-tagged message history entries)
//   - RunContext, the per-run execution scope threaded through a graph walk
//   - HistoryStore, the contract for per-node message history backends
//   - StepLimiter and the configuration / run sentinel errors
//
// Implementation concerns (model providers, routing, memory, persistence)
// live in their own packages and depend on core, never the other way round.
package core
