// Package session houses concrete implementations of core.HistoryStore. A
// session groups the private message histories of every node taking part in
// one or more graph runs: a graph that owns a fresh session per run isolates
// its runs, one that reuses a session lets node histories accumulate.
//
// Keeping only implementations here prevents agents and graphs from
// depending on concrete storage; the wiring layer picks the backend.
package session
