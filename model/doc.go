// Package model defines the provider‑agnostic contract for the remote
// language-model call every agent delegates to.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement Model in sub-packages; the
// provider package selects one explicitly by name. The engine never retries
// a failed call: errors surface to the caller unchanged.
package model
