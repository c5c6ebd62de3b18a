// Package testutil contains helpers used across tests to reduce boilerplate
// when driving agents and graphs without a network: scripted models that
// replay canned replies and record every request, and run contexts backed by
// an in-memory history store. They are not intended for production usage.
package testutil
