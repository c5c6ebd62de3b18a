// Package config loads graph definitions from HCL files and builds runnable
// graphs from them.
//
// A definition declares agents (one labelled block each), edges between
// agent names (START and END name the sentinels) and optional run settings.
// Attribute expressions may read the process environment through the env
// object, e.g. api_key = env.OPENAI_API_KEY.
package config
