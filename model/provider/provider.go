// Package provider selects a remote-call implementation by explicit name.
// Callers (and graph definition files) name the provider; no concrete
// client type is ever inspected at runtime.
package provider

import (
	"errors"
	"fmt"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/jacksongrove/impossibly/model"
	"github.com/jacksongrove/impossibly/model/anthropic"
	"github.com/jacksongrove/impossibly/model/openai"
)

// ErrUnknownProvider is returned for provider names outside Names.
var ErrUnknownProvider = errors.New("unknown model provider")

// Name identifies a provider.
type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
)

// Names lists every supported provider.
var Names = []Name{OpenAI, Anthropic}

// Parse validates a provider name (case-insensitive).
func Parse(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: openai, anthropic)", ErrUnknownProvider, s)
}

// Options configures the model built by New. Zero values keep each
// provider's defaults.
type Options struct {
	Model       string
	APIKey      string
	Temperature *float64
	MaxTokens   int64
}

// New builds the model for the named provider.
func New(name Name, optFns ...func(o *Options)) (model.Model, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch name {
	case OpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if opts.Model != "" {
				o.Model = opts.Model
			}
			if opts.Temperature != nil {
				o.Temperature = *opts.Temperature
			}
			if opts.MaxTokens > 0 {
				o.MaxCompletionTokens = opts.MaxTokens
			}
			o.APIKey = opts.APIKey
		}), nil
	case Anthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if opts.Model != "" {
				o.Model = sdkanthropic.Model(opts.Model)
			}
			if opts.Temperature != nil {
				o.Temperature = *opts.Temperature
			}
			if opts.MaxTokens > 0 {
				o.MaxTokens = opts.MaxTokens
			}
			o.APIKey = opts.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: openai, anthropic)", ErrUnknownProvider, name)
	}
}
