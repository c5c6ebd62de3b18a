// Package routing extracts routing commands from free-text model output.
//
// A routing command is the name of the chosen successor wrapped in a pair of
// double-backslash markers, e.g. `\\Summarizer\\`, embedded anywhere in a
// node's response. The extractor picks the first command, resolves it against
// the ordered destination list and strips it from the text. Resolution never
// fails: unresolvable output falls back to the first destination with a
// diagnostic.
package routing

import (
	"regexp"
	"strings"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/logging"
)

// Delimiter wraps a routing command on both sides.
const Delimiter = `\\`

var commandPattern = regexp.MustCompile(`(?s)\\\\(.*?)\\\\`)

// Command renders the routing command selecting name.
func Command(name string) string {
	return Delimiter + name + Delimiter
}

// Options configures an Extractor.
type Options struct {
	Logger logging.Logger
}

// Extractor resolves routing commands. It is stateless apart from its
// logger and safe for concurrent use.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor creates an Extractor. Without a logger, diagnostics are
// discarded.
func NewExtractor(optFns ...func(o *Options)) *Extractor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Extractor{logger: opts.Logger}
}

// Extract returns the index of the destination selected by output and the
// output with that command removed. options holds destination names in edge
// order; END appears under core.EndName.
//
// Only the first command in output is considered. When it resolves, the first
// occurrence of that exact command is removed, which is not necessarily the
// occurrence that was matched. When output holds no command, or the command
// names no destination, Extract logs a diagnostic and returns 0 with output
// unchanged.
func (e *Extractor) Extract(output string, options []string) (int, string) {
	m := commandPattern.FindStringSubmatch(output)
	if m == nil {
		e.fallback("no routing command found", "", options)
		return 0, output
	}

	name := m[1]
	if i := indexOf(options, name); i >= 0 {
		return i, strings.Replace(output, Command(name), "", 1)
	}

	e.fallback("routing command names no destination", name, options)
	return 0, output
}

func (e *Extractor) fallback(reason, name string, options []string) {
	def := ""
	if len(options) > 0 {
		def = options[0]
	}
	e.logger.Warn("routing.fallback", "reason", reason, "command", name, "default", def, "options", options)
}

// indexOf returns the position of name in options. END is matched by its
// stable display name; real nodes can never carry it.
func indexOf(options []string, name string) int {
	if name == core.EndName {
		for i, o := range options {
			if o == core.EndName {
				return i
			}
		}
		return -1
	}
	for i, o := range options {
		if o == name {
			return i
		}
	}
	return -1
}
