package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"
	_ "github.com/joho/godotenv/autoload"

	"github.com/jacksongrove/impossibly/config"
	"github.com/jacksongrove/impossibly/logging"
	"github.com/jacksongrove/impossibly/model/provider"
)

const usage = `impossibly - run a graph of LLM agents

Prerequisites:
  - Set OPENAI_API_KEY and/or ANTHROPIC_API_KEY (a .env file in the working directory is loaded)
  - (Optional) Set the NO_COLOR environment variable to disable ansi color output

Usage: impossibly [flags] <prompt>

Flags:
  -f, -file string        Graph definition file or directory of .hcl files (required)
  -thinking bool          Print every agent's prompts before it is called (default false)
  -log-level string       One of debug, info, warn, error (default "warn")
  -log-format string      One of text, json (default "text")

Examples:
  - impossibly -f examples/mixture_of_experts/graph.hcl "Solve x + 1 = 2"
  - impossibly -thinking -f ./graphs "Summarize the French revolution"
`

var errMissingPrompt = errors.New("missing prompt")

// modelFactory is swapped in tests.
var modelFactory config.ModelFactory = provider.New

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("impossibly", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var file string
	fs.StringVar(&file, "f", "", "graph definition path")
	fs.StringVar(&file, "file", "", "graph definition path")
	thinking := fs.Bool("thinking", false, "print agent prompts")
	logLevel := fs.String("log-level", "warn", "log level")
	logFormat := fs.String("log-format", "text", "log format")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		return 1
	}
	logger := logging.NewSlogLogger(level, *logFormat, false).WithComponent("cli")

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancel()
	go func() { shutdown.Monitor(cancel) }()

	out, err := execute(ctx, file, strings.Join(fs.Args(), " "), *thinking, logger)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to run: %v\n", err))
		if errors.Is(err, errMissingPrompt) {
			fs.Usage()
		}
		return 1
	}

	fmt.Println(out)
	return 0
}

func execute(ctx context.Context, file, prompt string, thinking bool, logger logging.Logger) (string, error) {
	if file == "" {
		return "", errors.New("missing graph definition, set -f")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errMissingPrompt
	}

	def, err := config.NewLoader().Load(ctx, file)
	if err != nil {
		return "", err
	}
	if len(def.Agents) == 0 {
		return "", fmt.Errorf("no agents defined in %s", file)
	}

	g, err := config.Build(def, func(o *config.BuildOptions) {
		o.Logger = logger
		o.ModelFactory = modelFactory
	})
	if err != nil {
		return "", err
	}

	return g.Invoke(ctx, prompt, thinking)
}
