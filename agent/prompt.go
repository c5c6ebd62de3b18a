package agent

import (
	"fmt"
	"strings"

	"github.com/jacksongrove/impossibly/core"
	"github.com/jacksongrove/impossibly/routing"
)

const routingOptionsHeader = "## Routing Options:\n\tPrint ONE of the following commands after your response to send your response to that agent. You are required to choose one."

// AssemblePrompt builds the history entry recorded for one invocation.
func AssemblePrompt(system, chat string, edges []core.Node) string {
	return fmt.Sprintf("## System Prompt: %s\n\n## Chat Prompt: %s\n\n%s", system, chat, RoutingBlock(edges))
}

// RoutingBlock tells the model where its reply can go. With several edges it
// lists one routing command per destination; with a single edge it discloses
// the fixed destination; with none it is empty.
func RoutingBlock(edges []core.Node) string {
	switch len(edges) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("## Routing Disclosure: Your response will be routed to '%s'\tDescription: %s",
			edges[0].Name(), edges[0].Description())
	}

	var b strings.Builder
	b.WriteString(routingOptionsHeader)
	for _, e := range edges {
		fmt.Fprintf(&b, "\n\tCommand: '%s'\tDescription: %s", routing.Command(e.Name()), e.Description())
	}
	return b.String()
}
