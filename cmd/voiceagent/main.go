// Command voiceagent runs realtime voice lead-capture conversations.
//
// Usage:
//
//	voiceagent [flags] <command> [args]
//
// Commands:
//
//	call          - Voice conversation (Ogg/Opus file in, Ogg/Opus file out)
//	chat          - Text conversation over the WebSocket transport
//	token-server  - Serve ephemeral session tokens over HTTP
//	history       - Show or clear saved conversations
//	config        - Configuration management (contexts, services)
//	version       - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/voiceagent/cmd/voiceagent/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
