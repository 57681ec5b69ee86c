// Command runready is the runtime readiness analyzer CLI and MCP server.
package main

import (
	"os"

	"github.com/runready/runready/cmd/runready/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
