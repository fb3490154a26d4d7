package main

import (
	"github.com/vulnsight/vulnsight/cmd"
)

// main is the entry point for the VulnSight CLI and API server.
func main() {
	cmd.Execute()
}
