package main

import (
	"os"

	"github.com/wonny/ifrs9-ccf/cmd/ccf/commands"
)

// main is the entry point for the CCF CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/ccf [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
