// Package main is the operator CLI: offline scoring and fallback checks, database
// migrations, feedback export/import and desktop MCP client registration.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
