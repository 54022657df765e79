// Command compatctl manages compatibility data from the command line against the
// same storage backend the server uses.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/compat/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
