package main

import (
	"os"

	"github.com/hbomb79/mediascan/internal/cli"
)

// main is the entry point of mediascan; the exit code reflects
// whether the command completed successfully.
func main() {
	os.Exit(cli.Execute())
}
