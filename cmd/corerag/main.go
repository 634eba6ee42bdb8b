// Command corerag is the single entrypoint for the document ingestion
// pipeline and retrieval-augmented query API: `corerag serve` runs the
// HTTP API, `corerag run-worker` runs the ingestion worker pool, and
// `corerag migrate`/`verify-db` manage the database schema.
package main

import (
	"fmt"
	"os"

	"github.com/jharjadi/pro-rag/core-api-go/cmd/corerag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
