// Command aiconfig runs, previews and serves the prompts of aiconfig
// documents.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
