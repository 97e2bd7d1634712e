package main

import (
	"os"

	opsgraphcmder "github.com/opsgraph/opsgraph/cmd/opsgraph"
)

func main() {
	cmd := opsgraphcmder.NewOpsgraphCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
