package main

import (
	"fmt"
	"os"

	"voicebox/cmd"
	"voicebox/pkg/build"
)

func main() {
	build.Initialize()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
