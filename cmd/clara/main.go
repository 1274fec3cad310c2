// Clara is a personal assistant: a conversational agent that executes
// memory and filesystem directives embedded in model replies.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
