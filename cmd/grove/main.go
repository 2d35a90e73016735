package main

import (
	"os"

	"grove/cmd/grove/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
