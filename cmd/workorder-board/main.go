package main

import (
	"os"

	"workorder-board/cmd/workorder-board/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
