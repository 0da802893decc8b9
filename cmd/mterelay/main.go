package main

import (
	"os"

	"mterelay/cmd/mterelay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
