package main

import (
	"os"

	"github.com/TheusHen/dhmitm/cmd/dhmitm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
