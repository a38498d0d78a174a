package main

import (
	"os"

	"github.com/mmynk/payup/cmd/payup/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
