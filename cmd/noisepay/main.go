package main

import (
	"os"

	"noisepay/cmd/noisepay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
