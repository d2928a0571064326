package main

import (
	"os"

	"github.com/psantana5/crashtrace/cmd/crashtrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
