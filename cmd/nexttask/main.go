package main

import (
	"os"

	"github.com/nhle/nexttask/internal/app"
)

func main() {
	if err := app.Execute(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
