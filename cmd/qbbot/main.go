package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("qbbot"),
		kong.Description("qbbot - quiz-bowl game engine"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
