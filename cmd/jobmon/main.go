package main

import (
	"os"

	"github.com/ytget/jobmon/cmd/jobmon/commands"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	if err := commands.NewCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
