package main

import (
	"context"
	"os"

	"github.com/okian/poirisk/internal/probe"
)

func main() {
	if err := probe.Command().Run(context.Background(), os.Args); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
