package main

import (
	"context"
	"os"

	"github.com/desertthunder/spindb/internal/shared"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.App().Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
