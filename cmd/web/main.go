// Command web runs the tabular data analysis API server.
package main

import (
	"context"
	"fmt"
	"os"

	"datalens/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
