package main

import (
	"log/slog"
	"os"

	"github.com/metinatakli/design-storefront/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		slog.Error("checkout service stopped", "error", err)
		os.Exit(1)
	}
}
