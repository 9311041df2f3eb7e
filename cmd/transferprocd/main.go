package main

import (
	"log/slog"
	"os"

	"github.com/connectorhq/transferproc/cmd/transferprocd/commands"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
