package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dverbovs/casekeeper/internal/client/cli"
	"github.com/dverbovs/casekeeper/internal/client/config"
	"github.com/dverbovs/casekeeper/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx)
}
