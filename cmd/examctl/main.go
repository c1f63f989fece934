// Command examctl is the operator CLI: schema migrations, admin accounts and
// exam-day reports read straight from the configured storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"examsite/internal/app"
	"examsite/internal/platform/config"
	"examsite/internal/platform/logger"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg, err := config.Load(os.Getenv("EXAMSITE_ENV_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "examctl: load config:", err)
		return 1
	}
	// Migrations are explicit here.
	cfg.Database.AutoMigrate = false
	if cfg.Log.Level == "" || cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	log := logger.NewWithWriter(os.Stderr, cfg)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "examctl:", err)
		return 1
	}
	defer a.Close()

	cli := &commandLine{
		out:     os.Stdout,
		logger:  log,
		db:      a.DB,
		users:   a.Auth,
		reports: a.Scheduling,
	}
	if err := cli.run(ctx, args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, "examctl:", err)
		}
		return 1
	}
	return 0
}
