package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if path := os.Getenv("LAPX_CONFIG"); path != "" {
		configPath = path
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	fs := afero.NewOsFs()
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Fs:         fs,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "lapx",
		Usage:    "Create, open, package and back up chart projects",
		Version:  "0.1.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))
			}
			return ctx, nil
		},
	}

	args := rewriteArgs(os.Args, func(path string) bool {
		ok, _ := afero.Exists(fs, path)
		return ok
	})
	if err := app.Run(context.Background(), args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			runner.Close()
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
