package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/apperr"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

// loadConfig reads the config file over the built-in defaults. A missing
// default file is fine; an explicitly passed path must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadIfPresent(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunCheck(ctx,
		internal.WithConfig(cfg),
		internal.WithCheckOptions(internal.CheckOptions{
			Strict:         cmd.Bool("strict"),
			FailOnWarnings: cmd.Bool("fail-on-warnings"),
			Format:         cmd.String("format"),
			Output:         cmd.String("output"),
		}),
	)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Documentation knowledge-graph validator with REST, SSE, and MCP surfaces",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Validate the corpus once and render a health report",
				Action: runCheck,
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Exit nonzero when broken links exist",
					},
					&cli.BoolFlag{
						Name:  "fail-on-warnings",
						Usage: "Exit nonzero when ambiguous or unresolved references or orphans exist",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format: json or markdown",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the latest validation report over REST and SSE, revalidating on corpus changes",
				Action: runServe,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "mcp",
				Usage:  "Expose validation tools over the Model Context Protocol on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrGateFailed) {
			slog.Error("check failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(2)
	}
}
