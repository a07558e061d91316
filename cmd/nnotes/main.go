package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nnotes/internal"
	pkgconfig "github.com/starford/nnotes/pkg/config"
)

var version = "dev"

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("data"); dir != "" {
		cfg.Data.Path = dir
	}

	req, err := internal.ParseRequest(internal.Flags{
		List:    cmd.Bool("list"),
		Delete:  cmd.String("delete"),
		Rebuild: cmd.Bool("rebuild"),
		Sync:    cmd.Bool("sync"),
		Reindex: cmd.String("reindex"),
		Watch:   cmd.Bool("watch"),
		MCP:     cmd.Bool("mcp"),
	}, cmd.Args().Slice())
	if errors.Is(err, internal.ErrUsage) {
		fmt.Println("Invalid number of arguments")
		fmt.Println(internal.Usage)
		return nil
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, req, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "nnotes",
		Usage:     "Local note keeper with ranked full-text search",
		ArgsUsage: "[<query> | <title> <content>]",
		Version:   version,
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "$XDG_CONFIG_HOME/nnotes/config.yaml",
				Value:       internal.DefaultConfigPath(),
				Sources:     cli.EnvVars("NNOTES_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "data",
				Usage:   "Data directory holding notes.json and the index",
				Sources: cli.EnvVars("NNOTES_DATA_DIR"),
			},
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List all notes",
			},
			&cli.StringFlag{
				Name:    "delete",
				Aliases: []string{"d"},
				Usage:   "Delete the note with the given id",
			},
			&cli.BoolFlag{
				Name:  "rebuild",
				Usage: "Rebuild the search index from notes.json",
			},
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "Repair drift between notes.json and the index",
			},
			&cli.StringFlag{
				Name:  "reindex",
				Usage: "Re-index the note with the given id",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep the index in sync with notes.json until interrupted",
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Serve note tools over MCP on stdio",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
