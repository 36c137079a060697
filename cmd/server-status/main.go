// Command server-status keeps live Hell Let Loose server status messages
// on Discord, fed from each server's CRCON API.
//
// Usage:
//
//	server-status run --config-dir config --db data/messages.db
//	server-status validate --config-dir config
//	server-status render --config config/eu-1.yaml --section gamestate
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hlltools/server-status/internal/config"
	"github.com/hlltools/server-status/internal/crcon"
	"github.com/hlltools/server-status/internal/discord"
	"github.com/hlltools/server-status/internal/display"
	"github.com/hlltools/server-status/internal/logging"
	"github.com/hlltools/server-status/internal/refresh"
	"github.com/hlltools/server-status/internal/store"
	"github.com/hlltools/server-status/internal/web"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "server-status",
		Short:         "Live HLL server status messages on Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(renderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		configDir string
		dbPath    string
		listen    string
		logFile   string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the refresh loops for every configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			cleanup, err := logging.Setup(level, logFile)
			if err != nil {
				return err
			}
			defer cleanup()
			logger := slog.Default()

			configs, err := config.LoadDir(configDir)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			messages, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer messages.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runner := refresh.NewRunner(logger)

			for _, cfg := range configs {
				serverLogger := logger.With("server", cfg.ServerIdentifier)

				client, err := newClient(cfg, serverLogger)
				if err != nil {
					return err
				}
				if err := client.Login(ctx); err != nil {
					// The client re-authenticates on demand; start anyway.
					serverLogger.Warn("initial login failed", "error", err)
				}

				publisher, err := discord.NewPublisher(
					cfg.Discord.WebhookURL, cfg.ServerIdentifier, messages, serverLogger)
				if err != nil {
					return fmt.Errorf("%s: %w", cfg.ServerIdentifier, err)
				}

				builder := display.New(cfg, client, serverLogger)
				runner.StartServer(ctx, cfg, builder,
					func(ctx context.Context, section string, msg display.Message) error {
						return publisher.Publish(ctx, section, msg.Content, msg.Embed)
					})
			}

			if listen != "" {
				go func() {
					if err := web.Serve(ctx, listen, runner, logger); err != nil {
						logger.Error("status server stopped", "error", err)
					}
				}()
			}

			logger.Info("server-status running", "servers", len(configs))
			<-ctx.Done()
			runner.Wait()
			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "config", "directory of per-server YAML configs")
	cmd.Flags().StringVar(&dbPath, "db", "data/messages.db", "path of the message ID database")
	cmd.Flags().StringVar(&listen, "listen", "", "address for /healthz and /status (disabled when empty)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also log JSON to this rotating file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// --------------------------------------------------------------------------
// validate command
// --------------------------------------------------------------------------

func validateCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := config.LoadDir(configDir)
			if err != nil {
				return err
			}
			for _, cfg := range configs {
				fmt.Printf("ok: %s (%s)\n", cfg.ServerIdentifier, cfg.API.BaseServerURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "config", "directory of per-server YAML configs")
	return cmd
}

// --------------------------------------------------------------------------
// render command
// --------------------------------------------------------------------------

func renderCmd() *cobra.Command {
	var (
		configPath string
		section    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one section to stdout without touching Discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logging.Setup(slog.LevelWarn, ""); err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			client, err := newClient(cfg, slog.Default())
			if err != nil {
				return err
			}
			if err := client.Login(ctx); err != nil {
				return err
			}

			builder := display.New(cfg, client, slog.Default())

			var msg display.Message
			switch section {
			case refresh.SectionHeader:
				msg, err = builder.Header(ctx)
			case refresh.SectionGamestate:
				msg, err = builder.Gamestate(ctx)
			case refresh.SectionRotationColor:
				msg, err = builder.MapRotationColor(ctx)
			case refresh.SectionRotationEmbed:
				msg, err = builder.MapRotationEmbed(ctx)
			default:
				return fmt.Errorf("unknown section %q", section)
			}
			if err != nil {
				return err
			}

			if msg.Content != "" {
				fmt.Println(msg.Content)
				return nil
			}
			out, err := json.MarshalIndent(msg.Embed, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "server config file (required)")
	cmd.Flags().StringVar(&section, "section", refresh.SectionGamestate,
		"section to render: header, gamestate, map_rotation_color, map_rotation_embed")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func newClient(cfg *config.Config, logger *slog.Logger) (*crcon.Client, error) {
	client, err := crcon.NewClient(
		cfg.API.BaseServerURL, cfg.API.Username, cfg.API.Password,
		cfg.API.RequestsPerMinute, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.ServerIdentifier, err)
	}
	return client, nil
}
