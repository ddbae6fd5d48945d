package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scorekeeper/internal/app"
	"scorekeeper/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sk",
	Short: "Scorekeeper CLI",
	Long: `Scorekeeper scores team matches of a multi-stage tournament.
- Workspace: a directory holding settings.yml and the data directory (or .scorekeeper/scorekeeper.db for the sqlite backend).
- Stages: ordered tournament phases (practice, qualifying, finals); stages without rounds are hidden from scorers.
- Challenge: the missions of the field, their objectives and the Lua score functions that turn objectives into points.
- Score: flat mission points, multiplied by the percentage bonuses of bonus missions, plus the flat points of those bonus missions.
- Scores: every saved sheet is written as a detail file and registered in scores.json, optionally with a signed receipt.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error:"), err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load(filepath.Join(viper.GetString("workspace"), ".env"))
	viper.SetEnvPrefix("SCOREKEEPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("challenge", "", "challenge selector (overrides settings.yml)")
	rootCmd.PersistentFlags().String("receipt-secret", "", "receipt signing secret (overrides settings.yml)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("challenge", rootCmd.PersistentFlags().Lookup("challenge"))
	_ = viper.BindPFlag("receipt-secret", rootCmd.PersistentFlags().Lookup("receipt-secret"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(stagesCmd())
	rootCmd.AddCommand(scoresCmd())
	rootCmd.AddCommand(challengeCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(documentsCmd())
}

func initCmd() *cobra.Command {
	var tournament string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default settings.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(tournament)), 0o644); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("CREATED"), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&tournament, "tournament", "Tournament", "tournament name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings.yml")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect workspace settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(loadConfig(newLogger()))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate settings.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := config.Load(workspace); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("OK"), config.Path(workspace))
			return nil
		},
	})
	return cmd
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if viper.GetString("log-format") == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig resolves settings.yml and applies flag and env overrides.
func loadConfig(logger *slog.Logger) *config.Config {
	cfg := app.ResolveConfig(viper.GetString("workspace"), logger)
	if v := viper.GetString("challenge"); v != "" {
		cfg.Challenge = v
	}
	if v := viper.GetString("receipt-secret"); v != "" {
		cfg.Receipts.Secret = v
	}
	return cfg
}

func withServices(ctx context.Context, fn func(context.Context, *app.Services) error) error {
	logger := newLogger()
	svc, err := app.Init(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Config:    loadConfig(logger),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
