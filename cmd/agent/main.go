package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/mcagent/internal/agent"
	"github.com/l1jgo/mcagent/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var logLevel string
	var dataDir string

	root := &cobra.Command{
		Use:   "mcagent",
		Short: "autonomous Minecraft-playing agent control plane",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config/agent.toml", "path to the TOML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level from the config file")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory for persisted JSON state (locations, todo list, thinking log)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "load config, wire the agent, and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cfgPath, dataDir, logLevel)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate-config",
		Short: "create or migrate the config file at --config to the current version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateConfig(cfgPath)
		},
	}

	root.AddCommand(runCmd, migrateCmd)
	root.RunE = runCmd.RunE
	return root
}

func migrateConfig(cfgPath string) error {
	migrated, err := config.Migrate(cfgPath)
	if err != nil {
		return fmt.Errorf("migrate config: %w", err)
	}
	if migrated {
		fmt.Printf("migrated %s to the current version (backup saved alongside it)\n", cfgPath)
	} else {
		fmt.Printf("%s is already up to date\n", cfgPath)
	}
	return nil
}

func runAgent(cfgPath, dataDir, logLevelOverride string) error {
	if _, err := config.Migrate(cfgPath); err != nil {
		return fmt.Errorf("migrate config: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevelOverride != "" {
		cfg.Logging.Level = logLevelOverride
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Bot.BotName)

	printSection("wiring")
	a, err := agent.New(log, cfg, dataDir)
	if err != nil {
		return fmt.Errorf("wire agent: %w", err)
	}
	printOK("subsystems wired")

	mux := http.NewServeMux()
	a.WS.Register(mux)
	addr := "0.0.0.0:8766"
	if cfg.API != nil && cfg.API.Host != "" {
		addr = fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	}
	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("websocket server stopped", zap.Error(err))
		}
	}()
	printReady(fmt.Sprintf("websocket server listening on %s", addr))
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- a.Run(ctx) }()

	select {
	case sig := <-shutdownCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-runErrCh
		_ = httpSrv.Close()
		log.Info("agent stopped")
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent run loop: %w", err)
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(botName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           mcagent control plane           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mbot:\033[0m %s\n\n", botName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}
