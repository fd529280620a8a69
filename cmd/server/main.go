// Command server запускает API JobAutomate и служебные команды.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobautomate-backend/internal/config"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "JobAutomate backend",
	Long:          "API автоматизации откликов на вакансии France Travail: serve, migrate и отладочный поиск офферов.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap загружает конфигурацию и инициализирует логгер.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	return cfg, nil
}
