// shiftctl административная утилита: миграции, ручной проход планировщика,
// расчёт холда и выпуск токенов для локальной разработки.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
)

// app общие зависимости команд. Конфигурация читается один раз в PersistentPreRunE.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{ctx: ctx}
	rootCmd := &cobra.Command{
		Use:           "shiftctl",
		Short:         "Администрирование сервиса смен",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			logger.Init(level)
			logger.SetTextFormatter()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "подробный лог")

	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(sweepCmd(a))
	rootCmd.AddCommand(quoteCmd(a))
	rootCmd.AddCommand(tokenCmd(a))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
