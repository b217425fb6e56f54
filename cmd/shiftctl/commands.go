package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/crew-shifts-backend/internal/db"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/escrow"
	"github.com/ignatzorin/crew-shifts-backend/internal/goroutine"
	"github.com/ignatzorin/crew-shifts-backend/internal/payment"
	"github.com/ignatzorin/crew-shifts-backend/internal/queue"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/service"
)

func (a *app) openDB() (*sqlx.DB, error) {
	return db.NewPostgres(a.ctx, a.cfg.DatabaseURL)
}

func migrateCmd(a *app) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Применить SQL миграции (--status только показывает состояние)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			if statusOnly {
				states, err := db.MigrationStatus(a.ctx, conn, a.cfg.MigrationsPath)
				if err != nil {
					return err
				}
				for _, st := range states {
					mark := " "
					if st.Applied {
						mark = "x"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, st.Name)
				}
				return nil
			}

			applied, err := db.RunMigrations(a.ctx, conn, a.cfg.MigrationsPath)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "применена %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "новых миграций нет")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "показать состояние миграций")
	return cmd
}

func sweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Один проход планировщика: закрытие смен, таймауты подтверждения, повтор холдов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			ledger := repository.NewLedger(conn)
			var gateway service.PaymentGateway = payment.NewSimulatedGateway()
			if a.cfg.PaymentDriver == "amqp" {
				gateway = payment.NewQueueGateway(queue.NewPublisher(a.cfg.RabbitMQURL))
			}
			notifications := service.NewNotificationService(repository.NewNotificationRepository(conn))

			escrowService := service.NewEscrowService(ledger, gateway, a.cfg.Policy.AdapterTimeout)
			shiftService := service.NewShiftService(ledger, escrowService, notifications, a.cfg.Policy)
			jobs := service.NewSweepJobs(ledger, shiftService, escrowService, a.cfg.Policy)

			report, err := jobs.RunOnce(cmd.Context())
			// Уведомления уходят в фоне, дожидаемся их до выхода.
			goroutine.DefaultRecoveryHandler.Wait()
			if encErr := printJSON(cmd, report); encErr != nil {
				return encErr
			}
			return err
		},
	}
}

func quoteCmd(a *app) *cobra.Command {
	var (
		workers    int
		rate       int64
		commission string
		paid       int
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Рассчитать холд и распределение выплаты",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			percent := a.cfg.Policy.DefaultCommission
			if commission != "" {
				p, err := decimal.NewFromString(commission)
				if err != nil {
					return fmt.Errorf("commission: %w", err)
				}
				percent = p
			}

			q, err := escrow.Compute(workers, rate, percent)
			if err != nil {
				return err
			}
			if paid < 0 {
				paid = workers
			}
			settlement, err := escrow.Settle(q, paid)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"quote":      q,
				"settlement": settlement,
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "количество работников")
	cmd.Flags().Int64Var(&rate, "rate", 0, "ставка на работника в минимальных единицах")
	cmd.Flags().StringVar(&commission, "commission", "", "процент комиссии (по умолчанию DEFAULT_COMMISSION_PERCENT)")
	cmd.Flags().IntVar(&paid, "paid", -1, "сколько работников получают выплату (по умолчанию все)")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить access токен (локальная разработка)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := valueobject.Actor(role)
			if !actor.IsValid() || actor == valueobject.ActorSystem {
				return fmt.Errorf("role: ожидается client, worker или admin, получено %q", role)
			}
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("user: %w", err)
				}
				id = parsed
			}

			token, exp, err := service.NewTokenManager(a.cfg.JWTSecret, ttl).Issue(id, actor)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"user_id":    id,
				"role":       actor,
				"token":      token,
				"expires_at": exp.UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "UUID пользователя (по умолчанию новый)")
	cmd.Flags().StringVar(&role, "role", string(valueobject.ActorClient), "роль: client, worker, admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "срок жизни токена")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
