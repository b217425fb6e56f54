package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/crew-shifts-backend/internal/domain/repository"
	"github.com/ignatzorin/crew-shifts-backend/internal/repository/common"
)

// queries общие запросы для подключения и транзакции.
type queries struct {
	ext sqlx.ExtContext
}

// Ledger реализует хранилище смен поверх PostgreSQL.
type Ledger struct {
	*queries
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{queries: &queries{ext: db}, db: db}
}

// WithTx выполняет fn в одной транзакции. Любая ошибка откатывает все изменения.
func (l *Ledger) WithTx(ctx context.Context, fn func(tx domainrepo.LedgerTx) error) error {
	return common.WithTransaction(ctx, l.db, func(tx *sqlx.Tx) error {
		return fn(&queries{ext: tx})
	})
}

var (
	_ domainrepo.Ledger   = (*Ledger)(nil)
	_ domainrepo.LedgerTx = (*queries)(nil)
)
