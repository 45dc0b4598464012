package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/models"
)

const tickerPriceSchema = `
	CREATE TABLE IF NOT EXISTS ticker_price_cache (
		symbol     TEXT PRIMARY KEY,
		price      DOUBLE PRECISION NOT NULL,
		currency   TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)
`

type TickerPriceRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

func NewTickerPriceRepository(db *sqlx.DB, logger *logger.Logger) *TickerPriceRepository {
	return &TickerPriceRepository{db: db, logger: logger}
}

// EnsureSchema creates the ticker_price_cache table when missing.
func (r *TickerPriceRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, tickerPriceSchema)
	return err
}

func (r *TickerPriceRepository) Get(ctx context.Context, symbol string) (models.TickerPriceRecord, bool, error) {
	const query = `
		SELECT symbol, price, currency, fetched_at
		FROM ticker_price_cache
		WHERE symbol = $1
	`

	var record models.TickerPriceRecord
	err := r.db.GetContext(ctx, &record, query, symbol)

	r.logQuery(query, []any{symbol}, err)

	if errors.Is(err, sql.ErrNoRows) {
		return models.TickerPriceRecord{}, false, nil
	}
	if err != nil {
		return models.TickerPriceRecord{}, false, err
	}
	return record, true, nil
}

func (r *TickerPriceRepository) Upsert(ctx context.Context, record models.TickerPriceRecord) error {
	const query = `
		INSERT INTO ticker_price_cache (symbol, price, currency, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE
		SET price = EXCLUDED.price,
		    currency = EXCLUDED.currency,
		    fetched_at = EXCLUDED.fetched_at
	`
	args := []any{record.Symbol, record.Price, record.Currency, record.FetchedAt}

	_, err := r.db.ExecContext(ctx, query, args...)

	r.logQuery(query, args, err)
	return err
}

func (r *TickerPriceRepository) logQuery(query string, args []any, err error) {
	r.logger.WithFields(logrus.Fields{
		"query": strings.Join(strings.Fields(query), " "),
		"args":  args,
		"error": err,
	}).Debug("ticker price query")
}
