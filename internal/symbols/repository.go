package symbols

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jlindqvist/weektrack/pkg/logger"
)

// Repository stores named watchlists and per-symbol metadata in Postgres.
// Prices are never persisted here; only symbol bookkeeping lives in the
// database.
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a new symbols repository.
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: log.WithField("module", "symbols"),
	}
}

// GetList returns the symbols of a named watchlist in stored order.
func (r *Repository) GetList(ctx context.Context, name string) ([]string, error) {
	query := `
		SELECT symbol
		FROM watchlist_symbols
		WHERE list_name = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("query watchlist %q: %w", name, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist rows: %w", err)
	}

	return symbols, nil
}

// SaveList replaces a named watchlist atomically.
func (r *Repository) SaveList(ctx context.Context, name string, symbols []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM watchlist_symbols WHERE list_name = $1", name); err != nil {
		return fmt.Errorf("clear watchlist %q: %w", name, err)
	}

	query := `
		INSERT INTO watchlist_symbols (list_name, position, symbol)
		VALUES ($1, $2, $3)
	`
	for i, symbol := range symbols {
		if _, err := tx.Exec(ctx, query, name, i, symbol); err != nil {
			return fmt.Errorf("insert watchlist symbol %q: %w", symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit watchlist %q: %w", name, err)
	}

	r.logger.WithFields(map[string]interface{}{
		"list":    name,
		"symbols": len(symbols),
	}).Info("Watchlist saved")
	return nil
}

// ListNames returns all stored watchlist names.
func (r *Repository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT list_name FROM watchlist_symbols ORDER BY list_name")
	if err != nil {
		return nil, fmt.Errorf("query watchlist names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan watchlist name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist names: %w", err)
	}

	return names, nil
}

// GetMetadata loads stored attributes for the given symbols, keyed by
// symbol then attribute name. Symbols without rows simply have no entry.
func (r *Repository) GetMetadata(ctx context.Context, symbols []string) (map[string]map[string]string, error) {
	if len(symbols) == 0 {
		return map[string]map[string]string{}, nil
	}

	query := `
		SELECT symbol, name, value
		FROM symbol_metadata
		WHERE symbol = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, symbols)
	if err != nil {
		return nil, fmt.Errorf("query symbol metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var symbol, name, value string
		if err := rows.Scan(&symbol, &name, &value); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		if out[symbol] == nil {
			out[symbol] = make(map[string]string)
		}
		out[symbol][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata rows: %w", err)
	}

	return out, nil
}

// UpsertMetadata stores attributes for one symbol, overwriting existing
// values per attribute name.
func (r *Repository) UpsertMetadata(ctx context.Context, symbol string, attrs map[string]string) error {
	query := `
		INSERT INTO symbol_metadata (symbol, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	for name, value := range attrs {
		if _, err := r.pool.Exec(ctx, query, symbol, name, value); err != nil {
			return fmt.Errorf("upsert metadata %s.%s: %w", symbol, name, err)
		}
	}
	return nil
}
