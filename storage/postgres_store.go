package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"

	"home-scraper/models"
)

// PostgresStore keeps one table per partition in PostgreSQL.
type PostgresStore struct {
	db *sql.DB

	mu       sync.Mutex
	migrated map[string]bool
}

// NewPostgresStore opens a connection to PostgreSQL and waits for it to accept pings.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &PostgresStore{db: db, migrated: make(map[string]bool)}, nil
}

// EnsureIndexes creates the partition table and its indexes on first use.
func (ps *PostgresStore) EnsureIndexes(ctx context.Context, partition string) error {
	if err := ValidatePartition(partition); err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.migrated[partition] {
		return nil
	}

	table := pq.QuoteIdentifier(partition)
	_, err := ps.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id                 BIGSERIAL    PRIMARY KEY,
			urls               TEXT[]       NOT NULL DEFAULT '{}',
			value              NUMERIC(14,2) NOT NULL DEFAULT 0,
			beds               TEXT         NOT NULL DEFAULT '',
			baths              TEXT         NOT NULL DEFAULT '',
			square_footage     TEXT         NOT NULL DEFAULT '',
			address            TEXT         NOT NULL DEFAULT '',
			city_state_zipcode TEXT         NOT NULL DEFAULT '',
			detail_url         TEXT         UNIQUE NOT NULL,
			scraped_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			version            VARCHAR(16)  NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s(scraped_at DESC);
		CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s(city_state_zipcode);
	`, table,
		pq.QuoteIdentifier("idx_"+partition+"_scraped_at"),
		pq.QuoteIdentifier("idx_"+partition+"_locality"),
	))
	if err != nil {
		return fmt.Errorf("postgres: migrate %s: %w", partition, err)
	}
	ps.migrated[partition] = true
	return nil
}

// Exists reports whether detailURL is stored in partition.
func (ps *PostgresStore) Exists(ctx context.Context, detailURL, partition string) (bool, error) {
	if err := ps.EnsureIndexes(ctx, partition); err != nil {
		return false, err
	}
	var exists bool
	err := ps.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE detail_url = $1)`, pq.QuoteIdentifier(partition)),
		detailURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: exists in %s: %w", partition, err)
	}
	return exists, nil
}

// Insert stores p in partition and returns the generated row id.
func (ps *PostgresStore) Insert(ctx context.Context, p *models.Property, partition string) (string, error) {
	if err := ps.EnsureIndexes(ctx, partition); err != nil {
		return "", err
	}

	var id int64
	err := ps.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (urls, value, beds, baths, square_footage, address, city_state_zipcode, detail_url, scraped_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, pq.QuoteIdentifier(partition)),
		pq.Array(p.URLs), p.Value, p.Beds, p.Baths, p.SquareFootage,
		p.Address, p.CityStateZipcode, p.DetailURL, p.ScrapedAt, p.Version,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, p.DetailURL)
		}
		return "", fmt.Errorf("postgres: insert into %s: %w", partition, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
