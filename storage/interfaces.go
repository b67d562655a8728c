package storage

import (
	"context"

	"home-scraper/models"
)

// PropertyStore is the interface any storage backend must satisfy.
// partition names the logical collection (one per market) an operation targets.
type PropertyStore interface {
	Exists(ctx context.Context, detailURL, partition string) (bool, error)
	Insert(ctx context.Context, p *models.Property, partition string) (string, error)
	Close() error
}
