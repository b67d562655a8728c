package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"home-scraper/models"
)

var csvHeader = []string{
	"partition", "detail_url", "value", "beds", "baths", "square_footage",
	"address", "city_state_zipcode", "urls", "scraped_at",
}

// CSVWriter appends stored properties to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens (or creates) the CSV file at path in append mode and
// writes the header row when the file is new. Intermediate directories are
// created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w}, nil
}

// Append writes one row for p.
func (c *CSVWriter) Append(p *models.Property, partition string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := []string{
		partition,
		p.DetailURL,
		strconv.FormatFloat(p.Value, 'f', -1, 64),
		p.Beds,
		p.Baths,
		p.SquareFootage,
		p.Address,
		p.CityStateZipcode,
		strings.Join(p.URLs, " "),
		p.ScrapedAt.UTC().Format(time.RFC3339),
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

// ExportingStore tees every successful insert into a CSVWriter.
// Export failures are reported through onError and never fail the insert.
type ExportingStore struct {
	PropertyStore
	csv     *CSVWriter
	onError func(error)
}

// NewExportingStore wraps inner. onError may be nil.
func NewExportingStore(inner PropertyStore, csv *CSVWriter, onError func(error)) *ExportingStore {
	if onError == nil {
		onError = func(error) {}
	}
	return &ExportingStore{PropertyStore: inner, csv: csv, onError: onError}
}

func (e *ExportingStore) Insert(ctx context.Context, p *models.Property, partition string) (string, error) {
	id, err := e.PropertyStore.Insert(ctx, p, partition)
	if err != nil {
		return "", err
	}
	if err := e.csv.Append(p, partition); err != nil {
		e.onError(err)
	}
	return id, nil
}

// Close closes the CSV file and then the wrapped store.
func (e *ExportingStore) Close() error {
	csvErr := e.csv.Close()
	if err := e.PropertyStore.Close(); err != nil {
		return err
	}
	return csvErr
}
