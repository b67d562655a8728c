package services

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrCatalogUnavailable means the city list could not be read or held no usable entries.
var ErrCatalogUnavailable = errors.New("city catalog unavailable")

// LoadCatalog reads one city identifier per line, ignoring blank lines and surrounding whitespace.
func LoadCatalog(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()

	var cities []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		cities = append(cities, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCatalogUnavailable, path, err)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("%w: %s has no cities", ErrCatalogUnavailable, path)
	}
	return cities, nil
}
