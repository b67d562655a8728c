package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"home-scraper/models"
	"home-scraper/utils"
)

// MaxValue is the largest listing value accepted, in the market's currency.
const MaxValue = 20_000_000

// minImages is the smallest number of distinct large photos a genuine listing page carries.
const minImages = 3

var (
	ErrNoRecord         = errors.New("no usable record")
	ErrTooFewImages     = fmt.Errorf("%w: too few listing images", ErrNoRecord)
	ErrIncompleteFields = fmt.Errorf("%w: required fields missing", ErrNoRecord)
	ErrInvalidValue     = fmt.Errorf("%w: value not a number in range", ErrNoRecord)
)

var currencyReplacer = strings.NewReplacer("C$", "", "CAD", "", "$", "", ",", "", " ", "", "\u00a0", "")

// Extractor turns detail-page markup into a Property by running an ordered chain of strategies.
// It holds no mutable state, so the same markup always yields the same result.
type Extractor struct {
	logger     *utils.Logger
	strategies []Strategy
}

// NewExtractor creates an Extractor with the default strategy chain:
// combined pass, field-by-field fallback, then title backfill.
func NewExtractor(logger *utils.Logger) *Extractor {
	return NewExtractorWith(logger, CombinedStrategy{}, FieldStrategy{}, TitleStrategy{})
}

// NewExtractorWith creates an Extractor that runs strategies in the given order.
func NewExtractorWith(logger *utils.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{logger: logger, strategies: strategies}
}

// Extract returns the Property found in markup, or an error wrapping ErrNoRecord.
// The returned Property has no DetailURL, ID or capture metadata yet.
func (e *Extractor) Extract(markup string, region models.Region) (*models.Property, error) {
	images := collectImages(markup)
	if len(images) < minImages {
		return nil, fmt.Errorf("%w (found %d)", ErrTooFewImages, len(images))
	}

	doc := &Document{Markup: markup, Title: pageTitle(markup), Region: region}

	var fields Fields
	for _, s := range e.strategies {
		got, ok := s.Attempt(doc)
		if !ok {
			e.logger.Debug("[extractor] strategy %s did not match", s.Name())
			continue
		}
		fields.fill(got)
		if fields.Complete() {
			e.logger.Debug("[extractor] fields complete after strategy %s", s.Name())
			break
		}
	}

	if !fields.Complete() {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteFields, missing(fields))
	}

	value, err := parseValue(fields.Value)
	if err != nil {
		return nil, err
	}

	return &models.Property{
		URLs:             images,
		Value:            value,
		Beds:             fields.Beds,
		Baths:            fields.Baths,
		SquareFootage:    fields.Area,
		Address:          fields.Address,
		CityStateZipcode: fmt.Sprintf("%s, %s %s", fields.Locality, fields.Region, fields.Postal),
	}, nil
}

// collectImages returns the distinct large photo URLs in order of first appearance.
// URLs differing only in case are treated as the same photo.
func collectImages(markup string) []string {
	matches := largeImageRe.FindAllString(markup, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// pageTitle reads <title>, falling back to the og:title meta tag.
func pageTitle(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return cleanText(title)
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return cleanText(og)
	}
	return ""
}

// parseValue strips currency markers and grouping separators and enforces the value ceiling.
func parseValue(raw string) (float64, error) {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v > MaxValue {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return v, nil
}

func missing(f Fields) string {
	var names []string
	for _, field := range []struct{ name, value string }{
		{"value", f.Value}, {"beds", f.Beds}, {"baths", f.Baths}, {"area", f.Area},
		{"address", f.Address}, {"locality", f.Locality}, {"region", f.Region}, {"postal", f.Postal},
	} {
		if field.value == "" {
			names = append(names, field.name)
		}
	}
	return strings.Join(names, ",")
}
