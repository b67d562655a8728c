package services

import (
	"html"
	"strings"
	"unicode"

	"home-scraper/models"
)

// Fields is the raw text recovered for one listing before validation.
type Fields struct {
	Value    string
	Beds     string
	Baths    string
	Area     string
	Address  string
	Locality string
	Region   string
	Postal   string
}

// Complete reports whether every required field is present.
func (f Fields) Complete() bool {
	return f.Value != "" && f.Beds != "" && f.Baths != "" && f.Area != "" &&
		f.Address != "" && f.Locality != "" && f.Region != "" && f.Postal != ""
}

// fill copies fields from other that are still empty in f.
func (f *Fields) fill(other Fields) {
	fillString(&f.Value, other.Value)
	fillString(&f.Beds, other.Beds)
	fillString(&f.Baths, other.Baths)
	fillString(&f.Area, other.Area)
	fillString(&f.Address, other.Address)
	fillString(&f.Locality, other.Locality)
	fillString(&f.Region, other.Region)
	fillString(&f.Postal, other.Postal)
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// Document is the parsed view of a detail page shared by all strategies.
type Document struct {
	Markup string
	Title  string
	Region models.Region
}

// Strategy recovers some or all Fields from a document.
// The bool result reports whether the strategy matched at all.
type Strategy interface {
	Name() string
	Attempt(doc *Document) (Fields, bool)
}

// CombinedStrategy matches every field in one bounded pass.
type CombinedStrategy struct{}

func (CombinedStrategy) Name() string { return "combined" }

func (CombinedStrategy) Attempt(doc *Document) (Fields, bool) {
	m := patternsFor(doc.Region).combined.FindStringSubmatch(doc.Markup)
	if m == nil {
		return Fields{}, false
	}
	return Fields{
		Value:    m[1],
		Beds:     m[2],
		Baths:    m[3],
		Area:     m[4],
		Address:  cleanText(m[5]),
		Locality: cleanText(m[6]),
		Region:   m[7],
		Postal:   m[8],
	}, true
}

// FieldStrategy searches for each field independently.
type FieldStrategy struct{}

func (FieldStrategy) Name() string { return "field-by-field" }

func (FieldStrategy) Attempt(doc *Document) (Fields, bool) {
	p := patternsFor(doc.Region)
	var f Fields

	if m := p.price.FindStringSubmatch(doc.Markup); m != nil {
		f.Value = m[1]
	}
	if m := bedsRe.FindStringSubmatch(doc.Markup); m != nil {
		f.Beds = m[1]
	}
	if m := bathsRe.FindStringSubmatch(doc.Markup); m != nil {
		f.Baths = m[1]
	}
	if m := areaRe.FindStringSubmatch(doc.Markup); m != nil {
		f.Area = m[1]
	}
	if m := p.locality.FindStringSubmatch(doc.Markup); m != nil {
		f.Locality = cleanText(m[1])
		f.Region = m[2]
		f.Postal = m[3]
	}

	// A title carrying the full address sequence is a better street source than the body heuristic.
	if t, ok := splitTitle(doc); ok {
		f.Address = t.Address
	} else if m := p.street.FindStringSubmatch(doc.Markup); m != nil {
		f.Address = cleanText(m[1])
	}

	matched := f != Fields{}
	return f, matched
}

// TitleStrategy backfills address parts from a title of the form
// "street, locality, RC postal".
type TitleStrategy struct{}

func (TitleStrategy) Name() string { return "title" }

func (TitleStrategy) Attempt(doc *Document) (Fields, bool) {
	return splitTitle(doc)
}

func splitTitle(doc *Document) (Fields, bool) {
	if doc.Title == "" {
		return Fields{}, false
	}
	m := patternsFor(doc.Region).title.FindStringSubmatch(doc.Title)
	if m == nil {
		return Fields{}, false
	}
	return Fields{
		Address:  cleanText(m[1]),
		Locality: cleanText(m[2]),
		Region:   m[3],
		Postal:   m[4],
	}, true
}

// cleanText unescapes entities and collapses internal whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
