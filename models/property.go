package models

import "time"

// FormatVersion tags every persisted document with the shape it was written in.
const FormatVersion = "1.0"

// Property is a single scraped listing. It only exists when every field
// required by the extractor was recovered from the detail page.
type Property struct {
	ID               string    `json:"-" bson:"_id,omitempty"`
	URLs             []string  `json:"urls" bson:"urls"`
	Value            float64   `json:"value" bson:"value"`
	Beds             string    `json:"beds" bson:"beds"`
	Baths            string    `json:"baths" bson:"baths"`
	SquareFootage    string    `json:"square_footage" bson:"square_footage"`
	Address          string    `json:"address" bson:"address"`
	CityStateZipcode string    `json:"city_state_zipcode" bson:"city_state_zipcode"`
	DetailURL        string    `json:"detailUrl" bson:"detailUrl"`
	ScrapedAt        time.Time `json:"-" bson:"scraped_at"`
	Version          string    `json:"-" bson:"version"`
}

// Placeholder is returned to callers when no city catalog could be loaded.
func Placeholder() *Property {
	return &Property{
		URLs:             []string{},
		Value:            0,
		Beds:             "0",
		Baths:            "0",
		SquareFootage:    "0",
		Address:          "Unknown",
		CityStateZipcode: "Unknown",
	}
}

// FetchResult is the uniform outcome of one outbound page request.
// Transport failures are reported with Succeeded=false and StatusCode=0.
type FetchResult struct {
	Succeeded  bool
	StatusCode int
	Body       string
}
