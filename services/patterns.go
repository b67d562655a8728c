package services

import (
	"fmt"
	"regexp"

	"home-scraper/models"
)

const (
	// gap tolerates whitespace, non-breaking spaces and inline tags between a number and its unit.
	gap = `(?:\s|&nbsp;|<[^<>]{0,200}>)*`

	bedsPattern  = `(\d+(?:\.\d+)?)` + gap + `(?i:bedrooms?|beds?|bds?)\b`
	bathsPattern = `(\d+(?:\.\d+)?)` + gap + `(?i:bathrooms?|baths?|ba)\b`
	areaPattern  = `(\d{1,3}(?:,\d{3})+|\d+)` + gap + `(?i:sqft|sq\.?\s*ft\.?|square\s+feet)`
	pricePattern = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d{4,}(?:\.\d+)?)`
)

var (
	largeImageRe = regexp.MustCompile(
		`(?i)https://photos\.zillowstatic\.com/fp/[a-z0-9_-]+-(?:cc_ft_1536|uncropped_scaled_within_1536_1152)\.(?:jpe?g|webp|png)`)

	bedsRe  = regexp.MustCompile(bedsPattern)
	bathsRe = regexp.MustCompile(bathsPattern)
	areaRe  = regexp.MustCompile(areaPattern)
)

// window is a bounded, lazy run of arbitrary text between two fields.
func window(n int) string {
	return fmt.Sprintf(`(?s:.{0,%d}?)`, n)
}

// regionPatterns holds the expressions whose shape depends on currency and postal conventions.
type regionPatterns struct {
	combined *regexp.Regexp
	price    *regexp.Regexp
	locality *regexp.Regexp
	street   *regexp.Regexp
	title    *regexp.Regexp
}

type regionRules struct {
	currency string
	postal   string
}

var rulesByRegion = map[models.Region]regionRules{
	models.RegionUS: {
		currency: `\$`,
		postal:   `(\d{5})(?:-\d{4})?`,
	},
	models.RegionCA: {
		currency: `(?:C\$|CAD\s*\$?|\$)`,
		postal:   `([A-Z]\d[A-Z] ?\d[A-Z]\d)`,
	},
}

var patternsByRegion = buildPatterns()

func buildPatterns() map[models.Region]*regionPatterns {
	out := make(map[models.Region]*regionPatterns, len(rulesByRegion))
	for region, r := range rulesByRegion {
		localityTail := `,\s*([A-Za-z][A-Za-z .'-]{0,48}),\s*([A-Z]{2})\s+` + r.postal

		out[region] = &regionPatterns{
			combined: regexp.MustCompile(
				r.currency + `\s?` + pricePattern +
					window(200) + bedsPattern +
					window(120) + bathsPattern +
					window(120) + areaPattern +
					window(600) + `(\d+[^,<>"]{2,80}?)` + localityTail),
			price:    regexp.MustCompile(r.currency + gap + pricePattern),
			locality: regexp.MustCompile(localityTail),
			street:   regexp.MustCompile(`(\d+(?:[ \t]+[A-Za-z0-9.'#-]+){1,8})` + localityTail),
			title:    regexp.MustCompile(`^\s*([^,|]+?),\s*([^,|]+?),\s*([A-Z]{2})\s+` + r.postal),
		}
	}
	return out
}

func patternsFor(region models.Region) *regionPatterns {
	if p, ok := patternsByRegion[region]; ok {
		return p
	}
	return patternsByRegion[models.RegionUS]
}
