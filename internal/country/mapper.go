// Package country maps source organization names to country codes.
package country

import (
	"strings"

	"github.com/regscope/regscope/internal/models"
)

// aliases maps normalized organization names to country codes. The table
// carries the official names, common abbreviations, and the Korean and
// Japanese spellings operators paste in from spreadsheets.
var aliases = map[string]models.CountryCode{
	// United States
	"fcc":                               models.CountryUS,
	"ntia":                              models.CountryUS,
	"federal communications commission": models.CountryUS,

	// United Kingdom
	"ofcom":                    models.CountryUK,
	"office of communications": models.CountryUK,

	// Japan
	"総務省":   models.CountryJP,
	"soumu": models.CountryJP,
	"mic":   models.CountryJP,
	"ministry of internal affairs and communications": models.CountryJP,

	// South Korea
	"과기정통부":     models.CountryKR,
	"과학기술정보통신부": models.CountryKR,
	"방통위":       models.CountryKR,
	"방송통신위원회":   models.CountryKR,
	"msit":      models.CountryKR,
	"kcc":       models.CountryKR,
	"ministry of science and ict": models.CountryKR,
}

// Map resolves a source organization name to a country code. Tries an
// exact lookup first, then a partial match in either direction. Returns
// an empty code when nothing matches; unresolvable sources are not an
// error, the article simply carries no country.
func Map(source string) models.CountryCode {
	normalized := strings.ToLower(strings.TrimSpace(source))
	if normalized == "" {
		return ""
	}

	if code, ok := aliases[normalized]; ok {
		return code
	}

	for alias, code := range aliases {
		if strings.Contains(normalized, alias) || strings.Contains(alias, normalized) {
			return code
		}
	}

	return ""
}
