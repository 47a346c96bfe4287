package country

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regscope/regscope/internal/models"
)

func TestMapExactAliases(t *testing.T) {
	tests := []struct {
		source string
		want   models.CountryCode
	}{
		{"fcc", models.CountryUS},
		{"FCC", models.CountryUS},
		{"ntia", models.CountryUS},
		{"Federal Communications Commission", models.CountryUS},
		{"ofcom", models.CountryUK},
		{"Office of Communications", models.CountryUK},
		{"soumu", models.CountryJP},
		{"総務省", models.CountryJP},
		{"MIC", models.CountryJP},
		{"msit", models.CountryKR},
		{"과기정통부", models.CountryKR},
		{"방송통신위원회", models.CountryKR},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.source))
		})
	}
}

func TestMapPartialMatch(t *testing.T) {
	assert.Equal(t, models.CountryUS, Map("FCC (Federal Communications Commission)"))
	assert.Equal(t, models.CountryUK, Map("ofcom uk"))
	assert.Equal(t, models.CountryJP, Map("総務省 報道資料"))
}

func TestMapUnknown(t *testing.T) {
	assert.Equal(t, models.CountryCode(""), Map(""))
	assert.Equal(t, models.CountryCode(""), Map("   "))
	assert.Equal(t, models.CountryCode(""), Map("bundesnetzagentur"))
}
