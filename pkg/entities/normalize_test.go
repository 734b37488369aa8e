package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and strips punctuation",
			in:   "JPMorgan Chase & Co.",
			want: "jpmorgan chase",
		},
		{
			name: "strips corporate suffixes",
			in:   "Wells Fargo Bank, N.A.",
			want: "wells fargo bank",
		},
		{
			name: "strips stacked suffixes",
			in:   "First Horizon Bank Corp N.A.",
			want: "first horizon bank",
		},
		{
			name: "accented letters keep their base letter",
			in:   "Société Générale",
			want: "societe generale",
		},
		{
			name: "ampersand becomes and",
			in:   "Brown & Brown",
			want: "brown and brown",
		},
		{
			name: "collapses whitespace",
			in:   "  Bank   of \t America  ",
			want: "bank of america",
		},
		{
			name: "digits survive",
			in:   "5th Third Bancorp",
			want: "5th third",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeNameAccentInsensitiveIdentity(t *testing.T) {
	// Accented and unaccented spellings of the same institution must land
	// on the same canonical key.
	assert.Equal(t,
		NormalizeName("Banco Santander Centroamérica"),
		NormalizeName("Banco Santander Centroamerica"))
	assert.Equal(t, "credit agricole", NormalizeName("Crédit Agricole SA"))
}
