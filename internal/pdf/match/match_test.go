package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTiers(t *testing.T) {
	catalog := []string{"lastName", "firstName", "dob"}

	tests := []struct {
		name      string
		key       string
		wantField string
		wantTier  Tier
		wantOK    bool
	}{
		{"exact", "firstName", "firstName", TierExact, true},
		{"normalized snake case", "last_name", "lastName", TierNormalized, true},
		{"normalized spacing and case", "First Name", "firstName", TierNormalized, true},
		{"token substring", "patient_lastName_2", "lastName", TierToken, true},
		{"catalog name inside token", "dobirth", "dob", TierToken, true},
		{"short tokens ignored", "ln", "", TierNone, false},
		{"no match", "telephone", "", TierNone, false},
		{"empty key", "", "", TierNone, false},
	}

	m := NewMatcher(catalog)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, got.Field)
			if ok {
				assert.Equal(t, tt.wantTier, got.Tier)
			}
		})
	}
}

func TestResolveExactBeatsNormalized(t *testing.T) {
	// "last_name" normalizes to the same value as "lastName", but the exact
	// entry appears later in the catalog and must still win.
	m := NewMatcher([]string{"lastName", "last_name"})
	got, ok := m.Resolve("last_name")
	assert.True(t, ok)
	assert.Equal(t, Match{Field: "last_name", Tier: TierExact}, got)
}

func TestResolveTieBreaksByCatalogOrder(t *testing.T) {
	catalog := []string{"admission_date", "discharge_date", "birth_date"}
	for i := 0; i < 5; i++ {
		field, ok := Resolve("visitDate", catalog)
		assert.True(t, ok)
		assert.Equal(t, "admission_date", field)
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"patient_lastName2", []string{"patient", "last", "name"}},
		{"home-phone-number", []string{"home", "phone", "number"}},
		{"DOB", []string{"dob"}},
		{"id_no", nil},
		{"address1line2", []string{"address", "line"}},
		{"HTMLParser", []string{"htmlparser"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.key))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "lastname", NormalizeKey("Last_Name"))
	assert.Equal(t, "address1", NormalizeKey("address (1)"))
	assert.Equal(t, "", NormalizeKey("__--"))
}
