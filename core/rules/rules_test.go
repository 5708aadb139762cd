package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcredit/core/profile"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

const sample = `
reporting_period = "2024-11"

filter {
  min_age = 18
  registration_status = "Approved"
}

profile {
  missing_score = "strict"
}

allocation {
  extrapolate = true

  product "Individual" "Nano_Loan" {
    min = 10
    max = 50
  }
}

bonus_malus {
  ability_to_borrow     = 1.15
  split_negative_second = true
}

features "Digital_Service" {
  columns = ["DIGITAL_REVENUE", "APP_SESSIONS"]
}
`

func TestParseOverlaysDefaults(t *testing.T) {
	r, err := Parse([]byte(sample), "rules.hcl")
	require.NoError(t, err)

	assert.Equal(t, types.ReportingPeriod{Year: 2024, Month: time.November}, r.Period)
	assert.Equal(t, 18, r.Filter.MinAge)
	assert.Equal(t, 60, r.Filter.MaxAge, "unset attributes keep their default")
	assert.Equal(t, "Approved", r.Filter.RegistrationStatus)
	assert.True(t, r.Filter.RequireMobMoney90Days)
	assert.Equal(t, profile.PolicyStrict, r.Policy)

	assert.True(t, r.Allocation.Extrapolate)
	require.Len(t, r.Allocation.Products, 1, "products replace the whole grid")
	nano := r.Allocation.Products[types.CustomerIndividual][0]
	assert.True(t, nano.Range.Max.Equal(decimal.NewFromInt(50)))

	assert.True(t, r.Rates.AbilityToBorrow.Equal(decimal.RequireFromString("1.15")))
	assert.True(t, r.Rates.StrongAbilityToBorrow.Equal(decimal.RequireFromString("1.2")))
	assert.True(t, r.Rates.SplitNegativeSecond)

	assert.Equal(t, []string{"DIGITAL_REVENUE", "APP_SESSIONS"}, r.Catalog[types.ServiceDigital].Columns)
	assert.Len(t, r.Catalog[types.ServiceVoice].Columns, 19)
}

func TestParseRejectsInvalidRules(t *testing.T) {
	tests := map[string]string{
		"syntax":        `filter {`,
		"period":        `reporting_period = "November"`,
		"policy":        `profile { missing_score = "lenient" }`,
		"ages":          `filter { min_age = 70 }`,
		"weights":       `segmentation { weights = [1, 2] }`,
		"loan type":     `allocation { product "Individual" "Mortgage" { min = 1 max = 2 } }`,
		"category":      `features "Cable_TV" { columns = ["X"] }`,
		"unknown block": `scoring {}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "bad.hcl")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig), "got %v", err)
		})
	}
}

func TestRenderRoundTrips(t *testing.T) {
	r, err := Parse([]byte(sample), "rules.hcl")
	require.NoError(t, err)

	again, err := Parse(r.Render(), "rendered.hcl")
	require.NoError(t, err)

	assert.Equal(t, r.Period, again.Period)
	assert.Equal(t, r.Filter, again.Filter)
	assert.Equal(t, r.Policy, again.Policy)
	assert.Equal(t, r.Weights, again.Weights)
	assert.Equal(t, r.Catalog, again.Catalog)
	assert.True(t, r.Rates.AbilityToBorrow.Equal(again.Rates.AbilityToBorrow))
}

func TestLoadAndPeriodFor(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.True(t, r.Period.IsZero())
	assert.Equal(t, types.ReportingPeriod{Year: 2024, Month: time.November}, r.PeriodFor(time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)))

	path := filepath.Join(t.TempDir(), "rules.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`reporting_period = "2023-02"`), 0644))
	r, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.ReportingPeriod{Year: 2023, Month: time.February}, r.PeriodFor(time.Now()))

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}
