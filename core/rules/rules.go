// Package rules loads the business rules of a pipeline run from an HCL
// file layered over the production defaults.
package rules

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/shopspring/decimal"

	"microcredit/core/allocation"
	"microcredit/core/bonusmalus"
	"microcredit/core/filter"
	"microcredit/core/profile"
	"microcredit/core/scoring"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Rules are the effective business rules of a run
type Rules struct {
	Filter     filter.Criteria   `json:"filter"`
	Policy     profile.Policy    `json:"profile_policy"`
	Weights    [5]int            `json:"segment_weights"`
	Catalog    scoring.Catalog   `json:"catalog"`
	Allocation allocation.Config `json:"allocation"`
	Rates      bonusmalus.Rates  `json:"rates"`

	// Period is the month balances are standardized onto; zero means the
	// month preceding the run's reference date
	Period types.ReportingPeriod `json:"period"`
}

// Default returns the production rules
func Default() *Rules {
	return &Rules{
		Filter:     filter.DefaultCriteria(),
		Policy:     profile.PolicyZeroFill,
		Weights:    profile.DefaultWeights,
		Catalog:    scoring.DefaultCatalog(),
		Allocation: allocation.DefaultConfig(),
		Rates:      bonusmalus.DefaultRates(),
	}
}

// PeriodFor returns the configured period or the month before ref
func (r *Rules) PeriodFor(ref time.Time) types.ReportingPeriod {
	if !r.Period.IsZero() {
		return r.Period
	}
	return bonusmalus.DefaultPeriod(ref)
}

// Validate checks the rules for internal consistency
func (r *Rules) Validate() error {
	if r.Filter.MinAge > r.Filter.MaxAge {
		return errors.Newf(errors.TypeConfig, "filter: min_age %d exceeds max_age %d", r.Filter.MinAge, r.Filter.MaxAge)
	}
	if err := r.Catalog.Validate(); err != nil {
		return errors.Config("features", err)
	}
	return r.Allocation.Validate()
}

// Load reads a rules file. An empty path returns Default.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("failed to read rules file", err)
	}
	return Parse(src, path)
}

// Parse decodes HCL rules over Default
func Parse(src []byte, filename string) (*Rules, error) {
	parsed, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	var f file
	if diags := gohcl.DecodeBody(parsed.Body, nil, &f); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	r := Default()
	if err := r.apply(&f); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func diagError(filename string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		return errors.Config(fmt.Sprintf("%s:%d: %s", filename, line, d.Summary), fmt.Errorf("%s", d.Detail))
	}
	return errors.Config(filename, diags)
}

func weights(name string, w []int) ([5]int, error) {
	var out [5]int
	if len(w) != len(out) {
		return out, errors.Newf(errors.TypeConfig, "%s: need %d weights, got %d", name, len(out), len(w))
	}
	copy(out[:], w)
	return out, nil
}

func (r *Rules) apply(f *file) error {
	if f.ReportingPeriod != nil {
		p, err := types.ParseReportingPeriod(*f.ReportingPeriod)
		if err != nil {
			return errors.Config("reporting_period must be YYYY-MM", err)
		}
		r.Period = p
	}

	if b := f.Filter; b != nil {
		setInt(&r.Filter.MinAge, b.MinAge)
		setInt(&r.Filter.MaxAge, b.MaxAge)
		if b.RegistrationStatus != nil {
			r.Filter.RegistrationStatus = *b.RegistrationStatus
		}
		setBool(&r.Filter.RequireMobMoney90Days, b.RequireMobMoney90Days)
	}

	if b := f.Profile; b != nil && b.MissingScore != nil {
		p, err := profile.ParsePolicy(*b.MissingScore)
		if err != nil {
			return err
		}
		r.Policy = p
	}

	if b := f.Segmentation; b != nil && b.Weights != nil {
		w, err := weights("segmentation", b.Weights)
		if err != nil {
			return err
		}
		r.Weights = w
	}

	if b := f.Allocation; b != nil {
		if err := r.applyAllocation(b); err != nil {
			return err
		}
	}

	if b := f.BonusMalus; b != nil {
		setRate(&r.Rates.StrongAbilityToBorrow, b.StrongAbilityToBorrow)
		setRate(&r.Rates.StrongRepaymentCapacity, b.StrongRepaymentCapacity)
		setRate(&r.Rates.AbilityToBorrow, b.AbilityToBorrow)
		setBool(&r.Rates.SplitNegativeSecond, b.SplitNegativeSecond)
	}

	for _, fb := range f.Features {
		cat := types.ServiceCategory(fb.Category)
		if !cat.IsValid() {
			return errors.Newf(errors.TypeConfig, "features: unknown category %q", fb.Category)
		}
		g := scoring.FeatureGroup{Category: cat, Columns: fb.Columns}
		if len(fb.Binary) > 0 {
			g.Binary = fb.Binary
		}
		r.Catalog[cat] = g
	}
	return nil
}

func (r *Rules) applyAllocation(b *allocationBlock) error {
	a := &r.Allocation
	if b.Weights != nil {
		w, err := weights("allocation", b.Weights)
		if err != nil {
			return err
		}
		a.Weights = w
	}
	setInt(&a.MinScore, b.MinScore)
	setInt(&a.MaxScore, b.MaxScore)
	setBool(&a.Extrapolate, b.Extrapolate)

	if len(b.Products) == 0 {
		return nil
	}
	// products replace the whole grid so a category can be dropped
	a.Products = make(map[types.CustomerCategory][]allocation.Product)
	for _, p := range b.Products {
		loan := types.LoanType(p.Loan)
		if !validLoan(loan) {
			return errors.Newf(errors.TypeConfig, "allocation: unknown loan type %q", p.Loan)
		}
		cat := types.CustomerCategory(p.Category)
		a.Products[cat] = append(a.Products[cat], allocation.Product{
			Loan:  loan,
			Range: allocation.Range{Min: decimal.NewFromFloat(p.Min), Max: decimal.NewFromFloat(p.Max)},
		})
	}
	return nil
}

func validLoan(l types.LoanType) bool {
	for _, t := range types.LoanTypes {
		if t == l {
			return true
		}
	}
	return false
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setRate(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

// Render writes the effective rules as an HCL document
func (r *Rules) Render() []byte {
	f := file{
		Filter: &filterBlock{
			MinAge:                &r.Filter.MinAge,
			MaxAge:                &r.Filter.MaxAge,
			RegistrationStatus:    &r.Filter.RegistrationStatus,
			RequireMobMoney90Days: &r.Filter.RequireMobMoney90Days,
		},
		Profile:      &profileBlock{MissingScore: strPtr(string(r.Policy))},
		Segmentation: &segmentationBlock{Weights: r.Weights[:]},
		Allocation: &allocationBlock{
			Weights:     r.Allocation.Weights[:],
			MinScore:    &r.Allocation.MinScore,
			MaxScore:    &r.Allocation.MaxScore,
			Extrapolate: &r.Allocation.Extrapolate,
		},
		BonusMalus: &bonusMalusBlock{
			StrongAbilityToBorrow:   rateFloat(r.Rates.StrongAbilityToBorrow),
			StrongRepaymentCapacity: rateFloat(r.Rates.StrongRepaymentCapacity),
			AbilityToBorrow:         rateFloat(r.Rates.AbilityToBorrow),
			SplitNegativeSecond:     &r.Rates.SplitNegativeSecond,
		},
	}
	if !r.Period.IsZero() {
		f.ReportingPeriod = strPtr(r.Period.String())
	}

	cats := make([]string, 0, len(r.Allocation.Products))
	for c := range r.Allocation.Products {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		for _, p := range r.Allocation.Products[types.CustomerCategory(c)] {
			f.Allocation.Products = append(f.Allocation.Products, productBlock{
				Category: c,
				Loan:     string(p.Loan),
				Min:      p.Range.Min.InexactFloat64(),
				Max:      p.Range.Max.InexactFloat64(),
			})
		}
	}
	for _, cat := range types.ServiceOrder {
		if g, ok := r.Catalog[cat]; ok {
			binary := g.Binary
			if binary == nil {
				binary = []string{}
			}
			f.Features = append(f.Features, featureBlock{Category: string(cat), Columns: g.Columns, Binary: binary})
		}
	}

	out := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(&f, out.Body())
	return out.Bytes()
}

func strPtr(s string) *string {
	return &s
}

func rateFloat(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
