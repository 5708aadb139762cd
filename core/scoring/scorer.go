package scoring

import (
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// GroupThresholds holds the cut points of every percentile-scored column of
// one feature group. Columns with no value in the population are absent.
type GroupThresholds map[string]Thresholds

// Scorer computes category scores from a feature catalog
type Scorer struct {
	catalog Catalog
}

// NewScorer creates a scorer over the given catalog
func NewScorer(catalog Catalog) *Scorer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Scorer{catalog: catalog}
}

// Catalog returns the scorer's feature catalog
func (s *Scorer) Catalog() Catalog {
	return s.catalog
}

// RequiredColumns lists every column read to score the given categories
func (s *Scorer) RequiredColumns(cats ...types.ServiceCategory) ([]string, error) {
	var cols []string
	for _, cat := range cats {
		g, err := s.catalog.Group(cat)
		if err != nil {
			return nil, errors.Config("scoring", err)
		}
		cols = append(cols, g.RequiredColumns()...)
	}
	return cols, nil
}

// Compute derives the cut points of a feature group over the table
func Compute(t *types.Table, g FeatureGroup) GroupThresholds {
	out := make(GroupThresholds, len(g.Columns))
	values := make([]float64, 0, len(t.Rows))
	for _, col := range g.Columns {
		values = values[:0]
		for _, row := range t.Rows {
			if v, ok := row.Feature(col); ok {
				values = append(values, v)
			}
		}
		if th, ok := ComputeThresholds(values); ok {
			out[col] = th
		}
	}
	return out
}

// Classify returns the category score of one row. It reports false when no
// feature of the group could be scored on the row.
func Classify(row *types.Subscriber, g FeatureGroup, th GroupThresholds) (int, bool) {
	sum, n := 0, 0
	for _, col := range g.Columns {
		cuts, ok := th[col]
		if !ok {
			continue
		}
		v, ok := row.Feature(col)
		if !ok {
			continue
		}
		sum += cuts.Bucket(v)
		n++
	}
	for _, col := range g.Binary {
		v, ok := row.Feature(col)
		if !ok {
			continue
		}
		if v == 1 {
			sum += 5
		} else {
			sum++
		}
		n++
	}
	if n == 0 {
		return 0, false
	}
	return roundHalfUp(sum, n), true
}

// Score adds the score column of one category. The input is not modified.
func (s *Scorer) Score(t *types.Table, cat types.ServiceCategory) (*types.Table, error) {
	return s.score(t, []types.ServiceCategory{cat})
}

// ScoreAll adds the five category score columns. Missing columns are
// reported for all categories at once.
func (s *Scorer) ScoreAll(t *types.Table) (*types.Table, error) {
	return s.score(t, types.ServiceOrder)
}

func (s *Scorer) score(t *types.Table, cats []types.ServiceCategory) (*types.Table, error) {
	required, err := s.RequiredColumns(cats...)
	if err != nil {
		return nil, err
	}
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return nil, errors.MissingColumns("scorer", missing)
	}

	out := t.Clone()
	for _, cat := range cats {
		g := s.catalog[cat]
		th := Compute(t, g)
		for _, row := range out.Rows {
			if score, ok := Classify(row, g, th); ok {
				row.SetScore(cat, score)
			} else {
				delete(row.Scores, cat)
			}
		}
		out.AddColumns(cat.ScoreColumn())
	}
	return out, nil
}
