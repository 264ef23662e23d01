package report

import (
	"context"
	"fmt"
	"sort"

	"chartbook/internal/model"
	"chartbook/internal/wbgapi"
)

// Table is a period-indexed table assembled from one or more source fetches.
// The period index is the sorted union of every source's periods; columns are
// kept in first-seen order across source subsets, which may differ from
// descriptor order (descriptor order stays authoritative for rendering).
type Table struct {
	periods []string
	columns []string
	cells   map[string]map[string]float64
}

func (t *Table) Periods() []string { return t.periods }

func (t *Table) Columns() []string { return t.columns }

func (t *Table) HasColumn(id string) bool {
	_, ok := t.cells[id]
	return ok
}

// Value reports the cell for a period/indicator combination. The second
// return is false when the combination is absent from every source fetch.
func (t *Table) Value(period, id string) (float64, bool) {
	column, ok := t.cells[id]
	if !ok {
		return 0, false
	}
	value, ok := column[period]
	return value, ok
}

// Assemble fetches one economy's series for a periodicity group, one request
// per distinct source database, and outer-joins the results on the period
// index. An empty group yields a nil table, which the renderer skips.
func Assemble(ctx context.Context, fetcher SeriesFetcher, economyID string, indicators []model.Indicator) (*Table, error) {
	if len(indicators) == 0 {
		return nil, nil
	}

	// Partition by source in order of first appearance.
	sources := make([]int, 0, 1)
	bySource := make(map[int][]string)
	for _, indicator := range indicators {
		if _, ok := bySource[indicator.Source]; !ok {
			sources = append(sources, indicator.Source)
		}
		bySource[indicator.Source] = append(bySource[indicator.Source], indicator.ID)
	}

	table := &Table{cells: make(map[string]map[string]float64)}
	seen := make(map[string]struct{})
	for _, source := range sources {
		observations, err := fetcher.FetchSeries(ctx, bySource[source], economyID, source)
		if err != nil {
			return nil, fmt.Errorf("report: fetch source %d for %s: %w", source, economyID, err)
		}
		table.merge(observations, seen)
	}

	sort.Strings(table.periods)
	return table, nil
}

func (t *Table) merge(observations []wbgapi.Observation, seenPeriods map[string]struct{}) {
	for _, observation := range observations {
		column, ok := t.cells[observation.IndicatorID]
		if !ok {
			column = make(map[string]float64)
			t.cells[observation.IndicatorID] = column
			t.columns = append(t.columns, observation.IndicatorID)
		}
		if _, ok := seenPeriods[observation.Period]; !ok {
			seenPeriods[observation.Period] = struct{}{}
			t.periods = append(t.periods, observation.Period)
		}
		column[observation.Period] = observation.Value
	}
}
