package report

import (
	"context"

	"chartbook/internal/model"
	"chartbook/internal/wbgapi"
)

// Probe resolves indicator metadata from a single most-recent record.
type Probe interface {
	FetchLatest(ctx context.Context, economyID, indicatorID string) (wbgapi.Metadata, error)
}

// SeriesFetcher pulls a time series for a set of indicators from one source
// database.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, indicatorIDs []string, economyID string, sourceDB int) ([]wbgapi.Observation, error)
}

// Catalog lists economies, either by explicit id or as the full upstream set.
type Catalog interface {
	ListEconomies(ctx context.Context, ids []string) ([]model.Economy, error)
	ListAllEconomies(ctx context.Context, includeAggregates bool) ([]model.Economy, error)
}

// DataSource is the full upstream surface the pipeline consumes. The wbgapi
// client satisfies it.
type DataSource interface {
	Probe
	SeriesFetcher
	Catalog
}

// ResolveEconomies returns the economies to report on. An explicit configured
// list is authoritative, including its order; otherwise the full catalog is
// used in upstream order, with aggregates excluded unless requested.
func ResolveEconomies(ctx context.Context, catalog Catalog, configured []string, includeAggregates bool) ([]model.Economy, error) {
	if len(configured) > 0 {
		return catalog.ListEconomies(ctx, configured)
	}
	return catalog.ListAllEconomies(ctx, includeAggregates)
}
