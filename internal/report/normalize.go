package report

import (
	"context"
	"errors"
	"fmt"

	"chartbook/internal/config"
	"chartbook/internal/model"
)

// Normalize turns raw config entries into fully-populated indicator
// descriptors. One metadata probe runs per entry against the fixed reference
// economy, even when every field is already specified; a probe that yields no
// record is fatal because the report could not be labeled or formatted
// correctly without it. Input order is preserved and repeated ids are not
// deduplicated.
func Normalize(ctx context.Context, probe Probe, raw []config.RawIndicator) ([]model.Indicator, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	indicators := make([]model.Indicator, 0, len(raw))
	for _, entry := range raw {
		if entry.ID == "" {
			return nil, errors.New("report: indicator id is required")
		}

		meta, err := probe.FetchLatest(ctx, model.ProbeEconomy, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("report: metadata probe for %s: %w", entry.ID, err)
		}

		indicator := model.Indicator{
			ID:         entry.ID,
			Name:       meta.IndicatorName,
			Source:     model.DefaultSource,
			Multiplier: 1,
			Precision:  meta.Decimal,
		}
		if entry.Name != nil {
			indicator.Name = *entry.Name
		}
		if entry.Source != nil {
			indicator.Source = *entry.Source
		}
		if entry.Multiplier != nil {
			indicator.Multiplier = *entry.Multiplier
		}
		if entry.Precision != nil {
			indicator.Precision = *entry.Precision
		}

		indicators = append(indicators, indicator)
	}
	return indicators, nil
}
