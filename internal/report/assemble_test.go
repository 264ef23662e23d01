package report_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"chartbook/internal/model"
	"chartbook/internal/report"
	"chartbook/internal/wbgapi"
)

type fetchCall struct {
	indicatorIDs []string
	economyID    string
	sourceDB     int
}

type fakeFetcher struct {
	calls    []fetchCall
	bySource map[int][]wbgapi.Observation
	err      error
}

func (f *fakeFetcher) FetchSeries(_ context.Context, indicatorIDs []string, economyID string, sourceDB int) ([]wbgapi.Observation, error) {
	f.calls = append(f.calls, fetchCall{indicatorIDs: indicatorIDs, economyID: economyID, sourceDB: sourceDB})
	if f.err != nil {
		return nil, f.err
	}
	return f.bySource[sourceDB], nil
}

func TestAssemble(t *testing.T) {
	Convey("Given two sources with overlapping period indices", t, func() {
		fetcher := &fakeFetcher{bySource: map[int][]wbgapi.Observation{
			2: {
				{IndicatorID: "A", Period: "2019", Value: 1},
				{IndicatorID: "A", Period: "2020", Value: 2},
			},
			57: {
				{IndicatorID: "B", Period: "2020", Value: 20},
				{IndicatorID: "B", Period: "2021", Value: 21},
			},
		}}
		indicators := []model.Indicator{
			{ID: "A", Source: 2, Multiplier: 1},
			{ID: "B", Source: 57, Multiplier: 1},
		}

		Convey("When assembling one economy's table", func() {
			table, err := report.Assemble(context.Background(), fetcher, "USA", indicators)
			So(err, ShouldBeNil)

			Convey("Then the period index is the sorted union of both sources", func() {
				So(table.Periods(), ShouldResemble, []string{"2019", "2020", "2021"})
			})

			Convey("And one fetch ran per source in first-appearance order", func() {
				So(fetcher.calls, ShouldHaveLength, 2)
				So(fetcher.calls[0].sourceDB, ShouldEqual, 2)
				So(fetcher.calls[0].indicatorIDs, ShouldResemble, []string{"A"})
				So(fetcher.calls[0].economyID, ShouldEqual, "USA")
				So(fetcher.calls[1].sourceDB, ShouldEqual, 57)
				So(fetcher.calls[1].indicatorIDs, ShouldResemble, []string{"B"})
			})

			Convey("And absent combinations stay absent rather than zero", func() {
				value, ok := table.Value("2019", "A")
				So(ok, ShouldBeTrue)
				So(value, ShouldEqual, 1)

				_, ok = table.Value("2019", "B")
				So(ok, ShouldBeFalse)
				_, ok = table.Value("2021", "A")
				So(ok, ShouldBeFalse)
			})

			Convey("And columns follow first-seen order across subsets", func() {
				So(table.Columns(), ShouldResemble, []string{"A", "B"})
				So(table.HasColumn("A"), ShouldBeTrue)
				So(table.HasColumn("C"), ShouldBeFalse)
			})
		})
	})

	Convey("Given several indicators sharing a source", t, func() {
		fetcher := &fakeFetcher{bySource: map[int][]wbgapi.Observation{
			2: {{IndicatorID: "A", Period: "2020", Value: 1}},
		}}
		indicators := []model.Indicator{
			{ID: "A", Source: 2},
			{ID: "B", Source: 2},
			{ID: "C", Source: 2},
		}

		Convey("When assembling", func() {
			_, err := report.Assemble(context.Background(), fetcher, "DEU", indicators)
			So(err, ShouldBeNil)

			Convey("Then a single fetch carries the whole subset", func() {
				So(fetcher.calls, ShouldHaveLength, 1)
				So(fetcher.calls[0].indicatorIDs, ShouldResemble, []string{"A", "B", "C"})
			})
		})
	})

	Convey("Given an empty indicator group", t, func() {
		fetcher := &fakeFetcher{}

		Convey("When assembling", func() {
			table, err := report.Assemble(context.Background(), fetcher, "USA", nil)

			Convey("Then there is no table and no fetch", func() {
				So(err, ShouldBeNil)
				So(table, ShouldBeNil)
				So(fetcher.calls, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a failing source fetch", t, func() {
		fetcher := &fakeFetcher{err: errors.New("boom")}

		Convey("When assembling", func() {
			_, err := report.Assemble(context.Background(), fetcher, "USA",
				[]model.Indicator{{ID: "A", Source: 2}})

			Convey("Then the error propagates with context", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "source 2")
				So(err.Error(), ShouldContainSubstring, "USA")
			})
		})
	})
}

type fakeCatalog struct {
	listed    []string
	allCalled bool
	includeAg bool
}

func (c *fakeCatalog) ListEconomies(_ context.Context, ids []string) ([]model.Economy, error) {
	c.listed = ids
	economies := make([]model.Economy, 0, len(ids))
	for _, id := range ids {
		economies = append(economies, model.Economy{ID: id, Name: "Name of " + id})
	}
	return economies, nil
}

func (c *fakeCatalog) ListAllEconomies(_ context.Context, includeAggregates bool) ([]model.Economy, error) {
	c.allCalled = true
	c.includeAg = includeAggregates
	return []model.Economy{{ID: "ABW", Name: "Aruba"}, {ID: "ZWE", Name: "Zimbabwe"}}, nil
}

func TestResolveEconomies(t *testing.T) {
	Convey("Given an explicit economy list", t, func() {
		catalog := &fakeCatalog{}

		Convey("When resolving", func() {
			economies, err := report.ResolveEconomies(context.Background(), catalog, []string{"USA", "CHN"}, false)

			Convey("Then the configured order is authoritative", func() {
				So(err, ShouldBeNil)
				So(catalog.listed, ShouldResemble, []string{"USA", "CHN"})
				So(economies[0].ID, ShouldEqual, "USA")
				So(economies[1].ID, ShouldEqual, "CHN")
				So(catalog.allCalled, ShouldBeFalse)
			})
		})
	})

	Convey("Given no explicit list", t, func() {
		catalog := &fakeCatalog{}

		Convey("When resolving with aggregates enabled", func() {
			economies, err := report.ResolveEconomies(context.Background(), catalog, nil, true)

			Convey("Then the full catalog is used with the flag passed through", func() {
				So(err, ShouldBeNil)
				So(catalog.allCalled, ShouldBeTrue)
				So(catalog.includeAg, ShouldBeTrue)
				So(economies, ShouldHaveLength, 2)
			})
		})
	})
}
