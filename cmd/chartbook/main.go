package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chartbook/internal/config"
	"chartbook/internal/model"
	"chartbook/internal/report"
	"chartbook/internal/wbgapi"
	"chartbook/internal/workbook"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file in yaml format")
	debug := fs.Bool("debug", false, "debug mode")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	outPath := fs.Arg(0)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := runBuild(*configPath, outPath); err != nil {
		fmt.Fprintln(os.Stderr, "chartbook build failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chartbook build [options] FILE")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config   config file in yaml format (default: config.yaml)")
	fmt.Fprintln(os.Stderr, "  -debug    debug mode")
}

func runBuild(configPath, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client, err := wbgapi.New()
	if err != nil {
		return err
	}

	ctx := context.Background()

	rawGroups := map[model.PeriodType][]config.RawIndicator{
		model.PeriodYear:    cfg.Yearly,
		model.PeriodQuarter: cfg.Quarterly,
		model.PeriodMonth:   cfg.Monthly,
	}
	groups := make(map[model.PeriodType][]model.Indicator, len(rawGroups))
	for _, periodType := range model.PeriodTypes {
		indicators, err := report.Normalize(ctx, client, rawGroups[periodType])
		if err != nil {
			return err
		}
		groups[periodType] = indicators
		log.Debug().
			Str("periodicity", string(periodType)).
			Interface("indicators", indicators).
			Msg("normalized config")
	}

	economies, err := report.ResolveEconomies(ctx, client, cfg.Economies, cfg.Options.Aggregates)
	if err != nil {
		return err
	}
	log.Debug().Int("economies", len(economies)).Msg("economy list resolved")

	builder, err := workbook.NewBuilder()
	if err != nil {
		return err
	}

	for _, economy := range economies {
		tables := make(map[model.PeriodType]*report.Table, len(groups))
		for _, periodType := range model.PeriodTypes {
			table, err := report.Assemble(ctx, client, economy.ID, groups[periodType])
			if err != nil {
				return err
			}
			tables[periodType] = table
		}
		if err := builder.AddEconomySheet(economy, tables, groups); err != nil {
			return err
		}
		log.Info().Str("economy", economy.ID).Str("sheet", economy.Name).Msg("sheet written")
	}

	if err := builder.Save(outPath); err != nil {
		return err
	}
	log.Info().Str("file", outPath).Int("sheets", len(economies)).Msg("workbook complete")
	return nil
}
