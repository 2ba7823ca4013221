package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/hexgrid"
)

var (
	buildTraces   string
	buildBoundary string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Aggregate a raw traces CSV into the cell aggregate table",
	Long:  "Indexes anonymized trace points into hexagonal cells at every configured resolution and replaces the backing aggregate table, optionally dropping points outside a boundary shapefile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		traces := buildTraces
		if traces == "" {
			traces = cfg.Build.TracesCSV
		}
		if traces == "" {
			return eris.New("build: no traces CSV given (--traces or build.traces_csv)")
		}

		var filter aggregate.BoundaryFilter
		boundaryPath := buildBoundary
		if boundaryPath == "" {
			boundaryPath = cfg.Build.BoundaryShapefile
		}
		if boundaryPath != "" {
			b, err := aggregate.LoadBoundaryShapefile(boundaryPath)
			if err != nil {
				return err
			}
			filter = b
		}

		indexer := hexgrid.NewH3()
		results, err := aggregate.AggregateTraceFile(ctx, traces, indexer, cfg.Grid.Resolutions, filter)
		if err != nil {
			return err
		}

		source, err := newSource(ctx)
		if err != nil {
			return err
		}
		defer source.Close()

		writer, ok := source.(aggregate.ResolutionWriter)
		if !ok {
			return eris.New("build: configured source does not support writes")
		}
		if err := writer.Migrate(ctx); err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		var totalCells, totalPoints int
		for _, res := range cfg.Grid.Resolutions {
			records := results[res]
			if err := writer.ReplaceResolution(ctx, res, records); err != nil {
				return err
			}
			points := 0
			for _, rec := range records {
				points += rec.PointCount
			}
			totalCells += len(records)
			totalPoints += points
			p.Printf("res %d: %d cells, %d points\n", res, len(records), points)
		}
		p.Printf("done: %d cells, %d points across %d resolutions\n",
			totalCells, totalPoints, len(cfg.Grid.Resolutions))

		zap.L().Info("aggregate build complete",
			zap.String("traces", traces),
			zap.Int("cells", totalCells),
			zap.Int("points", totalPoints),
		)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildTraces, "traces", "", "raw traces CSV path (default from config)")
	buildCmd.Flags().StringVar(&buildBoundary, "boundary", "", "boundary shapefile path (default from config)")
	rootCmd.AddCommand(buildCmd)
}
