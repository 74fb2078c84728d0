// Command diag prints the visibility table for one observer and start hour
// without running the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MichalZG/gaia-targets/internal/catalog"
	"github.com/MichalZG/gaia-targets/internal/sky"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

type options struct {
	catalog     string
	lon         string
	lat         string
	date        string
	hour        string
	offsets     []int
	format      string
	workers     int
	transformer string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Print target altitudes for an observer and start hour",
		Long: `Load a target catalog (file path or http(s) URL), compute the altitude of
every target at each hour offset from the start instant, and print the table.

Examples:
  diag --catalog targets.csv --lon 37 --lat 37 --date 2024-03-20 --hour 22
  diag --catalog targets.csv --format csv > visibility.csv`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, time.Now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.catalog, "catalog", "targets.csv", "catalog CSV path or http(s) URL")
	f.StringVar(&opts.lon, "lon", "37", "observer longitude in degrees East, [0, 360)")
	f.StringVar(&opts.lat, "lat", "37", "observer latitude in degrees, [-90, 90]")
	f.StringVar(&opts.date, "date", "", "start date YYYY-MM-DD (default today, UTC)")
	f.StringVar(&opts.hour, "hour", "22", "start hour UT, [0, 23]")
	f.IntSliceVar(&opts.offsets, "offsets", visibility.DefaultOffsets, "hour offsets from the start instant")
	f.StringVar(&opts.format, "format", "table", "output format: table, csv or json")
	f.IntVar(&opts.workers, "workers", 0, "worker pool size (default: number of CPUs)")
	f.StringVar(&opts.transformer, "transformer", "meeus", "position math: meeus or vector")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log catalog warnings to stderr")

	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, opts *options, now time.Time) error {
	format := strings.ToLower(opts.format)
	if format != "table" && format != "csv" && format != "json" {
		return fmt.Errorf("unknown format %q (want table, csv or json)", opts.format)
	}

	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	values := url.Values{}
	values.Set("lon", opts.lon)
	values.Set("lat", opts.lat)
	values.Set("date", opts.date)
	values.Set("hour", opts.hour)
	q, err := visibility.ParseQuery(values, visibility.Defaults{}, now)
	if err != nil {
		return err
	}
	req, err := q.Resolve()
	if err != nil {
		return err
	}

	loader := &catalog.Loader{Source: opts.catalog, Logger: logger}
	cat, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	tr, err := sky.TransformerByName(opts.transformer)
	if err != nil {
		return err
	}

	engine := visibility.NewEngine(cat, visibility.Config{Workers: opts.workers, Offsets: opts.offsets, Transformer: tr}, logger)
	res, err := engine.Compute(ctx, req)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		return visibility.WriteCSV(stdout, res.Table())
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeTable(stdout, res)
}

func writeTable(w io.Writer, res *visibility.Result) error {
	fmt.Fprintf(w, "Observer lon=%s lat=%s elevation=%sm  start %s UT\n\n",
		strconv.FormatFloat(res.Observer.Longitude, 'f', -1, 64),
		strconv.FormatFloat(res.Observer.Latitude, 'f', -1, 64),
		strconv.FormatFloat(res.Observer.ElevationM, 'f', -1, 64),
		res.Base.Format("2006-01-02 15:04"),
	)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	cells := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, c := range res.Columns {
			cells[i] = row.Values[c]
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
