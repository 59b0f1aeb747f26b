// Command handwarp-report summarises recorded handwarp runs: PIN success per
// condition, an HTML offset chart and a depth trace image. With -follow it
// prints the live feed of a running handwarp-sim instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/handwarp/internal/db"
	"github.com/banshee-data/handwarp/internal/feed"
	"github.com/banshee-data/handwarp/internal/report"
	"github.com/banshee-data/handwarp/internal/version"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	dbPath      = flag.String("db", "handwarp.db", "SQLite database written by handwarp-sim")
	runID       = flag.String("run", "", "Run ID to report on (default: latest run)")
	listRuns    = flag.Bool("list", false, "List recorded runs and exit")
	htmlOut     = flag.String("html", "", "Write an offset chart to this HTML file")
	pngOut      = flag.String("png", "", "Write a depth trace to this image file (.png, .svg, .pdf)")
	stride      = flag.Int("stride", 1, "Chart every n-th frame")
	assetsHost  = flag.String("assets-host", "", "Override the echarts asset host")
	followAddr  = flag.String("follow", "", "Print the live feed of handwarp-sim at this address and exit")
	every       = flag.Int("every", 90, "Print every n-th tick of the live feed")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("handwarp-report"))
		return
	}

	if *followAddr != "" {
		conn, err := feed.Dial(*followAddr)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer conn.Close()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := followFeed(ctx, conn, *every, os.Stdout); err != nil {
			log.Fatalf("feed: %v", err)
		}
		return
	}

	// OpenDB leaves the schema alone, so an out-of-date file is reported
	// rather than migrated.
	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *listRuns {
		if err := writeRuns(os.Stdout, database); err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		return
	}

	run, err := selectRun(database, *runID)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := writeRunReport(os.Stdout, database, run); err != nil {
		log.Fatalf("failed to summarise run %s: %v", run.RunID, err)
	}

	if *htmlOut == "" && *pngOut == "" {
		return
	}
	ticks, err := database.Ticks(run.RunID)
	if err != nil {
		log.Fatalf("failed to load ticks: %v", err)
	}
	if *htmlOut != "" {
		if err := writeChart(*htmlOut, run, ticks); err != nil {
			log.Fatalf("failed to write chart: %v", err)
		}
		log.Printf("wrote %s", *htmlOut)
	}
	if *pngOut != "" {
		if err := report.PlotDepthTrace(*pngOut, ticks); err != nil {
			log.Fatalf("failed to write depth trace: %v", err)
		}
		log.Printf("wrote %s", *pngOut)
	}
}

// followFeed prints feed events to out until the feed ends or ctx is
// cancelled.
func followFeed(ctx context.Context, conn grpc.ClientConnInterface, every int, out io.Writer) error {
	err := feed.Watch(ctx, conn, every, func(ev *structpb.Struct) error {
		_, err := fmt.Fprintln(out, feed.Describe(ev))
		return err
	})
	if status.Code(err) == codes.Canceled {
		return nil
	}
	return err
}

// selectRun returns the run with id, or the most recent run when id is
// empty.
func selectRun(database *db.DB, id string) (db.Run, error) {
	if id != "" {
		return database.GetRun(id)
	}
	runs, err := database.Runs()
	if err != nil {
		return db.Run{}, err
	}
	if len(runs) == 0 {
		return db.Run{}, db.ErrRunNotFound
	}
	return runs[0], nil
}

func writeRunReport(out io.Writer, database *db.DB, run db.Run) error {
	fmt.Fprintf(out, "Run %s\n", run.RunID)
	fmt.Fprintf(out, "  participant %d, start step %d, study mode %v\n", run.Participant, run.StartStep, run.StudyMode)
	fmt.Fprintf(out, "  technique %s, selection %s, curve %s, source %s\n", run.Technique, run.Selection, run.Curve, run.Source)
	fmt.Fprintf(out, "  started %s", run.Started.Format(time.RFC3339))
	if !run.Finished.IsZero() {
		fmt.Fprintf(out, ", ran %s", run.Finished.Sub(run.Started).Round(time.Millisecond))
	}
	fmt.Fprintf(out, "\n  %d frames, %d/%d pins correct, %d records dropped\n\n",
		run.Frames, run.PinsCorrect, run.PinsCompleted, run.DroppedRecords)

	attempts, err := database.PinAttempts(run.RunID)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No PIN attempts recorded.")
		return nil
	}
	return report.WriteSummary(out, report.SummarisePins(attempts))
}

// writeRuns lists every run with its overall PIN success rate.
func writeRuns(out io.Writer, database *db.DB) error {
	runs, err := database.Runs()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tPARTICIPANT\tTECHNIQUE\tFRAMES\tATTEMPTS\tRATE")
	for _, r := range runs {
		rows, err := database.PinSummary(r.RunID)
		if err != nil {
			return err
		}
		var attempts, correct int
		for _, row := range rows {
			attempts += row.Attempts
			correct += row.Correct
		}
		rate := "-"
		if attempts > 0 {
			rate = fmt.Sprintf("%.0f%%", 100*float64(correct)/float64(attempts))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			r.RunID, r.Started.Format(time.RFC3339), r.Participant, r.Technique, r.Frames, attempts, rate)
	}
	return tw.Flush()
}

func writeChart(path string, run db.Run, ticks []db.TickRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	err = report.RenderOffsetChart(f, ticks, report.ChartOptions{
		Title:      fmt.Sprintf("Run %s (participant %d)", run.RunID, run.Participant),
		AssetsHost: *assetsHost,
		Stride:     *stride,
	})
	if errors.Is(err, report.ErrNoTicks) {
		return fmt.Errorf("run %s has no tick records", run.RunID)
	}
	return err
}
