// Command ftlreplay runs the enhancements offline against a recorded page
// session and prints what they did: host actions, stats and the resulting
// activity logs.
//
// Usage:
//
//	ftlreplay -batches session.jsonl                     # recording made with ftlext -record
//	ftlreplay -snapshot page.html -batches more.jsonl    # saved markup, then recorded batches
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/eventloop"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/kvstore"
	"github.com/hazyhaar/ftlext/mirror"
	"github.com/hazyhaar/ftlext/mutation"
	"github.com/hazyhaar/ftlext/recipes"
	"github.com/hazyhaar/ftlext/session"
	"github.com/hazyhaar/ftlext/settings"
)

type options struct {
	snapshot string
	batches  string
	url      string
	db       string
	recipes  string
	settle   time.Duration
	debug    bool
}

func main() {
	var o options
	flag.StringVar(&o.snapshot, "snapshot", "", "HTML file loaded as the initial page")
	flag.StringVar(&o.batches, "batches", "", "JSON-lines recording of snapshots and batches")
	flag.StringVar(&o.url, "url", "https://www.fishtank.live", "page URL of -snapshot")
	flag.StringVar(&o.db, "db", "", "SQLite store with settings and logs (default in-memory)")
	flag.StringVar(&o.recipes, "recipes", "", "offline recipe table")
	flag.DurationVar(&o.settle, "settle", 5*time.Second, "clock advance after the last batch")
	flag.BoolVar(&o.debug, "debug", false, "debug logging")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelWarn
	}
	if o.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if o.snapshot == "" && o.batches == "" {
		fmt.Fprintln(os.Stderr, "usage: ftlreplay [-snapshot page.html] -batches session.jsonl")
		os.Exit(2)
	}
	if err := run(context.Background(), logger, o, os.Stdout); err != nil {
		logger.Error("ftlreplay: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options, out io.Writer) error {
	var store kvstore.Store = kvstore.NewMemory()
	if o.db != "" {
		s, err := kvstore.OpenSQLite(o.db)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}
	st := settings.Load(ctx, store, logger)

	clk := eventloop.NewManualClock(time.Now())
	loop := eventloop.New(eventloop.WithClock(clk), eventloop.WithLogger(logger))
	logs := activitylog.New(store, st, activitylog.WithLogger(logger), activitylog.WithClock(clk.Now))
	page := &session.StaticPage{ViewportWidth: 1920, ViewportHeight: 1080}
	runner := session.NewRunner(ctx, loop, page, session.Deps{
		Settings: st,
		Logs:     logs,
		Debug:    o.debug,
		Logger:   logger,
	}, session.WithNodeIDs(idgen.Sequence("g")))

	if o.recipes != "" {
		f, err := os.Open(o.recipes)
		if err != nil {
			return fmt.Errorf("recipes: %w", err)
		}
		list, err := recipes.Decode(f)
		f.Close()
		if err != nil {
			return err
		}
		runner.SetRecipes(recipes.NewBook(list, "offline"))
	}

	r := replayer{clk: clk, loop: loop}
	if o.snapshot != "" {
		f, err := os.Open(o.snapshot)
		if err != nil {
			return err
		}
		snap, err := mirror.ParseSnapshot(f, o.url)
		f.Close()
		if err != nil {
			return err
		}
		runner.Snapshot(snap)
		r.step(snap.Timestamp)
	}
	if o.batches != "" {
		f, err := os.Open(o.batches)
		if err != nil {
			return err
		}
		defer f.Close()
		err = mutation.ReadRecording(f, func(env mutation.Envelope) error {
			snap, b, err := env.Decode()
			if err != nil {
				return err
			}
			if snap != nil {
				runner.Snapshot(snap)
				r.step(snap.Timestamp)
				return nil
			}
			runner.Batch(b)
			r.step(b.Timestamp)
			return nil
		})
		if err != nil {
			return err
		}
	}
	clk.Advance(o.settle)
	loop.RunPending()

	// Stats is answered on the loop goroutine.
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go loop.Run(lctx)
	stats, err := runner.Stats(lctx)
	if err != nil {
		return err
	}
	return report(ctx, out, stats, page, logs)
}

// replayer moves the manual clock to each recorded timestamp so timers
// fire as they did on the page.
type replayer struct {
	clk  *eventloop.ManualClock
	loop *eventloop.Loop
	last int64
}

func (r *replayer) step(ts int64) {
	if r.last != 0 && ts > r.last {
		r.clk.Advance(time.Duration(ts-r.last) * time.Millisecond)
	}
	if ts > r.last {
		r.last = ts
	}
	r.loop.RunPending()
}

func report(ctx context.Context, out io.Writer, stats session.Stats, page *session.StaticPage, logs *activitylog.Log) error {
	fmt.Fprintln(out, "# Replay")
	fmt.Fprintf(out, "\nOutbound batches: %d, records: %d\n", len(page.Batches()), len(page.Records()))
	blob, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n## Stats\n\n```json\n%s\n```\n", blob)

	fmt.Fprintln(out, "\n## Host actions")
	fmt.Fprintln(out)
	acts := page.Actions()
	if len(acts) == 0 {
		fmt.Fprintln(out, "None.")
	}
	for _, a := range acts {
		fmt.Fprintf(out, "- %s\n", a)
	}

	for _, c := range activitylog.Categories {
		md, err := logs.Markdown(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s", md)
	}
	return nil
}
