// Package session runs the feature set against a mirrored page. A Runner
// owns the event loop and the current Session; every snapshot from the page
// starts a new Session, every batch is replayed on the current one, and
// after each loop task the outbound changes are committed to the page.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/engine"
	"github.com/hazyhaar/ftlext/eventloop"
	"github.com/hazyhaar/ftlext/features"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/mirror"
	"github.com/hazyhaar/ftlext/mutation"
	"github.com/hazyhaar/ftlext/recipes"
	"github.com/hazyhaar/ftlext/settings"
	"github.com/hazyhaar/ftlext/telemetry"
)

// ErrNoSession is returned by Do before the first snapshot.
var ErrNoSession = errors.New("session: no page loaded")

// Deps are shared by every session of a Runner.
type Deps struct {
	Settings *settings.Settings
	Logs     *activitylog.Log
	Recipes  *recipes.Book
	Features features.Config
	// OnSettings runs when the extension's settings button is clicked.
	OnSettings func()
	Debug      bool
	Logger     *slog.Logger
}

// Session is one loaded document.
type Session struct {
	Mirror   *mirror.Mirror
	Engine   *engine.Context
	Features *features.Features
	Boot     *engine.Bootstrap
	Started  time.Time
}

// Runner drives sessions on a loop.
type Runner struct {
	ctx    context.Context
	loop   *eventloop.Loop
	page   Page
	deps   Deps
	logger *slog.Logger
	rec    *mutation.Recorder
	newID  idgen.Generator

	cur      *Session
	sessions int
	inbound  uint64
	outbound uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder records every inbound snapshot and batch.
func WithRecorder(rec *mutation.Recorder) Option { return func(r *Runner) { r.rec = rec } }

// WithNodeIDs replaces idgen.Node for nodes created by features.
func WithNodeIDs(g idgen.Generator) Option { return func(r *Runner) { r.newID = g } }

// NewRunner creates a Runner and registers its checkpoint on loop. ctx
// bounds the storage writes of feature handlers.
func NewRunner(ctx context.Context, loop *eventloop.Loop, page Page, deps Deps, opts ...Option) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Runner{
		ctx:    ctx,
		loop:   loop,
		page:   page,
		deps:   deps,
		logger: deps.Logger,
		newID:  idgen.Node,
	}
	for _, o := range opts {
		o(r)
	}
	loop.OnCheckpoint(r.checkpoint)
	return r
}

// Snapshot starts a new session for snap on the loop. It reports false if
// the loop is closed.
func (r *Runner) Snapshot(snap *mutation.Snapshot) bool {
	if r.rec != nil {
		if err := r.rec.Snapshot(snap); err != nil {
			r.logger.Warn("session: record snapshot failed", "error", err)
		}
	}
	return r.loop.Post(func() { r.load(snap) })
}

// Batch replays b on the current session on the loop.
func (r *Runner) Batch(b *mutation.Batch) bool {
	if r.rec != nil {
		if err := r.rec.Batch(b); err != nil {
			r.logger.Warn("session: record batch failed", "error", err)
		}
	}
	return r.loop.Post(func() { r.apply(b) })
}

// Do runs fn on the loop with the current session and waits for it.
func (r *Runner) Do(ctx context.Context, fn func(*Session) error) error {
	return r.loop.Do(ctx, func() error {
		if r.cur == nil {
			return ErrNoSession
		}
		return fn(r.cur)
	})
}

// SetSetting writes a setting on the loop so change hooks see a
// consistent document.
func (r *Runner) SetSetting(ctx context.Context, key string, value any) error {
	return r.loop.Do(ctx, func() error {
		return r.deps.Settings.Set(r.ctx, key, value)
	})
}

// SetRecipes swaps the recipe table of the current and future sessions.
func (r *Runner) SetRecipes(b *recipes.Book) {
	r.loop.Post(func() {
		r.deps.Recipes = b
		if r.cur != nil {
			r.cur.Features.SetRecipes(b)
		}
	})
}

// Close stops the current session's features.
func (r *Runner) Close() {
	r.loop.Post(func() {
		if r.cur != nil {
			r.cur.Features.Stop()
			r.cur = nil
		}
	})
}

func (r *Runner) load(snap *mutation.Snapshot) {
	if r.cur != nil {
		r.checkpoint()
		r.cur.Features.Stop()
		r.cur = nil
	}
	m, err := mirror.Build(snap, mirror.WithLogger(r.logger), mirror.WithIDGenerator(r.newID), mirror.WithClock(r.loop.Now))
	if err != nil {
		r.logger.Error("session: cannot load snapshot", "url", snap.PageURL, "error", err)
		return
	}
	eng := engine.New(m.Doc(), r.loop, engine.WithLogger(r.logger), engine.WithDebug(r.deps.Debug))
	opts := []features.Option{features.WithConfig(r.deps.Features)}
	if r.deps.Recipes != nil {
		opts = append(opts, features.WithRecipes(r.deps.Recipes))
	}
	if r.deps.OnSettings != nil {
		opts = append(opts, features.WithSettingsOpener(r.deps.OnSettings))
	}
	s := &Session{Mirror: m, Engine: eng, Started: r.loop.Now()}
	s.Features = features.New(eng, r.deps.Settings, r.deps.Logs, &host{r: r, s: s}, opts...)
	r.cur = s
	r.sessions++
	s.Boot = s.Features.Start(r.ctx)
	telemetry.SessionsStarted.Inc()
	r.logger.Info("session: started", "url", snap.PageURL, "snapshot", snap.ID, "session", r.sessions)
}

func (r *Runner) apply(b *mutation.Batch) {
	if r.cur == nil {
		r.logger.Debug("session: batch before snapshot dropped", "seq", b.Seq)
		return
	}
	if b.SnapshotRef != "" && b.SnapshotRef != r.cur.Mirror.SnapshotID() {
		r.logger.Debug("session: stale batch dropped", "seq", b.Seq, "snapshot", b.SnapshotRef)
		return
	}
	r.inbound++
	telemetry.InboundBatches.Inc()
	telemetry.TimeFunc(telemetry.ApplyDuration, func() { r.cur.Mirror.Apply(b) })
}

func (r *Runner) checkpoint() {
	s := r.cur
	if s == nil {
		return
	}
	s.Mirror.Doc().Flush()
	r.push(s)
	telemetry.Observe(r.stats().gauges())
}

// push commits the changes s made since the last push.
func (r *Runner) push(s *Session) {
	b := s.Mirror.Drain()
	if b == nil {
		return
	}
	r.outbound++
	telemetry.OutboundBatches.Inc()
	telemetry.OutboundRecords.Add(float64(len(b.Records)))
	r.page.Commit(b)
}
