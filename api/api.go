// Package api serves the settings, activity logs and runtime stats over
// HTTP and MCP. Both surfaces share the same endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/kit"
	"github.com/hazyhaar/ftlext/session"
	"github.com/hazyhaar/ftlext/settings"
)

// Runner is the part of session.Runner the API drives.
type Runner interface {
	SetSetting(ctx context.Context, key string, value any) error
	Stats(ctx context.Context) (session.Stats, error)
	ClassNames(ctx context.Context) (map[string]string, error)
}

// Server holds the endpoints.
type Server struct {
	runner   Runner
	settings *settings.Settings
	logs     *activitylog.Log
	logger   *slog.Logger
}

// New creates a Server. logger may be nil.
func New(runner Runner, st *settings.Settings, logs *activitylog.Log, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, settings: st, logs: logs, logger: logger}
}

func (s *Server) endpoint(op string, ep kit.Endpoint) kit.Endpoint {
	return kit.Logging(s.logger, op)(ep)
}

// SettingsView is the schema with the current values.
type SettingsView struct {
	Schema []settings.Definition `json:"schema"`
	Values map[string]any        `json:"values"`
}

func (s *Server) getSettings(_ context.Context, _ any) (any, error) {
	return SettingsView{Schema: settings.Schema, Values: s.settings.All()}, nil
}

type setSettingReq struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// setSetting validates like the settings editor does before saving.
func (s *Server) setSetting(ctx context.Context, req any) (any, error) {
	r := req.(*setSettingReq)
	if err := settings.Validate(r.Key, r.Value); err != nil {
		if errors.Is(err, settings.ErrUnknownSetting) {
			return nil, kit.WithStatus(http.StatusNotFound, err)
		}
		return nil, kit.WithStatus(http.StatusBadRequest, err)
	}
	if err := s.runner.SetSetting(ctx, r.Key, r.Value); err != nil {
		return nil, fmt.Errorf("api: set %s: %w", r.Key, err)
	}
	v, _ := s.settings.Get(r.Key)
	return map[string]any{"key": r.Key, "value": v}, nil
}

type logReq struct {
	Category string `json:"category"`
	Format   string `json:"format,omitempty"`
}

// LogView is one activity log in display order.
type LogView struct {
	Category string              `json:"category"`
	Title    string              `json:"title"`
	Enabled  bool                `json:"enabled"`
	Entries  []activitylog.Entry `json:"entries,omitempty"`
	Markdown string              `json:"markdown,omitempty"`
}

func (s *Server) category(name string) (activitylog.Category, error) {
	c, err := activitylog.ParseCategory(name)
	if err != nil {
		return "", kit.WithStatus(http.StatusNotFound, err)
	}
	return c, nil
}

func (s *Server) readLog(ctx context.Context, req any) (any, error) {
	r := req.(*logReq)
	c, err := s.category(r.Category)
	if err != nil {
		return nil, err
	}
	v := LogView{Category: string(c), Title: c.Title(), Enabled: s.logs.Enabled(c)}
	switch r.Format {
	case "", "json":
		v.Entries = s.logs.Entries(ctx, c)
	case "markdown":
		md, err := s.logs.Markdown(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("api: export %s: %w", c, err)
		}
		v.Markdown = md
	default:
		return nil, kit.WithStatus(http.StatusBadRequest, fmt.Errorf("api: unknown format %q", r.Format))
	}
	return v, nil
}

func (s *Server) clearLog(ctx context.Context, req any) (any, error) {
	c, err := s.category(req.(*logReq).Category)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Clear(ctx, c); err != nil {
		return nil, err
	}
	return map[string]any{"category": string(c), "cleared": true}, nil
}

func (s *Server) stats(ctx context.Context, _ any) (any, error) {
	return s.runner.Stats(ctx)
}

func (s *Server) classNames(ctx context.Context, _ any) (any, error) {
	return s.runner.ClassNames(ctx)
}
