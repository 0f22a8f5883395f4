package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ftlext/kit"
	"github.com/hazyhaar/ftlext/telemetry"
)

const maxBodyBytes = 64 * 1024

func noRequest(*http.Request) (any, error) { return nil, nil }

func logFromURL(r *http.Request) (any, error) {
	return &logReq{Category: chi.URLParam(r, "category"), Format: r.URL.Query().Get("format")}, nil
}

// Router returns the HTTP surface. mcpSrv, when not nil, is mounted on
// /mcp over streamable HTTP.
func (s *Server) Router(mcpSrv *mcp.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(headToGet, securityHeaders, maxBody(maxBodyBytes), requestID(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", kit.HTTPHandler(s.endpoint("get_settings", s.getSettings), noRequest))
		r.Put("/settings/{key}", kit.HTTPHandler(s.endpoint("set_setting", s.setSetting), func(r *http.Request) (any, error) {
			var body struct {
				Value any `json:"value"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				return nil, fmt.Errorf("decode body: %w", err)
			}
			return &setSettingReq{Key: chi.URLParam(r, "key"), Value: body.Value}, nil
		}))

		r.Get("/logs/{category}", kit.HTTPHandler(s.endpoint("read_log", s.readLog), logFromURL))
		r.Get("/logs/{category}/markdown", s.markdown)
		r.Delete("/logs/{category}", kit.HTTPHandler(s.endpoint("clear_log", s.clearLog), logFromURL))

		r.Get("/stats", kit.HTTPHandler(s.endpoint("stats", s.stats), noRequest))
		r.Get("/classes", kit.HTTPHandler(s.endpoint("class_names", s.classNames), noRequest))
	})

	if mcpSrv != nil {
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	}
	return r
}

// markdown serves a log as a Markdown document.
func (s *Server) markdown(w http.ResponseWriter, r *http.Request) {
	c, err := s.category(chi.URLParam(r, "category"))
	if err != nil {
		kit.WriteError(w, http.StatusNotFound, err)
		return
	}
	md, err := s.logs.Markdown(r.Context(), c)
	if err != nil {
		s.logger.Warn("api: markdown export failed", "category", c, "error", err)
		kit.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(md))
}
