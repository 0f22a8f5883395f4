// Package recipes loads the crafting recipe table and answers ingredient
// lookups for the craft and consume modals.
//
// The published table is a base64 encoded JSON array. When the remote copy
// cannot be fetched or decoded, the bundled offline copy is used instead.
package recipes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultURL is where the maintained table is published.
const DefaultURL = "https://barrythepirate.github.io/recipes.b64"

// Recipe combines two ingredients into a result.
type Recipe struct {
	Ingredients []string `json:"ingredients"`
	Result      string   `json:"result"`
}

// Book is an immutable recipe table.
type Book struct {
	recipes []Recipe
	source  string
}

// NewBook wraps recipes.
func NewBook(recipes []Recipe, source string) *Book {
	return &Book{recipes: recipes, source: source}
}

// Len returns the number of recipes.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.recipes)
}

// Source tells where the table came from ("remote", "offline" or a path).
func (b *Book) Source() string {
	if b == nil {
		return ""
	}
	return b.source
}

// Find returns the recipes matching ingredients. One ingredient matches any
// recipe using it; two match the exact pair in any order, duplicates
// included. Any other count matches nothing.
func (b *Book) Find(ingredients ...string) []Recipe {
	if b == nil {
		return nil
	}
	var out []Recipe
	switch len(ingredients) {
	case 1:
		for _, r := range b.recipes {
			for _, in := range r.Ingredients {
				if in == ingredients[0] {
					out = append(out, r)
					break
				}
			}
		}
	case 2:
		want := []string{ingredients[0], ingredients[1]}
		sort.Strings(want)
		for _, r := range b.recipes {
			if len(r.Ingredients) < 2 {
				continue
			}
			got := append([]string(nil), r.Ingredients...)
			sort.Strings(got)
			if got[0] == want[0] && got[1] == want[1] {
				out = append(out, r)
			}
		}
	}
	return out
}

// Decode parses a base64 encoded JSON recipe array.
func Decode(r io.Reader) ([]Recipe, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("recipes: read: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("recipes: base64: %w", err)
	}
	var out []Recipe
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("recipes: json: %w", err)
	}
	return out, nil
}

// Encode is the inverse of Decode.
func Encode(w io.Writer, recipes []Recipe) error {
	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("recipes: json: %w", err)
	}
	_, err = io.WriteString(w, base64.StdEncoding.EncodeToString(data))
	return err
}

// Config configures a Loader.
type Config struct {
	URL         string        `yaml:"url"`
	OfflinePath string        `yaml:"offline_path"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxBytes    int64         `yaml:"max_bytes"`
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 4 * 1024 * 1024
	}
}

// Loader fetches the table.
type Loader struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a Loader. A nil logger uses slog.Default().
func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Load fetches the remote table, falling back to the offline file. It only
// fails when neither is usable.
func (l *Loader) Load(ctx context.Context) (*Book, error) {
	recipes, err := l.fetch(ctx)
	if err == nil {
		l.logger.Info("recipes: loaded", "source", "remote", "count", len(recipes))
		return NewBook(recipes, "remote"), nil
	}
	l.logger.Error("recipes: failed to load or decode remote table", "error", err)

	if l.cfg.OfflinePath == "" {
		return nil, fmt.Errorf("recipes: remote failed and no offline copy: %w", err)
	}
	l.logger.Warn("recipes: using offline copy, may be outdated", "path", l.cfg.OfflinePath)
	f, ferr := os.Open(l.cfg.OfflinePath)
	if ferr != nil {
		return nil, errors.Join(err, fmt.Errorf("recipes: offline: %w", ferr))
	}
	defer f.Close()
	recipes, ferr = Decode(f)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return NewBook(recipes, "offline"), nil
}

func (l *Loader) fetch(ctx context.Context) ([]Recipe, error) {
	u, err := url.Parse(l.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("recipes: url: %w", err)
	}
	q := u.Query()
	q.Set("nocache", strconv.FormatInt(l.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("recipes: new request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recipes: http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recipes: http %d", resp.StatusCode)
	}
	return Decode(io.LimitReader(resp.Body, l.cfg.MaxBytes))
}

// Ordered returns a and b with the ingredient matching query first, the way
// the recipe table is displayed.
func Ordered(r Recipe, query string) (string, string) {
	if len(r.Ingredients) < 2 {
		if len(r.Ingredients) == 1 {
			return r.Ingredients[0], ""
		}
		return "", ""
	}
	a, b := r.Ingredients[0], r.Ingredients[1]
	if strings.Contains(strings.ToLower(b), strings.ToLower(query)) {
		return b, a
	}
	return a, b
}
