package webserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"go.uber.org/zap"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Shared by every page set.
var baseTemplates = []string{"layout.html", "partials.html"}

// Pages rendered through the layout.
var pageTemplates = []string{"recipe", "convert", "listing"}

// renderer owns the parsed template sets and can reload them from disk.
type renderer struct {
	source fs.FS
	logger *zap.Logger

	mu        sync.RWMutex
	pages     map[string]*template.Template
	fragments *template.Template
}

// embeddedTemplates is the templates directory compiled into the binary.
func embeddedTemplates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func newRenderer(source fs.FS, logger *zap.Logger) (*renderer, error) {
	r := &renderer{source: source, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload parses every template again. On failure the previous sets stay
// active.
func (r *renderer) Reload() error {
	base, err := template.New("base").Funcs(templateFuncs).ParseFS(r.source, baseTemplates...)
	if err != nil {
		return fmt.Errorf("failed to parse base templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		set, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone base templates: %w", err)
		}
		if _, err := set.ParseFS(r.source, name+".html"); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = set
	}

	r.mu.Lock()
	r.pages = pages
	r.fragments = base
	r.mu.Unlock()

	r.logger.Debug("Templates parsed", zap.Strings("pages", pageTemplates))
	return nil
}

// page renders a full page through the layout.
func (r *renderer) page(w http.ResponseWriter, status int, name string, data *PageData) {
	r.mu.RLock()
	set, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("Unknown page template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	r.execute(w, status, set, "layout", data)
}

// fragment renders one named partial, for htmx swaps.
func (r *renderer) fragment(w http.ResponseWriter, status int, name string, data interface{}) {
	r.mu.RLock()
	set := r.fragments
	r.mu.RUnlock()
	r.execute(w, status, set, name, data)
}

func (r *renderer) execute(w http.ResponseWriter, status int, set *template.Template, name string, data interface{}) {
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("Failed to execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"initial": func(title string) string {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(title))
		if r == utf8.RuneError {
			return "?"
		}
		return strings.ToUpper(string(r))
	},
	"minutes": func(total int) string {
		if total < 60 {
			return strconv.Itoa(total) + " min"
		}
		if total%60 == 0 {
			return strconv.Itoa(total/60) + " hr"
		}
		return fmt.Sprintf("%d hr %d min", total/60, total%60)
	},
	"carousel":   recipe.Carousel,
	"listingURL": listingURL,
}

// listingURL links to page of a listing, keeping the query and filters.
func listingURL(query recipe.ListQuery, page int) string {
	path := "/search"
	if query.Mode == recipe.ModeFavorites {
		path = "/favorites"
	}

	values := url.Values{}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if query.Query != "" {
		values.Set("q", query.Query)
	}
	if query.Mode != recipe.ModeFavorites {
		if query.SortBy != "" && query.SortBy != recipe.SortNewest {
			values.Set("sort_by", string(query.SortBy))
		}
		if query.DateRange != "" && query.DateRange != recipe.DateRangeAll {
			values.Set("date_range", string(query.DateRange))
		}
	}

	if encoded := values.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}
