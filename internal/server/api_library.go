package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"vrbridge/internal/jellyfin"
	"vrbridge/internal/units"
)

// itemSummary is the shaped item metadata the VR client consumes. Upstream
// items carry far more than this; only what the shelf UI renders survives.
type itemSummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Overview        string   `json:"overview,omitempty"`
	SeriesName      string   `json:"seriesName,omitempty"`
	Year            int      `json:"year,omitempty"`
	RuntimeSeconds  float64  `json:"runtimeSeconds,omitempty"`
	Container       string   `json:"container,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	CommunityRating float64  `json:"communityRating,omitempty"`
	PrimaryImageTag string   `json:"primaryImageTag,omitempty"`
}

func summarizeItem(it *jellyfin.Item) itemSummary {
	if it == nil {
		return itemSummary{}
	}
	return itemSummary{
		ID:              it.ID,
		Name:            it.Name,
		Type:            it.Type,
		Overview:        it.Overview,
		SeriesName:      it.SeriesName,
		Year:            it.ProductionYear,
		RuntimeSeconds:  units.TicksToSeconds(it.RunTimeTicks),
		Container:       it.Container,
		Genres:          it.Genres,
		CommunityRating: it.CommunityRating,
		PrimaryImageTag: it.ImageTags["Primary"],
	}
}

type libraryView struct {
	jellyfin.Library
	ItemCount int `json:"itemCount"`
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.upstream.ListLibraries(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	// Item counts come from per-library queries; fetch them in parallel so
	// large installs don't pay for each library serially.
	views := make([]libraryView, len(libs))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, lib := range libs {
		views[i].Library = lib
		g.Go(func() error {
			_, total, err := s.upstream.ListItems(ctx, jellyfin.ItemsQuery{ParentID: lib.ID, Limit: 1})
			if err != nil {
				return err
			}
			views[i].ItemCount = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"libraries": views})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("search"))

	items, total, err := s.upstream.ListItems(r.Context(), jellyfin.ItemsQuery{
		ParentID:   chi.URLParam(r, "id"),
		SearchTerm: search,
		Genre:      q.Get("genre"),
		StartIndex: clampInt(q.Get("startIndex"), 1_000_000),
		Limit:      clampIntDefault(q.Get("limit"), 500, 50),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	if search != "" {
		rankItems(items, search)
	}

	summaries := make([]itemSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, summarizeItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": summaries,
		"total": total,
	})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.upstream.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeItem(item))
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.upstream.ListGenres(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

// rankItems reorders search results by relevance to the query. Upstream
// matching is substring-based and returns results in library order, which
// buries exact title hits under partial ones.
func rankItems(items []jellyfin.Item, query string) {
	sort.SliceStable(items, func(i, j int) bool {
		return relevance(items[i].Name, query) > relevance(items[j].Name, query)
	})
}

// relevance tiers: exact title match beats prefix, prefix beats substring,
// substring beats mere word overlap.
func relevance(name, query string) float64 {
	n := strings.ToLower(strings.TrimSpace(name))
	q := strings.ToLower(strings.TrimSpace(query))
	switch {
	case n == q:
		return 1000
	case strings.HasPrefix(n, q):
		return 750
	case strings.Contains(n, q):
		return 500
	}

	queryWords := strings.Fields(q)
	if len(queryWords) == 0 {
		return 0
	}
	matched := 0
	for _, qw := range queryWords {
		for _, nw := range strings.Fields(n) {
			if nw == qw {
				matched++
				break
			}
		}
	}
	return 100 * float64(matched) / float64(len(queryWords))
}

func clampIntDefault(s string, max, def int) int {
	if s == "" {
		return def
	}
	n := clampInt(s, max)
	if n == 0 {
		return def
	}
	return n
}
