package inventory

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

// Service loads a whole catalog from the API and sorts and pages it locally.
type Service struct {
	resource *api.Resource[Item]
	sorter   *listview.Sorter
	loads    singleflight.Group
	queries  *listview.Registry[Item]
}

// NewService builds the service of one catalog. List queries idle longer
// than idle are dropped.
func NewService(client *api.Client, catalog Catalog, idle time.Duration) *Service {
	s := &Service{
		resource: api.NewResource[Item](client, catalog.Path),
		sorter:   listview.NewSpanishSorter(),
	}
	s.queries = listview.NewRegistry[Item](s.List, idle, listview.QueryOptions{
		Fallback:     "No se pudieron cargar los " + strings.ToLower(catalog.Title) + ".",
		ShortCircuit: api.IsUnauthorized,
	})
	return s
}

// Query returns the list query bound to a session.
func (s *Service) Query(sessionID string) *listview.Query[Item] {
	return s.queries.For(sessionID)
}

// ForgetSession drops the list state of a session.
func (s *Service) ForgetSession(sessionID string) {
	s.queries.Forget(sessionID)
}

// All returns every item. Concurrent loads of the same session share one call.
func (s *Service) All(ctx context.Context) ([]Item, error) {
	key := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		key = sess.ID
	}
	v, err, _ := s.loads.Do(key, func() (any, error) {
		return s.resource.All(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Item)), nil
}

// List filters the catalog by f.Search, sorts it by f.Sort and cuts the
// requested page. The sort covers the whole catalog, not only the page.
func (s *Service) List(ctx context.Context, f listview.Filters) (listview.Page[Item], error) {
	f = f.Normalize()
	items, err := s.All(ctx)
	if err != nil {
		return listview.Page[Item]{}, err
	}
	items = matching(items, f.Search)
	listview.SortRows(s.sorter, items, f.Sort, sortField)
	rows, pagination := listview.PaginateSlice(items, f.Page, f.Limit)
	return listview.Page[Item]{Rows: rows, Pagination: pagination}, nil
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.resource.Get(ctx, id)
}

// Create adds an item.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	return s.resource.Create(ctx, in)
}

// Update replaces the fields of an item.
func (s *Service) Update(ctx context.Context, id string, in Input) (Item, error) {
	return s.resource.Update(ctx, id, in)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.resource.Delete(ctx, id)
}

// matching keeps the items whose name, category or description contain
// term, ignoring case and accents.
func matching(items []Item, term string) []Item {
	if term == "" {
		return items
	}
	m := search.New(language.Spanish, search.IgnoreCase, search.IgnoreDiacritics)
	pattern := m.CompileString(term)
	out := items[:0]
	for _, it := range items {
		for _, field := range []string{it.Name, it.Category, it.Description} {
			if start, _ := pattern.IndexString(field); start >= 0 {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
