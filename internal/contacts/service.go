package contacts

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
)

// Detail is everything shown on the page of one contact. Metrics and
// transactions are optional: their failures are reported next to them.
type Detail struct {
	Contact         Contact
	Metrics         *Metrics
	MetricsErr      string
	Transactions    []Transaction
	TransactionsErr string
}

// Service coordinates contact calls for one directory.
type Service struct {
	resource *api.Resource[Contact]
	queries  *listview.Registry[Contact]
}

// NewService builds the service of one directory. List queries idle longer
// than idle are dropped.
func NewService(client *api.Client, dir Directory, idle time.Duration) *Service {
	resource := api.NewResource[Contact](client, dir.Path)
	return &Service{
		resource: resource,
		queries: listview.NewRegistry(resource.Fetcher(), idle, listview.QueryOptions{
			Fallback:     "No se pudieron cargar los " + strings.ToLower(dir.Title) + ".",
			ShortCircuit: api.IsUnauthorized,
		}),
	}
}

// Query returns the list query bound to a session.
func (s *Service) Query(sessionID string) *listview.Query[Contact] {
	return s.queries.For(sessionID)
}

// ForgetSession drops the list state of a session.
func (s *Service) ForgetSession(sessionID string) {
	s.queries.Forget(sessionID)
}

// All returns the whole directory, for select boxes.
func (s *Service) All(ctx context.Context) ([]Contact, error) {
	return s.resource.All(ctx)
}

// Get fetches one contact.
func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	return s.resource.Get(ctx, id)
}

// Create adds a contact.
func (s *Service) Create(ctx context.Context, in Input) (Contact, error) {
	return s.resource.Create(ctx, in)
}

// Update replaces the fields of a contact.
func (s *Service) Update(ctx context.Context, id string, in Input) (Contact, error) {
	return s.resource.Update(ctx, id, in)
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.resource.Delete(ctx, id)
}

// Detail loads the contact, its metrics and its latest transactions
// concurrently. Only a failure to load the contact itself is returned.
func (s *Service) Detail(ctx context.Context, id string, limit int) (Detail, error) {
	var d Detail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.resource.Get(gctx, id)
		if err != nil {
			return err
		}
		d.Contact = c
		return nil
	})
	g.Go(func() error {
		env, err := s.resource.Sub(gctx, id, "metrics", nil)
		if err == nil {
			var m Metrics
			if m, err = api.Decode[Metrics](env); err == nil {
				d.Metrics = &m
				return nil
			}
		}
		if api.IsUnauthorized(err) {
			return err
		}
		d.MetricsErr = "No se pudieron cargar las métricas."
		return nil
	})
	g.Go(func() error {
		env, err := s.resource.Sub(gctx, id, "transactions", url.Values{"limit": {strconv.Itoa(limit)}})
		if err == nil {
			if d.Transactions, err = api.Decode[[]Transaction](env); err == nil {
				return nil
			}
		}
		if api.IsUnauthorized(err) {
			return err
		}
		d.TransactionsErr = "No se pudieron cargar las transacciones."
		return nil
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	return d, nil
}
