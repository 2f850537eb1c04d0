package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
)

type transitionError struct {
	err   error
	label string
}

func (e transitionError) Error() string { return e.err.Error() }

func (e transitionError) UserMessage() string {
	return fmt.Sprintf("El documento no puede pasar a %q.", e.label)
}

func (e transitionError) Unwrap() []error { return []error{e.err, api.ErrRejected} }

// Service coordinates calls for one order kind.
type Service struct {
	kind     Kind
	resource *api.Resource[Order]
	queries  *listview.Registry[Order]
}

// NewService builds the service of kind.
func NewService(client *api.Client, kind Kind, idle time.Duration) *Service {
	resource := api.NewResource[Order](client, kind.Path)
	return &Service{
		kind:     kind,
		resource: resource,
		queries: listview.NewRegistry(resource.Fetcher(), idle, listview.QueryOptions{
			Fallback:     "No se pudieron cargar las " + strings.ToLower(kind.Title) + ".",
			ShortCircuit: api.IsUnauthorized,
		}),
	}
}

// Query returns the list query bound to a session.
func (s *Service) Query(sessionID string) *listview.Query[Order] {
	return s.queries.For(sessionID)
}

// ForgetSession drops the list state of a session.
func (s *Service) ForgetSession(sessionID string) {
	s.queries.Forget(sessionID)
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.resource.Get(ctx, id)
}

// ChangeStatus moves an order along the table of its kind.
func (s *Service) ChangeStatus(ctx context.Context, id string, target status.Status) (Order, error) {
	current, err := s.resource.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := s.kind.Table.Validate(current.Status, target); err != nil {
		return Order{}, transitionError{err: err, label: s.kind.Table.Label(target)}
	}
	return s.resource.SetStatus(ctx, id, string(target))
}
