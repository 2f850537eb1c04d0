package logs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
)

const (
	// DefaultCleanupDays is offered in the cleanup panel.
	DefaultCleanupDays = 30
	// MaxCleanupDays bounds the retention window.
	MaxCleanupDays = 365
)

// ErrInvalidDays rejects a cleanup window outside [1, MaxCleanupDays].
var ErrInvalidDays = invalidDaysError{}

type invalidDaysError struct{}

func (invalidDaysError) Error() string { return "logs: invalid cleanup window" }

func (invalidDaysError) UserMessage() string {
	return fmt.Sprintf("Indica un número de días entre 1 y %d.", MaxCleanupDays)
}

// Service coordinates activity log calls.
type Service struct {
	client   *api.Client
	resource *api.Resource[Entry]
	queries  *listview.Registry[Entry]
}

// NewService creates the log service. Queries idle longer than idle are dropped.
func NewService(client *api.Client, idle time.Duration) *Service {
	resource := api.NewResource[Entry](client, "/logs")
	return &Service{
		client:   client,
		resource: resource,
		queries: listview.NewRegistry(resource.Fetcher(), idle, listview.QueryOptions{
			Fallback:     "No se pudieron cargar los registros.",
			ShortCircuit: api.IsUnauthorized,
		}),
	}
}

// Query returns the list query bound to a session.
func (s *Service) Query(sessionID string) *listview.Query[Entry] {
	return s.queries.For(sessionID)
}

// ForgetSession drops the list state of a session.
func (s *Service) ForgetSession(sessionID string) {
	s.queries.Forget(sessionID)
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	return s.resource.Get(ctx, id)
}

// Delete removes one entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.resource.Delete(ctx, id)
}

// Cleanup removes entries older than days.
func (s *Service) Cleanup(ctx context.Context, days int) (CleanupResult, error) {
	if days < 1 || days > MaxCleanupDays {
		return CleanupResult{}, ErrInvalidDays
	}
	env, err := s.client.Delete(ctx, s.resource.Path()+"/cleanup", url.Values{"days": {strconv.Itoa(days)}})
	if err != nil {
		return CleanupResult{}, err
	}
	return api.Decode[CleanupResult](env)
}
