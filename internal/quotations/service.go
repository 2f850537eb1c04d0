package quotations

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/contacts"
	"github.com/fungus-mycelium/fungus-admin/internal/inventory"
	"github.com/fungus-mycelium/fungus-admin/internal/listview"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
)

// ClientSource lists the clients a quotation can be addressed to.
type ClientSource interface {
	All(ctx context.Context) ([]contacts.Contact, error)
}

// ProductSource lists the products a quotation can include.
type ProductSource interface {
	All(ctx context.Context) ([]inventory.Item, error)
}

// FormOptions are the choices of the quotation form.
type FormOptions struct {
	Clients  []contacts.Contact
	Products []inventory.Item
}

// transitionError carries a rejected status change.
type transitionError struct {
	err    error
	target status.Status
}

func (e transitionError) Error() string { return e.err.Error() }

func (e transitionError) UserMessage() string {
	return fmt.Sprintf("La cotización no puede pasar a %q.", status.Quotations.Label(e.target))
}

func (e transitionError) Unwrap() []error { return []error{e.err, api.ErrRejected} }

// Service coordinates quotation calls.
type Service struct {
	resource *api.Resource[Quotation]
	queries  *listview.Registry[Quotation]
	clients  ClientSource
	products ProductSource
}

// NewService builds the quotation service.
func NewService(client *api.Client, clients ClientSource, products ProductSource, idle time.Duration) *Service {
	resource := api.NewResource[Quotation](client, "/quotations")
	return &Service{
		resource: resource,
		queries: listview.NewRegistry(resource.Fetcher(), idle, listview.QueryOptions{
			Fallback:     "No se pudieron cargar las cotizaciones.",
			ShortCircuit: api.IsUnauthorized,
		}),
		clients:  clients,
		products: products,
	}
}

// Query returns the list query bound to a session.
func (s *Service) Query(sessionID string) *listview.Query[Quotation] {
	return s.queries.For(sessionID)
}

// ForgetSession drops the list state of a session.
func (s *Service) ForgetSession(sessionID string) {
	s.queries.Forget(sessionID)
}

// Get fetches one quotation.
func (s *Service) Get(ctx context.Context, id string) (Quotation, error) {
	return s.resource.Get(ctx, id)
}

// Options loads clients and products for the form concurrently.
func (s *Service) Options(ctx context.Context) (FormOptions, error) {
	var opts FormOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clients, err := s.clients.All(gctx)
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}
		opts.Clients = clients
		return nil
	})
	g.Go(func() error {
		products, err := s.products.All(gctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		opts.Products = products
		return nil
	})
	if err := g.Wait(); err != nil {
		return FormOptions{}, err
	}
	return opts, nil
}

// Create adds a pending quotation.
func (s *Service) Create(ctx context.Context, in Input) (Quotation, error) {
	return s.resource.Create(ctx, in)
}

// Update replaces a quotation that is still pending.
func (s *Service) Update(ctx context.Context, id string, in Input) (Quotation, error) {
	current, err := s.resource.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !current.Editable() {
		return Quotation{}, ErrLocked
	}
	return s.resource.Update(ctx, id, in)
}

// Delete removes a quotation that was not converted into a sale.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.resource.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Deletable() {
		return ErrLocked
	}
	return s.resource.Delete(ctx, id)
}

// ChangeStatus moves a quotation along its transition table. The current
// status is read first so that stale pages cannot skip a step.
func (s *Service) ChangeStatus(ctx context.Context, id string, target status.Status) (Quotation, error) {
	current, err := s.resource.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if err := status.Quotations.Validate(current.Status, target); err != nil {
		return Quotation{}, transitionError{err: err, target: target}
	}
	return s.resource.SetStatus(ctx, id, string(target))
}
