package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/fungus-mycelium/fungus-admin/internal/listview"
)

// Resource is a REST collection such as /products or /logs.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to a client.
func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: "/" + strings.Trim(path, "/")}
}

// Path is the collection path.
func (r *Resource[T]) Path() string { return r.path }

// All fetches the full collection.
func (r *Resource[T]) All(ctx context.Context) ([]T, error) {
	env, err := r.client.Get(ctx, r.path, nil)
	if err != nil {
		return nil, err
	}
	return Decode[[]T](env)
}

// Page fetches one server-side page. When the API omits the pagination
// envelope the rows are paged locally.
func (r *Resource[T]) Page(ctx context.Context, f listview.Filters) (listview.Page[T], error) {
	env, err := r.client.Get(ctx, r.path, f.Values())
	if err != nil {
		return listview.Page[T]{}, err
	}
	rows, err := Decode[[]T](env)
	if err != nil {
		return listview.Page[T]{}, err
	}
	if env.Pagination == nil {
		pageRows, p := listview.PaginateSlice(rows, f.Page, f.Limit)
		return listview.Page[T]{Rows: pageRows, Pagination: p}, nil
	}
	return listview.Page[T]{Rows: rows, Pagination: *env.Pagination}, nil
}

// Fetcher adapts Page to a listview.Fetcher.
func (r *Resource[T]) Fetcher() listview.Fetcher[T] {
	return r.Page
}

// Get fetches one document.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	env, err := r.client.Get(ctx, r.item(id), nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](env)
}

// Create posts a new document and returns the stored version.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	env, err := r.client.Post(ctx, r.path, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](env)
}

// Update replaces a document.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	env, err := r.client.Put(ctx, r.item(id), body)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](env)
}

// SetStatus moves a document to another status.
func (r *Resource[T]) SetStatus(ctx context.Context, id, status string) (T, error) {
	env, err := r.client.Patch(ctx, r.item(id)+"/status", map[string]string{"status": status})
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](env)
}

// Delete removes a document.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.Delete(ctx, r.item(id), nil)
	return err
}

// Sub fetches a nested collection such as /clients/{id}/transactions.
func (r *Resource[T]) Sub(ctx context.Context, id, name string, query url.Values) (*Envelope, error) {
	return r.client.Get(ctx, r.item(id)+"/"+strings.Trim(name, "/"), query)
}

func (r *Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
