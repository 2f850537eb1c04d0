package listview

import (
	"context"
	"errors"
	"sync"

	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

// ErrSuperseded is returned when a newer request was issued while a
// response was in flight. The response is dropped.
var ErrSuperseded = errors.New("listview: response superseded by a newer request")

// Status is the observable phase of a query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Page is one fetched page of rows with its pagination envelope.
type Page[T any] struct {
	Rows       []T
	Pagination Pagination
}

// Fetcher performs the remote call for a filter set.
type Fetcher[T any] func(ctx context.Context, f Filters) (Page[T], error)

// State is a snapshot of a query.
type State[T any] struct {
	Status     Status
	Filters    Filters
	Rows       []T
	Pagination Pagination
	Loading    bool
	Err        string
	Seq        uint64
}

// QueryOptions tunes error handling.
type QueryOptions struct {
	// Fallback is the message used when an error carries none.
	Fallback string
	// ShortCircuit marks errors handled elsewhere (for instance an expired
	// session). They leave no message on the state.
	ShortCircuit func(error) bool
}

// Query drives one list: every SetFilters issues exactly one fetch, and
// only the response to the latest issued fetch is applied.
type Query[T any] struct {
	fetch Fetcher[T]
	opts  QueryOptions

	mu      sync.Mutex
	seq     uint64
	state   State[T]
	subs    map[int]chan State[T]
	nextSub int
}

// NewQuery constructs a query in the idle state with default filters.
func NewQuery[T any](fetch Fetcher[T], opts QueryOptions) *Query[T] {
	return &Query[T]{
		fetch: fetch,
		opts:  opts,
		state: State[T]{Status: StatusIdle, Filters: DefaultFilters()},
		subs:  make(map[int]chan State[T]),
	}
}

// State returns the current snapshot.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

// SetFilters replaces the filters and fetches the matching page. The
// returned state is the one after the response was applied. When a newer
// call overtook this one, the current state and ErrSuperseded are returned.
// Failures keep the previous rows and pagination.
func (q *Query[T]) SetFilters(ctx context.Context, f Filters) (State[T], error) {
	f = f.Normalize()

	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.state.Seq = seq
	q.state.Filters = f
	q.state.Loading = true
	q.state.Status = StatusLoading
	q.state.Err = ""
	q.publishLocked()
	q.mu.Unlock()

	page, err := q.fetch(ctx, f)

	q.mu.Lock()
	defer q.mu.Unlock()
	if seq != q.seq {
		return q.snapshot(), ErrSuperseded
	}
	q.state.Loading = false
	switch {
	case err == nil:
		q.state.Rows = page.Rows
		q.state.Pagination = page.Pagination
		q.state.Status = StatusSuccess
	case q.opts.ShortCircuit != nil && q.opts.ShortCircuit(err):
		q.state.Status = StatusIdle
	default:
		q.state.Status = StatusError
		q.state.Err = shared.UserMessage(err, q.opts.Fallback)
	}
	q.publishLocked()
	return q.snapshot(), err
}

// Refresh fetches again with the current filters.
func (q *Query[T]) Refresh(ctx context.Context) (State[T], error) {
	return q.SetFilters(ctx, q.State().Filters)
}

// Subscribe returns a channel receiving every state change. Slow readers
// only ever see the latest state. The returned func unsubscribes.
func (q *Query[T]) Subscribe() (<-chan State[T], func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	ch := make(chan State[T], 1)
	q.subs[id] = ch
	return ch, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if sub, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(sub)
		}
	}
}

func (q *Query[T]) publishLocked() {
	snap := q.snapshot()
	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (q *Query[T]) snapshot() State[T] {
	s := q.state
	if s.Rows != nil {
		s.Rows = append([]T(nil), s.Rows...)
	}
	return s
}
