package listview

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/fungus-mycelium/fungus-admin/internal/shared"
)

// ErrModalOpen is returned when a second modal is opened over another one.
var ErrModalOpen = errors.New("listview: another modal is open")

// ModalKind names the row action a modal serves.
type ModalKind string

const (
	ModalNone    ModalKind = ""
	ModalView    ModalKind = "view"
	ModalEdit    ModalKind = "edit"
	ModalDelete  ModalKind = "delete"
	ModalCleanup ModalKind = "cleanup"
)

// ParseModalKind validates a kind from user input.
func ParseModalKind(value string) ModalKind {
	switch k := ModalKind(strings.TrimSpace(value)); k {
	case ModalView, ModalEdit, ModalDelete, ModalCleanup:
		return k
	}
	return ModalNone
}

// Modal is the row-action panel of a list: idle, or open on one target.
type Modal struct {
	Kind     ModalKind
	TargetID string
	Busy     bool
	Err      string
	// Refresh is set after a successful confirmation; the list must be fetched again.
	Refresh bool
}

// ModalFromQuery restores the open modal from ?modal=&id= parameters.
func ModalFromQuery(v url.Values) Modal {
	var m Modal
	kind := ParseModalKind(v.Get("modal"))
	if kind == ModalNone {
		return m
	}
	id := strings.TrimSpace(v.Get("id"))
	if id == "" && kind != ModalCleanup {
		return m
	}
	_ = m.Open(kind, id)
	return m
}

// IsOpen reports whether a modal is showing.
func (m Modal) IsOpen() bool {
	return m.Kind != ModalNone
}

// Open shows a modal for target. Only one modal can be open at a time.
func (m *Modal) Open(kind ModalKind, target string) error {
	if m.IsOpen() {
		return ErrModalOpen
	}
	m.Kind = kind
	m.TargetID = target
	m.Err = ""
	m.Busy = false
	m.Refresh = false
	return nil
}

// Close returns to idle.
func (m *Modal) Close() {
	m.Kind = ModalNone
	m.TargetID = ""
	m.Err = ""
	m.Busy = false
}

// Confirm runs the modal's action. Success closes the modal and marks the
// list for refresh; failure keeps it open with the error message.
func (m *Modal) Confirm(ctx context.Context, action func(context.Context) error) error {
	if !m.IsOpen() {
		return errors.New("listview: no modal open")
	}
	if m.Busy {
		return errors.New("listview: confirmation already running")
	}
	m.Busy = true
	m.Err = ""
	err := action(ctx)
	m.Busy = false
	if err != nil {
		m.Err = shared.UserMessage(err, "")
		return err
	}
	m.Close()
	m.Refresh = true
	return nil
}
