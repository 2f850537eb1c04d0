package api

import (
	"encoding/json"
	"fmt"

	"github.com/fungus-mycelium/fungus-admin/internal/listview"
)

// Envelope is the JSON wrapper of every API answer.
type Envelope struct {
	Success    bool                 `json:"success"`
	Data       json.RawMessage      `json:"data,omitempty"`
	Pagination *listview.Pagination `json:"pagination,omitempty"`
	Message    string               `json:"message,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// ServerMessage prefers message over error.
func (e *Envelope) ServerMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Decode unmarshals the data field into T. A missing or null field yields
// the zero value.
func Decode[T any](env *Envelope) (T, error) {
	var out T
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("api: decode data: %w", err)
	}
	return out, nil
}
