// Package reload swaps contract snapshots atomically while traffic is
// being validated. Validation calls read one immutable engine snapshot;
// a reload builds a complete replacement off the hot path and swaps it
// in one atomic store, so the old snapshot survives any failed reload.
package reload

import (
	"fmt"
	"sync/atomic"

	"github.com/apiwarden/apiwarden/contract"
	"github.com/apiwarden/apiwarden/enforcer"
)

// Holder holds the current validation engine snapshot.
type Holder struct {
	current atomic.Pointer[enforcer.Enforcer]
	path    string
	strict  bool
}

// NewHolder builds a Holder by loading the contract at path.
func NewHolder(path string, strict bool) (*Holder, error) {
	h := &Holder{path: path, strict: strict}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewHolderFrom wraps an already constructed engine. Reload is
// unavailable without a source path.
func NewHolderFrom(e *enforcer.Enforcer) *Holder {
	h := &Holder{strict: e.StrictMode()}
	h.current.Store(e)
	return h
}

// Get returns the current engine snapshot. The returned engine stays
// valid for the caller's whole request/response pair even if a reload
// lands in between.
func (h *Holder) Get() *enforcer.Enforcer {
	return h.current.Load()
}

// Path returns the contract file this holder reloads from. Empty for
// holders built with NewHolderFrom.
func (h *Holder) Path() string {
	return h.path
}

// Reload loads the contract file again and swaps in a new engine. On
// any failure the previous snapshot stays active and the error is
// returned.
func (h *Holder) Reload() error {
	if h.path == "" {
		return fmt.Errorf("reload: holder has no contract path")
	}
	doc, err := contract.LoadFile(h.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	e, err := enforcer.New(doc, h.strict)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	h.current.Store(e)
	return nil
}
