// Package repo contains all persistence access for the Tripboard API.
// The trip lives in a single JSON document keyed by trip id; this package
// defines the abstract document store plus its Postgres and in-memory
// implementations. No business logic lives here.
package repo

import (
	"context"
	"encoding/json"
)

// DocumentStore is the contract the gateway and sync adapter depend on:
// get/set/delete plus a change subscription for one document.
// Implementations must treat the document as opaque JSON.
type DocumentStore interface {
	// Get returns the stored document. Returns domain.ErrNotFound when no
	// document with that id exists.
	Get(ctx context.Context, id string) (json.RawMessage, error)

	// Set creates or fully replaces the document.
	Set(ctx context.Context, id string, doc json.RawMessage) error

	// Delete removes the document. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Subscribe registers fn for change notifications on the document with
	// the given id. fn is first invoked with the current document (or nil
	// when none exists) shortly after subscribing, then once per remote
	// change; a deletion delivers nil. fn is called from a background
	// goroutine owned by the store. The returned function cancels the
	// subscription; cancelling ctx does too.
	Subscribe(ctx context.Context, id string, fn func(json.RawMessage)) (func(), error)
}
