package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is one stored JSON document. Collection is a slash separated
// path such as "users/u1/orders".
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

// WriteOp is the kind of a batched write.
type WriteOp int

const (
	OpSet WriteOp = iota
	OpDelete
	// OpCreate fails the whole batch with errors.ErrConflict when the id is
	// taken.
	OpCreate
)

// Write is one operation inside a Batch.
type Write struct {
	Op         WriteOp
	Collection string
	ID         string
	Data       json.RawMessage
}

// SetWrite returns a full-overwrite write of v.
func SetWrite(collection, id string, v interface{}) (Write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Write{}, err
	}
	return Write{Op: OpSet, Collection: collection, ID: id, Data: data}, nil
}

// CreateWrite returns an insert of v that must not overwrite.
func CreateWrite(collection, id string, v interface{}) (Write, error) {
	w, err := SetWrite(collection, id, v)
	w.Op = OpCreate
	return w, err
}

// DeleteWrite returns a delete of one document.
func DeleteWrite(collection, id string) Write {
	return Write{Op: OpDelete, Collection: collection, ID: id}
}

// DocumentStore persists per-key JSON documents grouped into collections.
// Get and Delete return errors.ErrNotFound for missing documents. Create
// returns errors.ErrConflict when the id is taken. List returns documents in
// the order they were first written.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	List(ctx context.Context, collection string) ([]*Document, error)
	Set(ctx context.Context, collection, id string, data json.RawMessage) error
	Create(ctx context.Context, collection, id string, data json.RawMessage) error
	Add(ctx context.Context, collection string, data json.RawMessage) (string, error)
	Delete(ctx context.Context, collection, id string) error
	// Batch applies all writes or none of them.
	Batch(ctx context.Context, writes ...Write) error
	Ping(ctx context.Context) error
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

func collectionPath(parts ...string) string {
	return strings.Join(parts, "/")
}

func getJSON(ctx context.Context, store DocumentStore, collection, id string, dst interface{}) error {
	doc, err := store.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	return json.Unmarshal(doc.Data, dst)
}

func unmarshalDocument(doc *Document, dst interface{}) error {
	if err := json.Unmarshal(doc.Data, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func setJSON(ctx context.Context, store DocumentStore, collection, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(ctx, collection, id, data)
}
