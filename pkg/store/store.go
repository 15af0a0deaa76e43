// Package store keeps the last known-good version of each workflow.
//
// A workflow is only written after it has been repaired successfully, so a
// fatal repair error never replaces what is stored. Backends:
//
//   - [MemoryStore]: in-process map, for tests and single-instance servers
//   - [FileStore]: one JSON file per workflow, for the CLI
//   - [RedisStore]: shared across server instances
//   - [MongoStore]: durable document storage
//
// All backends report a missing workflow with the coded error
// WORKFLOW_NOT_FOUND.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// Record is a stored workflow.
type Record struct {
	ID        string         `json:"id" bson:"_id"`
	Graph     workflow.Graph `json:"graph" bson:"graph"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for workflow storage backends.
type Store interface {
	// Get returns the stored workflow, or a WORKFLOW_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Record, error)

	// Put replaces the stored workflow for id.
	Put(ctx context.Context, id string, g workflow.Graph) (*Record, error)

	// Delete removes a workflow. Deleting a missing workflow is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all stored workflow IDs in ascending order.
	List(ctx context.Context) ([]string, error)

	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeWorkflowNotFound, "workflow %q not found", id)
}

func storageErr(err error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeStorage, err, format, args...)
}

func newRecord(id string, g workflow.Graph, now time.Time) *Record {
	return &Record{ID: id, Graph: g.Clone(), UpdatedAt: now.UTC()}
}
