package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionRuns = "runs"

// Firestore implements RunRepository using Firestore
type Firestore struct {
	client *firestore.Client
}

var _ interfaces.RunRepository = (*Firestore)(nil)

// New creates a new Firestore journal
func New(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project is required")
	}
	if databaseID == "" {
		databaseID = DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutRun(ctx context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return goerr.New("run id is required")
	}

	if _, err := r.client.Collection(collectionRuns).Doc(string(run.ID)).Set(ctx, run); err != nil {
		return goerr.Wrap(err, "failed to put run", goerr.V("run_id", run.ID))
	}
	return nil
}

func (r *Firestore) GetRun(ctx context.Context, id model.RunID) (*model.Run, error) {
	snap, err := r.client.Collection(collectionRuns).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrRunNotFound, "run not found", goerr.V("run_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("run_id", id))
	}

	var run model.Run
	if err := snap.DataTo(&run); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run", goerr.V("run_id", id))
	}
	return &run, nil
}

// ListRuns returns runs ordered by created_at descending
func (r *Firestore) ListRuns(ctx context.Context, offset, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	iter := r.client.Collection(collectionRuns).
		OrderBy("created_at", firestore.Desc).
		Offset(offset).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	runs := make([]*model.Run, 0, limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate runs")
		}

		var run model.Run
		if err := snap.DataTo(&run); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run", goerr.V("doc_id", snap.Ref.ID))
		}
		runs = append(runs, &run)
	}

	return runs, nil
}
