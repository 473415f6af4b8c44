package jobs

import (
	"context"
	"fmt"

	"campusprint/internal/storage"
)

// FileFetcher retrieves stored print files for an export. Missing objects
// are reported, not fatal.
type FileFetcher interface {
	FetchAll(ctx context.Context, refs []storage.FileRef) (entries []storage.Entry, missing []string, err error)
}

// Queue coordinates the admin fulfillment flow over the job store and file
// storage. It holds no state of its own.
type Queue struct {
	store *Store
	relay FileFetcher
}

// NewQueue builds the coordinator.
func NewQueue(store *Store, relay FileFetcher) *Queue {
	return &Queue{store: store, relay: relay}
}

// ListPending proxies the admin queue listing.
func (q *Queue) ListPending(ctx context.Context) ([]PendingJob, error) {
	return q.store.ListPending(ctx)
}

// CompleteJob acknowledges fulfillment of a job. Idempotent.
func (q *Queue) CompleteJob(ctx context.Context, jobID uint) error {
	return q.store.Complete(ctx, jobID)
}

// ExportJob bundles every file of a job into a single zip archive. Files
// missing from storage are skipped and returned in omitted so the caller can
// surface the gap; an export where nothing could be fetched fails outright.
func (q *Queue) ExportJob(ctx context.Context, jobID uint) (archive []byte, omitted []string, err error) {
	files, err := q.store.ListFiles(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	refs := make([]storage.FileRef, 0, len(files))
	for _, f := range files {
		refs = append(refs, storage.FileRef{Key: f.StorageKey, Filename: f.OriginalFilename})
	}

	entries, omitted, err := q.relay.FetchAll(ctx, refs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch files of job %d: %w", jobID, err)
	}
	if len(entries) == 0 && len(refs) > 0 {
		return nil, omitted, fmt.Errorf("no files of job %d could be fetched", jobID)
	}

	archive, err = storage.BundleZip(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("bundle job %d: %w", jobID, err)
	}
	return archive, omitted, nil
}
