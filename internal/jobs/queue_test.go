package jobs

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"campusprint/internal/storage"
)

// fakeRelay serves objects from a map; absent keys are reported as missing.
type fakeRelay struct {
	objects map[string][]byte
	fail    error
}

func (f *fakeRelay) FetchAll(_ context.Context, refs []storage.FileRef) ([]storage.Entry, []string, error) {
	if f.fail != nil {
		return nil, nil, f.fail
	}
	var entries []storage.Entry
	var missing []string
	for _, ref := range refs {
		data, ok := f.objects[ref.Key]
		if !ok {
			missing = append(missing, ref.Filename)
			continue
		}
		entries = append(entries, storage.Entry{Filename: ref.Filename, Data: data})
	}
	return entries, missing, nil
}

func zipNames(t *testing.T, archive []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func seedJobWithFiles(t *testing.T, store *Store) uint {
	t.Helper()
	ctx := context.Background()
	user := seedUser(t, store.db, "Asha", "9876543210")
	job, err := store.CreateJob(ctx, user.ID, 5, "")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	for _, name := range []string{"a.pdf", "b.pdf"} {
		key := storage.PrintFileKey(user.ID, job.ID, name)
		if _, err := store.AttachFile(ctx, job.ID, key, name); err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
	}
	return job.ID
}

func TestExportJob_ArchiveMatchesRecordedFilenames(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), 4)
	jobID := seedJobWithFiles(t, store)

	relay := &fakeRelay{objects: map[string][]byte{
		storage.PrintFileKey(1, jobID, "a.pdf"): []byte("aaa"),
		storage.PrintFileKey(1, jobID, "b.pdf"): []byte("bbb"),
	}}
	queue := NewQueue(store, relay)

	archive, omitted, err := queue.ExportJob(ctx, jobID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(omitted) != 0 {
		t.Fatalf("expected no omissions, got %v", omitted)
	}

	names := zipNames(t, archive)
	if len(names) != 2 {
		t.Fatalf("expected 2 entries, got %v", names)
	}
	want := map[string]bool{"a.pdf": true, "b.pdf": true}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected entry %q", n)
		}
	}
}

func TestExportJob_MissingFileIsSkippedAndSurfaced(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), 4)
	jobID := seedJobWithFiles(t, store)

	relay := &fakeRelay{objects: map[string][]byte{
		storage.PrintFileKey(1, jobID, "a.pdf"): []byte("aaa"),
	}}
	queue := NewQueue(store, relay)

	archive, omitted, err := queue.ExportJob(ctx, jobID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(omitted) != 1 || omitted[0] != "b.pdf" {
		t.Fatalf("expected b.pdf omitted, got %v", omitted)
	}
	if names := zipNames(t, archive); len(names) != 1 || names[0] != "a.pdf" {
		t.Fatalf("expected only a.pdf in archive, got %v", names)
	}
}

func TestExportJob_AllFilesMissingFails(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), 4)
	jobID := seedJobWithFiles(t, store)

	queue := NewQueue(store, &fakeRelay{objects: map[string][]byte{}})
	if _, _, err := queue.ExportJob(ctx, jobID); err == nil {
		t.Fatal("expected failure when nothing could be fetched")
	}
}

func TestExportJob_UnknownJob(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), 4)
	queue := NewQueue(store, &fakeRelay{})

	if _, _, err := queue.ExportJob(ctx, 42); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCompleteJob_Proxies(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), 4)
	jobID := seedJobWithFiles(t, store)
	queue := NewQueue(store, &fakeRelay{})

	if err := queue.CompleteJob(ctx, jobID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := queue.CompleteJob(ctx, jobID); err != nil {
		t.Fatalf("second complete must be a no-op, got %v", err)
	}
}
