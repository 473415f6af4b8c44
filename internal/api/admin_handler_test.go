package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusprint/internal/database"
	"campusprint/internal/jobs"
	"campusprint/internal/settings"
	"campusprint/internal/storage"
)

// fakeFetcher serves export fetches from a fixed key-to-data map; absent
// keys are reported missing.
type fakeFetcher struct {
	objects map[string][]byte
}

func (f *fakeFetcher) FetchAll(_ context.Context, refs []storage.FileRef) ([]storage.Entry, []string, error) {
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

type adminTestEnv struct {
	db      *gorm.DB
	store   *jobs.Store
	fetcher *fakeFetcher
	storage *fakeStorage
	router  *gin.Engine
}

func newAdminTestEnv(t *testing.T) adminTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	store := jobs.NewStore(db, 4)
	fetcher := &fakeFetcher{objects: make(map[string][]byte)}
	queue := jobs.NewQueue(store, fetcher)
	registry := settings.NewRegistry(db)
	fs := newFakeStorage()
	handler := NewAdminHandler(queue, registry, fs, discardLogger())

	router := gin.New()
	router.GET("/v1/admin/jobs", handler.ListJobs)
	router.POST("/v1/admin/jobs/:id/complete", handler.CompleteJob)
	router.GET("/v1/admin/jobs/:id/export", handler.ExportJob)
	router.PUT("/v1/admin/settings", handler.UpdateSettings)

	return adminTestEnv{db: db, store: store, fetcher: fetcher, storage: fs, router: router}
}

func (env adminTestEnv) seedJob(t *testing.T, pages int) *database.PrintJob {
	t.Helper()
	user := database.User{Name: "Asha", MobileNumber: "9876543210", PasswordHash: "x", Role: database.RoleUser}
	if err := env.db.Where(database.User{MobileNumber: user.MobileNumber}).FirstOrCreate(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	job, err := env.store.CreateJob(context.Background(), user.ID, pages, "")
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestListJobs_EmptyQueueIsAnArray(t *testing.T) {
	env := newAdminTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/jobs", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"jobs":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestCompleteJob(t *testing.T) {
	env := newAdminTestEnv(t)
	job := env.seedJob(t, 5)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/complete", job.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded database.PrintJob
	if err := env.db.First(&reloaded, job.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != database.StatusCompleted {
		t.Fatalf("expected Completed, got %q", reloaded.Status)
	}

	// Unknown job.
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/jobs/9999/complete", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}

	// Malformed id.
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/jobs/abc/complete", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestExportJob_BundlesFiles(t *testing.T) {
	env := newAdminTestEnv(t)
	job := env.seedJob(t, 5)

	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf"} {
		key := "print-files/1/" + fmt.Sprint(job.ID) + "/" + name
		if _, err := env.store.AttachFile(ctx, job.ID, key, name); err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
		env.fetcher.objects[key] = []byte("content of " + name)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/admin/jobs/%d/export", job.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	wantDisposition := fmt.Sprintf("attachment; filename=job-%d.zip", job.ID)
	if got := rec.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("expected %q, got %q", wantDisposition, got)
	}
	if got := rec.Header().Get("X-Omitted-Files"); got != "" {
		t.Fatalf("expected no omitted files, got %q", got)
	}

	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("expected 2 archive entries, got %d", len(reader.File))
	}
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["a.pdf"] || !names["b.pdf"] {
		t.Fatalf("expected original filenames in archive, got %v", names)
	}
}

func TestExportJob_SurfacesMissingFiles(t *testing.T) {
	env := newAdminTestEnv(t)
	job := env.seedJob(t, 5)

	ctx := context.Background()
	presentKey := fmt.Sprintf("print-files/1/%d/a.pdf", job.ID)
	if _, err := env.store.AttachFile(ctx, job.ID, presentKey, "a.pdf"); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	if _, err := env.store.AttachFile(ctx, job.ID, fmt.Sprintf("print-files/1/%d/gone.pdf", job.ID), "gone.pdf"); err != nil {
		t.Fatalf("attach gone: %v", err)
	}
	env.fetcher.objects[presentKey] = []byte("still here")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/admin/jobs/%d/export", job.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Omitted-Files"); got != "gone.pdf" {
		t.Fatalf("expected omitted header, got %q", got)
	}

	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(reader.File) != 1 || reader.File[0].Name != "a.pdf" {
		t.Fatalf("expected only the present file, got %d entries", len(reader.File))
	}
}

func TestExportJob_UnknownJob(t *testing.T) {
	env := newAdminTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/jobs/9999/export", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateSettings_WritesEachKey(t *testing.T) {
	env := newAdminTestEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("qr_code", "upi-qr.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("png bytes")); err != nil {
		t.Fatalf("write qr: %v", err)
	}
	if err := writer.WriteField(settings.KeyUPIID, "shop@upi"); err != nil {
		t.Fatalf("write upi: %v", err)
	}
	if err := writer.WriteField(settings.KeyContact, "9876543210"); err != nil {
		t.Fatalf("write contact: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/settings", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Updated   []string `json:"updated"`
		QRCodeURL string   `json:"qr_code_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Updated) != 3 {
		t.Fatalf("expected 3 updated keys, got %v", resp.Updated)
	}
	if resp.QRCodeURL == "" {
		t.Fatal("expected resolved qr code url")
	}

	registry := settings.NewRegistry(env.db)
	all, err := registry.GetAll(context.Background())
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if all[settings.KeyUPIID] != "shop@upi" || all[settings.KeyContact] != "9876543210" {
		t.Fatalf("unexpected stored settings: %v", all)
	}
	qrKey := all[settings.KeyQRCode]
	if !strings.HasPrefix(qrKey, "qr-codes/") || !strings.HasSuffix(qrKey, "-upi-qr.png") {
		t.Fatalf("unexpected qr storage key %q", qrKey)
	}
	if _, ok := env.storage.objects[qrKey]; !ok {
		t.Fatalf("qr object %q not uploaded", qrKey)
	}

	// A later pass overwrites, never duplicates.
	if err := registry.Upsert(context.Background(), settings.KeyUPIID, "other@upi"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	all, err = registry.GetAll(context.Background())
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if all[settings.KeyUPIID] != "other@upi" {
		t.Fatalf("expected overwrite, got %q", all[settings.KeyUPIID])
	}
}

func TestUpdateSettings_NoKeysIsANoOp(t *testing.T) {
	env := newAdminTestEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/settings", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"updated":[]`) {
		t.Fatalf("expected empty updated list, got %s", rec.Body.String())
	}
}
