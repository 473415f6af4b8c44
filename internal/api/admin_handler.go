package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"campusprint/internal/jobs"
	"campusprint/internal/metrics"
	"campusprint/internal/settings"
)

// adminStorage is the slice of the storage client the admin surface uses.
type adminStorage interface {
	UploadObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// AdminHandler serves the fulfillment queue and the settings editor.
type AdminHandler struct {
	queue    *jobs.Queue
	registry *settings.Registry
	storage  adminStorage
	logger   *slog.Logger
}

// NewAdminHandler builds the admin handler.
func NewAdminHandler(queue *jobs.Queue, registry *settings.Registry, storageClient adminStorage, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		queue:    queue,
		registry: registry,
		storage:  storageClient,
		logger:   logger,
	}
}

// ListJobs returns the pending fulfillment queue, newest submission first.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	pending, err := h.queue.ListPending(c.Request.Context())
	if err != nil {
		loggerOrDefault(c, h.logger).Error("list pending jobs failed", slog.Any("error", err))
		Internal(c, "failed to list jobs")
		return
	}
	if pending == nil {
		pending = []jobs.PendingJob{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": pending})
}

// CompleteJob marks a job fulfilled. Idempotent; completing twice succeeds.
func (h *AdminHandler) CompleteJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	if err := h.queue.CompleteJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			NotFound(c, "print job not found")
			return
		}
		loggerOrDefault(c, h.logger).Error("complete job failed", slog.Uint64("job_id", uint64(jobID)), slog.Any("error", err))
		Internal(c, "failed to complete job")
		return
	}
	metrics.JobCompleted()
	c.Status(http.StatusOK)
}

// ExportJob streams every file of a job as one zip archive. Files missing
// from storage are listed in the X-Omitted-Files header instead of failing
// the download.
func (h *AdminHandler) ExportJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	logger := loggerOrDefault(c, h.logger).With(slog.Uint64("job_id", uint64(jobID)))

	archive, omitted, err := h.queue.ExportJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			NotFound(c, "print job not found")
			return
		}
		logger.Error("export job failed", slog.Any("error", err))
		Internal(c, "failed to export job")
		return
	}

	if len(omitted) > 0 {
		logger.Warn("export incomplete, files missing from storage", slog.Any("omitted", omitted))
		c.Header("X-Omitted-Files", strings.Join(omitted, ", "))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=job-%d.zip", jobID))
	c.Data(http.StatusOK, "application/zip", archive)
}

// UpdateSettings applies per-key updates to the payment display. Keys absent
// from the form are left untouched. Each key is written independently; the
// first failure stops the pass and the response reports what was written.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	logger := loggerOrDefault(c, h.logger)

	var updated []string
	response := gin.H{}

	if header, err := c.FormFile("qr_code"); err == nil {
		reader, err := header.Open()
		if err != nil {
			Internal(c, "failed to read qr code upload")
			return
		}

		contentType := header.Header.Get("Content-Type")
		key := fmt.Sprintf("qr-codes/%d-%s", time.Now().UnixMilli(), path.Base(header.Filename))
		err = h.storage.UploadObject(ctx, key, reader, header.Size, contentType)
		reader.Close()
		if err != nil {
			logger.Error("upload qr code failed", slog.Any("error", err))
			Internal(c, "failed to upload qr code")
			return
		}

		if err := h.registry.Upsert(ctx, settings.KeyQRCode, key); err != nil {
			logger.Error("save qr code setting failed", slog.Any("error", err))
			h.failSettings(c, updated)
			return
		}
		updated = append(updated, settings.KeyQRCode)
		response["qr_code_url"] = h.storage.PublicURL(key)
	}

	for _, key := range []string{settings.KeyUPIID, settings.KeyContact} {
		value, present := c.GetPostForm(key)
		if !present {
			continue
		}
		if err := h.registry.Upsert(ctx, key, strings.TrimSpace(value)); err != nil {
			logger.Error("save setting failed", slog.String("key", key), slog.Any("error", err))
			h.failSettings(c, updated)
			return
		}
		updated = append(updated, key)
	}

	if updated == nil {
		updated = []string{}
	}
	response["updated"] = updated
	logger.Info("settings updated", slog.Any("keys", updated))
	c.JSON(http.StatusOK, response)
}

// failSettings reports a partial settings write: the keys already persisted
// stay persisted.
func (h *AdminHandler) failSettings(c *gin.Context, written []string) {
	if written == nil {
		written = []string{}
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "failed to save settings",
		"updated": written,
	})
}

func jobIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid job id")
		return 0, false
	}
	return uint(id), true
}
