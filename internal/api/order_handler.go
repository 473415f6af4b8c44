package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"campusprint/internal/jobs"
	"campusprint/internal/metrics"
	"campusprint/internal/order"
	"campusprint/internal/pdfinspect"
	"campusprint/internal/settings"
	"campusprint/internal/storage"
)

// orderStorage is the slice of the storage client the submission flow uses.
type orderStorage interface {
	StorePrintFile(ctx context.Context, ownerID, jobID uint, name string, reader io.Reader, size int64, contentType string) (string, error)
	PublicURL(key string) string
}

// OrderHandler serves order preview, submission and the payment display.
type OrderHandler struct {
	accumulator  *order.Accumulator
	store        *jobs.Store
	registry     *settings.Registry
	storage      orderStorage
	logger       *slog.Logger
	clamdAddr    string
	maxFileBytes int64
}

// NewOrderHandler builds the order handler. An empty clamdAddr disables
// virus scanning.
func NewOrderHandler(accumulator *order.Accumulator, store *jobs.Store, registry *settings.Registry, storageClient orderStorage, logger *slog.Logger, clamdAddr string, maxFileBytes int64) *OrderHandler {
	return &OrderHandler{
		accumulator:  accumulator,
		store:        store,
		registry:     registry,
		storage:      storageClient,
		logger:       logger,
		clamdAddr:    clamdAddr,
		maxFileBytes: maxFileBytes,
	}
}

type previewFileResponse struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
}

type previewResponse struct {
	TotalPages int                   `json:"total_pages"`
	Cost       float64               `json:"cost"`
	Files      []previewFileResponse `json:"files"`
}

// Preview validates a candidate batch and returns its page total and cost
// without creating anything. The client calls this as the user adds files.
func (h *OrderHandler) Preview(c *gin.Context) {
	files, ok := h.readBatch(c)
	if !ok {
		return
	}

	result, err := h.accumulator.ValidateAndTotal(files)
	if err != nil {
		h.rejectBatch(c, err)
		return
	}

	c.JSON(http.StatusOK, h.previewOf(result))
}

type submitResponse struct {
	JobID      uint            `json:"job_id"`
	TotalPages int             `json:"total_pages"`
	Cost       float64         `json:"cost"`
	Payment    paymentResponse `json:"payment"`
}

// Submit validates the batch, scans it, creates the job and stores every
// file. The job row is written before any file upload so a submission
// interrupted midway is visible as a job with missing files rather than
// orphaned objects.
func (h *OrderHandler) Submit(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	files, ok := h.readBatch(c)
	if !ok {
		return
	}
	instructions := c.PostForm("print_instructions")

	logger := loggerOrDefault(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	result, err := h.accumulator.ValidateAndTotal(files)
	if err != nil {
		h.rejectBatch(c, err)
		return
	}

	if h.clamdAddr != "" {
		if ok := h.scanBatch(c, logger, files); !ok {
			return
		}
	}

	ctx := c.Request.Context()

	job, err := h.store.CreateJob(ctx, userID, result.TotalPages, instructions)
	if err != nil {
		if errors.Is(err, jobs.ErrBelowMinimum) {
			BadRequest(c, err.Error())
			return
		}
		logger.Error("create job failed", slog.Any("error", err))
		Internal(c, "failed to create print job")
		return
	}

	logger = logger.With(slog.Uint64("job_id", uint64(job.ID)))

	// Duplicate filenames within one submission get a numbered suffix on the
	// storage key so objects never collide. The recorded filename keeps the
	// user's spelling; the export bundler applies the same suffixing to the
	// archive entry names.
	seen := make(map[string]int, len(files))
	for _, f := range files {
		storedName := storage.UniqueName(seen, f.Name)
		key, err := h.storage.StorePrintFile(ctx, userID, job.ID, storedName, bytes.NewReader(f.Data), int64(len(f.Data)), "application/pdf")
		if err != nil {
			logger.Error("store print file failed", slog.String("filename", storedName), slog.Any("error", err))
			Internal(c, "failed to store print file")
			return
		}
		if _, err := h.store.AttachFile(ctx, job.ID, key, f.Name); err != nil {
			logger.Error("attach file failed", slog.String("filename", f.Name), slog.Any("error", err))
			Internal(c, "failed to record print file")
			return
		}
	}

	payment, err := h.paymentInfo(ctx)
	if err != nil {
		// The job is already placed; reply without payment details rather
		// than failing the whole submission.
		logger.Warn("load payment settings failed", slog.Any("error", err))
		payment = paymentResponse{}
	}

	metrics.JobSubmitted()
	logger.Info("print job submitted",
		slog.Int("total_pages", result.TotalPages),
		slog.Int("files", len(files)),
	)
	c.JSON(http.StatusCreated, submitResponse{
		JobID:      job.ID,
		TotalPages: result.TotalPages,
		Cost:       h.accumulator.Cost(result.TotalPages),
		Payment:    payment,
	})
}

type paymentResponse struct {
	QRCodeURL     string `json:"qr_code_url,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
}

// PaymentInfo returns the payment display settings.
func (h *OrderHandler) PaymentInfo(c *gin.Context) {
	payment, err := h.paymentInfo(c.Request.Context())
	if err != nil {
		loggerOrDefault(c, h.logger).Error("load payment settings failed", slog.Any("error", err))
		Internal(c, "failed to load payment settings")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *OrderHandler) paymentInfo(ctx context.Context) (paymentResponse, error) {
	payment, err := h.registry.Payment(ctx)
	if err != nil {
		return paymentResponse{}, err
	}
	resp := paymentResponse{
		UPIID:         payment.UPIID,
		ContactNumber: payment.ContactNumber,
	}
	if payment.QRCodeKey != "" {
		resp.QRCodeURL = h.storage.PublicURL(payment.QRCodeKey)
	}
	return resp, nil
}

func (h *OrderHandler) previewOf(result order.Result) previewResponse {
	resp := previewResponse{
		TotalPages: result.TotalPages,
		Cost:       h.accumulator.Cost(result.TotalPages),
		Files:      make([]previewFileResponse, 0, len(result.Files)),
	}
	for _, f := range result.Files {
		resp.Files = append(resp.Files, previewFileResponse{Name: f.Name, Pages: f.Pages})
	}
	return resp
}

// readBatch pulls the uploaded files out of the multipart form. On failure
// it writes the error response and returns ok=false.
func (h *OrderHandler) readBatch(c *gin.Context) ([]order.File, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "invalid multipart form")
		return nil, false
	}

	headers := form.File["files"]
	files := make([]order.File, 0, len(headers))
	for _, header := range headers {
		if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
			BadRequest(c, fmt.Sprintf("file %q exceeds the size limit", header.Filename))
			return nil, false
		}
		data, err := readMultipartFile(header)
		if err != nil {
			loggerOrDefault(c, h.logger).Error("read upload failed", slog.String("filename", header.Filename), slog.Any("error", err))
			Internal(c, "failed to read upload")
			return nil, false
		}
		files = append(files, order.File{Name: header.Filename, Data: data})
	}
	return files, true
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// scanBatch streams every file through clamd. On rejection or scanner
// failure it writes the response and returns false.
func (h *OrderHandler) scanBatch(c *gin.Context, logger *slog.Logger, files []order.File) bool {
	clamdClient := clamd.NewClamd(h.clamdAddr)

	for _, f := range files {
		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(bytes.NewReader(f.Data), abortChan)
		if err != nil {
			close(abortChan)
			logger.Error("scan file failed", slog.String("filename", f.Name), slog.Any("error", err))
			Internal(c, "failed to scan file")
			return false
		}
		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				close(abortChan)
				logger.Warn("malicious file rejected", slog.String("filename", f.Name))
				BadRequest(c, "malicious file detected")
				return false
			}
		}
		close(abortChan)
	}
	return true
}

// rejectBatch maps validation failures to client errors.
func (h *OrderHandler) rejectBatch(c *gin.Context, err error) {
	var unreadable *pdfinspect.UnreadableError
	switch {
	case errors.Is(err, order.ErrEmptyBatch),
		errors.Is(err, order.ErrTooManyFiles),
		errors.Is(err, order.ErrInvalidType),
		errors.As(err, &unreadable):
		BadRequest(c, err.Error())
	default:
		loggerOrDefault(c, h.logger).Error("validate batch failed", slog.Any("error", err))
		Internal(c, "failed to validate files")
	}
}
