// Package jobs owns the print-job lifecycle: creation, the admin pending
// queue, completion and file association.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"campusprint/internal/database"
)

// DefaultMinPages is the minimum order size enforced at creation time.
const DefaultMinPages = 4

var (
	// ErrBelowMinimum rejects a submission under the minimum order size.
	ErrBelowMinimum = errors.New("total pages below minimum order size")
	// ErrJobNotFound means no print job exists with the given id.
	ErrJobNotFound = errors.New("print job not found")
)

// Store is the single source of truth for job state. Every write is a
// single-row operation; no multi-step transaction spans the workflow.
type Store struct {
	db       *gorm.DB
	minPages int
}

// NewStore builds a Store. minPages <= 0 falls back to DefaultMinPages.
func NewStore(db *gorm.DB, minPages int) *Store {
	if minPages <= 0 {
		minPages = DefaultMinPages
	}
	return &Store{db: db, minPages: minPages}
}

// MinPages exposes the configured minimum order size.
func (s *Store) MinPages() int { return s.minPages }

// CreateJob persists a new Pending job. This is deliberately the first write
// of a submission, so an upload aborted midway is always recoverable as "job
// with fewer files than expected" rather than a job-less file.
func (s *Store) CreateJob(ctx context.Context, userID uint, totalPages int, instructions string) (*database.PrintJob, error) {
	if totalPages < s.minPages {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrBelowMinimum, totalPages, s.minPages)
	}

	job := database.PrintJob{
		UserID:            userID,
		TotalPages:        totalPages,
		PrintInstructions: instructions,
		Status:            database.StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create print job: %w", err)
	}
	return &job, nil
}

// PendingJob is one row of the admin queue, joined with the owner.
type PendingJob struct {
	ID           uint      `json:"id"`
	SubmittedAt  time.Time `json:"submitted_at"`
	TotalPages   int       `json:"total_pages"`
	Instructions string    `json:"instructions"`
	UserName     string    `json:"user_name"`
	MobileNumber string    `json:"mobile_number"`
}

// ListPending returns jobs awaiting fulfillment, most recent submission
// first. The ordering is presentation for the admin queue, not a processing
// guarantee.
func (s *Store) ListPending(ctx context.Context) ([]PendingJob, error) {
	var rows []PendingJob
	err := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Select("print_jobs.id, print_jobs.created_at AS submitted_at, print_jobs.total_pages, print_jobs.print_instructions AS instructions, users.name AS user_name, users.mobile_number").
		Joins("JOIN users ON users.id = print_jobs.user_id").
		Where("print_jobs.status = ?", database.StatusPending).
		Order("print_jobs.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	return rows, nil
}

// Complete flips a job to Completed. Re-completing an already completed job
// is a no-op, not an error, so duplicate admin clicks and retries are safe.
func (s *Store) Complete(ctx context.Context, jobID uint) error {
	res := s.db.WithContext(ctx).
		Model(&database.PrintJob{}).
		Where("id = ?", jobID).
		Update("status", database.StatusCompleted)
	if res.Error != nil {
		return fmt.Errorf("complete job %d: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// AttachFile records one stored object against its parent job. Called once
// per successful storage write; a failure here leaves a stored object
// without a record, a documented inconsistency the admin resolves manually.
func (s *Store) AttachFile(ctx context.Context, jobID uint, storageKey, originalFilename string) (*database.JobFile, error) {
	file := database.JobFile{
		JobID:            jobID,
		StorageKey:       storageKey,
		OriginalFilename: originalFilename,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, fmt.Errorf("attach file to job %d: %w", jobID, err)
	}
	return &file, nil
}

// ListFiles returns the file records of one job, failing with ErrJobNotFound
// if the job itself does not exist.
func (s *Store) ListFiles(ctx context.Context, jobID uint) ([]database.JobFile, error) {
	var job database.PrintJob
	if err := s.db.WithContext(ctx).Select("id").First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}

	var files []database.JobFile
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files of job %d: %w", jobID, err)
	}
	return files, nil
}
