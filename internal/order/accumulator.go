// Package order validates candidate print batches and derives their cost.
package order

import (
	"errors"
	"fmt"
	"math"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultUnitRate is the per-page price when none is configured. Persisted
// records store pages, never a pre-computed price, so a rate change does not
// corrupt historical jobs.
const DefaultUnitRate = 1.50

// DefaultMaxFiles bounds the files accepted in one submission.
const DefaultMaxFiles = 4

var (
	// ErrTooManyFiles rejects a batch exceeding the file-count ceiling.
	ErrTooManyFiles = errors.New("too many files in submission")
	// ErrInvalidType rejects a batch containing a non-PDF file.
	ErrInvalidType = errors.New("only PDF files are allowed")
	// ErrEmptyBatch rejects a submission with no files at all.
	ErrEmptyBatch = errors.New("no files in submission")
)

// PageCounter yields the page count of one document.
type PageCounter interface {
	CountPages(name string, data []byte) (int, error)
}

// File is one candidate in a submission batch.
type File struct {
	Name string
	Data []byte
}

// AcceptedFile is one validated file with its independently computed pages.
type AcceptedFile struct {
	Name  string
	Pages int
}

// Result is a validated batch. TotalPages is the sum of the per-file counts;
// the minimum-order gate is applied at submission time by the job store, not
// here, because pages accumulate as the user adds and removes files.
type Result struct {
	TotalPages int
	Files      []AcceptedFile
}

// Accumulator validates type and count constraints for a batch, totals its
// pages through the injected counter and prices the total.
type Accumulator struct {
	counter  PageCounter
	maxFiles int
	unitRate float64
}

// NewAccumulator builds an Accumulator. maxFiles <= 0 falls back to
// DefaultMaxFiles; unitRate <= 0 falls back to DefaultUnitRate.
func NewAccumulator(counter PageCounter, maxFiles int, unitRate float64) *Accumulator {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if unitRate <= 0 {
		unitRate = DefaultUnitRate
	}
	return &Accumulator{counter: counter, maxFiles: maxFiles, unitRate: unitRate}
}

// ValidateAndTotal checks the whole batch and sums its page counts. There is
// no partial acceptance: a count or type violation rejects every file, and
// unreadable documents are each reported by name before the batch is deemed
// invalid. Types are sniffed from the bytes, not the file extension, since
// browsers supply either.
func (a *Accumulator) ValidateAndTotal(files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrEmptyBatch
	}
	if len(files) > a.maxFiles {
		return Result{}, fmt.Errorf("%w: got %d, limit %d", ErrTooManyFiles, len(files), a.maxFiles)
	}

	for _, f := range files {
		if !mimetype.Detect(f.Data).Is("application/pdf") {
			return Result{}, fmt.Errorf("%w: %q", ErrInvalidType, f.Name)
		}
	}

	// Summation is commutative, so accumulation order carries no meaning.
	var (
		result   Result
		failures []error
	)
	for _, f := range files {
		pages, err := a.counter.CountPages(f.Name, f.Data)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		result.TotalPages += pages
		result.Files = append(result.Files, AcceptedFile{Name: f.Name, Pages: pages})
	}
	if len(failures) > 0 {
		return Result{}, errors.Join(failures...)
	}

	return result, nil
}

// Cost derives the display price for pages at the configured unit rate,
// rounded to two decimals. Display only; nothing persists this value.
func (a *Accumulator) Cost(pages int) float64 {
	return math.Round(float64(pages)*a.unitRate*100) / 100
}
