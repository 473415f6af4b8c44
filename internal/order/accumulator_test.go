package order

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeCounter maps filename to a fixed page count; unknown names fail.
type fakeCounter struct {
	pages map[string]int
	calls int
}

func (f *fakeCounter) CountPages(name string, _ []byte) (int, error) {
	f.calls++
	if n, ok := f.pages[name]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unreadable document %q: no page tree", name)
}

func pdfFile(name string) File {
	return File{Name: name, Data: []byte("%PDF-1.4\nfake body for sniffing\n%%EOF")}
}

func TestValidateAndTotal_TooManyFiles(t *testing.T) {
	counter := &fakeCounter{}
	acc := NewAccumulator(counter, 4, 1.50)

	files := []File{pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf"), pdfFile("d.pdf"), pdfFile("e.pdf")}
	_, err := acc.ValidateAndTotal(files)
	if !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("expected ErrTooManyFiles, got %v", err)
	}
	if counter.calls != 0 {
		t.Fatalf("no page counting should happen on a rejected batch, got %d calls", counter.calls)
	}
}

func TestValidateAndTotal_InvalidTypeBeforeCounting(t *testing.T) {
	counter := &fakeCounter{pages: map[string]int{"a.pdf": 3}}
	acc := NewAccumulator(counter, 4, 1.50)

	files := []File{
		pdfFile("a.pdf"),
		{Name: "notes.txt", Data: []byte("plain text, not a pdf")},
	}
	_, err := acc.ValidateAndTotal(files)
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Fatalf("expected offending filename in error, got %q", err.Error())
	}
	if counter.calls != 0 {
		t.Fatalf("type check must run before any page counting, got %d calls", counter.calls)
	}
}

func TestValidateAndTotal_EmptyBatch(t *testing.T) {
	acc := NewAccumulator(&fakeCounter{}, 4, 1.50)
	if _, err := acc.ValidateAndTotal(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestValidateAndTotal_SumsPages(t *testing.T) {
	counter := &fakeCounter{pages: map[string]int{"a.pdf": 3, "b.pdf": 2}}
	acc := NewAccumulator(counter, 4, 1.50)

	result, err := acc.ValidateAndTotal([]File{pdfFile("a.pdf"), pdfFile("b.pdf")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalPages != 5 {
		t.Fatalf("expected total 5, got %d", result.TotalPages)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 accepted files, got %d", len(result.Files))
	}

	// Order-independent: reversing the batch yields the same total.
	reversed, err := acc.ValidateAndTotal([]File{pdfFile("b.pdf"), pdfFile("a.pdf")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reversed.TotalPages != result.TotalPages {
		t.Fatalf("total must be commutative: %d vs %d", reversed.TotalPages, result.TotalPages)
	}

	// A batch below the minimum order size is still accepted here; the gate
	// belongs to submission time.
	small := &fakeCounter{pages: map[string]int{"tiny.pdf": 2}}
	acc = NewAccumulator(small, 4, 1.50)
	result, err = acc.ValidateAndTotal([]File{pdfFile("tiny.pdf")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalPages != 2 {
		t.Fatalf("expected total 2, got %d", result.TotalPages)
	}
}

func TestValidateAndTotal_ReportsEachUnreadableFile(t *testing.T) {
	counter := &fakeCounter{pages: map[string]int{"ok.pdf": 4}}
	acc := NewAccumulator(counter, 4, 1.50)

	_, err := acc.ValidateAndTotal([]File{pdfFile("ok.pdf"), pdfFile("bad1.pdf"), pdfFile("bad2.pdf")})
	if err == nil {
		t.Fatal("expected batch rejection")
	}
	for _, name := range []string{"bad1.pdf", "bad2.pdf"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %q to be reported, got %q", name, err.Error())
		}
	}
}

func TestCost(t *testing.T) {
	acc := NewAccumulator(&fakeCounter{}, 4, 1.50)
	cases := []struct {
		pages int
		want  float64
	}{
		{4, 6.00},
		{5, 7.50},
		{10, 15.00},
		{0, 0},
	}
	for _, tc := range cases {
		if got := acc.Cost(tc.pages); got != tc.want {
			t.Fatalf("Cost(%d) = %v, want %v", tc.pages, got, tc.want)
		}
	}
}

func TestCost_UsesConfiguredRate(t *testing.T) {
	acc := NewAccumulator(&fakeCounter{}, 4, 2.00)
	if got := acc.Cost(5); got != 10.00 {
		t.Fatalf("Cost(5) at rate 2.00 = %v, want 10.00", got)
	}

	// A zero rate falls back to the default, never to free printing.
	acc = NewAccumulator(&fakeCounter{}, 4, 0)
	if got := acc.Cost(4); got != 6.00 {
		t.Fatalf("Cost(4) at default rate = %v, want 6.00", got)
	}
}
