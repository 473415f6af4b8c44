// Package pdfinspect reports page counts of user-supplied PDF documents
// without rendering them.
package pdfinspect

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// UnreadableError means no page tree could be parsed from the document.
// Filename is the name the user supplied, for user-facing reporting.
type UnreadableError struct {
	Filename string
	Err      error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("unreadable document %q: %v", e.Filename, e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

// Inspector counts PDF pages by inspecting the page-tree metadata.
type Inspector struct {
	conf *model.Configuration
}

// New returns an Inspector with relaxed validation. Print shops routinely
// receive protected PDFs, so an encrypted-but-openable document must still
// yield a count instead of failing.
func New() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// CountPages returns the page count of the document in data. The source
// bytes are never modified. Parse failures come back as *UnreadableError
// carrying name.
func (i *Inspector) CountPages(name string, data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), i.conf)
	if err != nil {
		return 0, &UnreadableError{Filename: name, Err: err}
	}
	if count <= 0 {
		return 0, &UnreadableError{Filename: name, Err: fmt.Errorf("document has no pages")}
	}
	return count, nil
}
