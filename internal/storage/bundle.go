package storage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
)

// FileRef points at one stored object and the filename it should carry in
// the export archive.
type FileRef struct {
	Key      string
	Filename string
}

// Entry is one fetched file, ready for bundling.
type Entry struct {
	Filename string
	Data     []byte
}

// BundleZip writes entries into a single zip archive. Entry names are the
// original filenames, not the storage keys; two entries sharing a name get
// an index suffix so neither is lost.
func BundleZip(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		name := UniqueName(seen, entry.Filename)
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %q: %w", name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %q: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

// UniqueName disambiguates repeated filenames within one scope: the first
// occurrence keeps its name, later ones get " (n)" before the extension.
// seen carries the per-scope occurrence counts across calls.
func UniqueName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}
