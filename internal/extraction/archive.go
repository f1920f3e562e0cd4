package extraction

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ArchiveLimits bounds what ReadInvoiceArchive will unpack
type ArchiveLimits struct {
	MaxEntries    int   // 0 means unlimited
	MaxEntryBytes int64 // 0 means unlimited
}

// ArchiveEntry is one PDF file found in an invoice archive. Err is set when
// the entry itself could not be unpacked; Data is then nil.
type ArchiveEntry struct {
	Name string
	Data []byte
	Err  error
}

// ReadInvoiceArchive returns the .pdf entries of a ZIP archive in archive
// order. Directories and macOS resource fork entries are skipped. Only an
// unreadable archive or too many entries fail the call; a corrupt or
// oversized entry is returned with Err set.
func ReadInvoiceArchive(data []byte, limits ArchiveLimits) ([]ArchiveEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ZIP archive: %v", ErrUnsupportedFile, err)
	}

	var entries []ArchiveEntry
	for _, file := range reader.File {
		if !isInvoicePDF(file) {
			continue
		}
		if limits.MaxEntries > 0 && len(entries) >= limits.MaxEntries {
			return nil, fmt.Errorf("%w: archive holds more than %d invoices", ErrUnsupportedFile, limits.MaxEntries)
		}
		if limits.MaxEntryBytes > 0 && file.UncompressedSize64 > uint64(limits.MaxEntryBytes) {
			entries = append(entries, ArchiveEntry{
				Name: file.Name,
				Err:  fmt.Errorf("%w: %s exceeds %d bytes", ErrUnsupportedFile, file.Name, limits.MaxEntryBytes),
			})
			continue
		}

		content, err := readEntry(file, limits.MaxEntryBytes)
		entries = append(entries, ArchiveEntry{Name: file.Name, Data: content, Err: err})
	}
	return entries, nil
}

func isInvoicePDF(file *zip.File) bool {
	if file.FileInfo().IsDir() {
		return false
	}
	if strings.HasPrefix(file.Name, "__MACOSX/") || strings.HasPrefix(path.Base(file.Name), "._") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(file.Name), ".pdf")
}

func readEntry(file *zip.File, maxBytes int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		// the header size can lie; never read past the limit
		r = io.LimitReader(rc, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.Name, err)
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrUnsupportedFile, file.Name, maxBytes)
	}
	return content, nil
}
