package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// corruptZip stores good.pdf and bad.pdf uncompressed, then flips one byte of
// bad.pdf's data so that its checksum no longer matches
func corruptZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{"good.pdf", "good invoice"},
		{"bad.pdf", "BROKEN-INVOICE-BYTES"},
	} {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Store})
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	data := buf.Bytes()
	idx := bytes.Index(data, []byte("BROKEN-INVOICE-BYTES"))
	require.GreaterOrEqual(t, idx, 0)
	data[idx] ^= 0xFF
	return data
}

// minimalPDF builds a one-page PDF whose text layer contains text
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestReadInvoiceArchive(t *testing.T) {
	data := buildZip(t, map[string]string{
		"b.pdf":               "second",
		"notes.txt":           "ignored",
		"a.PDF":               "first",
		"__MACOSX/._b.pdf":    "fork",
		"nested/c.pdf":        "third",
		"nested/._hidden.pdf": "fork",
	}, []string{"b.pdf", "notes.txt", "a.PDF", "__MACOSX/._b.pdf", "nested/c.pdf", "nested/._hidden.pdf"})

	entries, err := ReadInvoiceArchive(data, ArchiveLimits{})
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b.pdf", "a.PDF", "nested/c.pdf"}, names)
	assert.Equal(t, "second", string(entries[0].Data))
}

func TestReadInvoiceArchive_Limits(t *testing.T) {
	data := buildZip(t, map[string]string{
		"a.pdf": "aaaa",
		"b.pdf": strings.Repeat("b", 64),
	}, []string{"a.pdf", "b.pdf"})

	_, err := ReadInvoiceArchive(data, ArchiveLimits{MaxEntries: 1})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	entries, err := ReadInvoiceArchive(data, ArchiveLimits{MaxEntryBytes: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, "aaaa", string(entries[0].Data))
	assert.ErrorIs(t, entries[1].Err, ErrUnsupportedFile)
	assert.Nil(t, entries[1].Data)

	entries, err = ReadInvoiceArchive(data, ArchiveLimits{MaxEntries: 2, MaxEntryBytes: 64})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadInvoiceArchive_CorruptEntry(t *testing.T) {
	data := corruptZip(t)

	entries, err := ReadInvoiceArchive(data, ArchiveLimits{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "good.pdf", entries[0].Name)
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, "good invoice", string(entries[0].Data))

	assert.Equal(t, "bad.pdf", entries[1].Name)
	assert.ErrorIs(t, entries[1].Err, zip.ErrChecksum)
}

func TestReadInvoiceArchive_NotAZip(t *testing.T) {
	_, err := ReadInvoiceArchive([]byte("plain text"), ArchiveLimits{})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestReadInvoiceArchive_NoPDFs(t *testing.T) {
	data := buildZip(t, map[string]string{"readme.md": "x"}, []string{"readme.md"})

	entries, err := ReadInvoiceArchive(data, ArchiveLimits{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected map[string]float64
	}{
		{name: "last amount is total", text: "Fare ₹1200\nTaxes ₹300\nTotal ₹1500.50", expected: map[string]float64{"INR": 1500.5}},
		{name: "yen sign with space", text: "Total ¥ 88", expected: map[string]float64{"INR": 88}},
		{name: "no currency", text: "Total 1500", expected: map[string]float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractAmounts(tt.text))
		})
	}
	assert.Equal(t, 0.0, InvoiceTotal("nothing here"))
}

func TestPDFTextExtractor_ExtractText(t *testing.T) {
	extractor := NewPDFTextExtractor(zap.NewNop())

	text, err := extractor.ExtractText(context.Background(), minimalPDF("Cab fare Total 140"))
	require.NoError(t, err)
	assert.Contains(t, text, "Cab fare Total 140")
}

func TestPDFTextExtractor_Errors(t *testing.T) {
	extractor := NewPDFTextExtractor(nil)

	_, err := extractor.ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoText)

	_, err = extractor.ExtractText(context.Background(), minimalPDF(""))
	assert.ErrorIs(t, err, ErrNoText)
}
