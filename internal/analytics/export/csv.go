package export

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/tallercar/tallercar/internal/analytics"
)

// utf8BOM lets spreadsheet tools detect the encoding of accented headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter renders export tables as comma separated values.
type CSVWriter struct {
	// Comma overrides the field delimiter; zero means ','.
	Comma rune
	// OmitBOM drops the UTF-8 byte order mark.
	OmitBOM bool
}

// NewCSVWriter returns a CSVWriter with default settings.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Extension implements analytics.TableWriter.
func (c *CSVWriter) Extension() string { return "csv" }

// Write emits the header line followed by one record per row.
func (c *CSVWriter) Write(ctx context.Context, rows [][]string, headers []string, shape analytics.Shape) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if !c.OmitBOM {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	if c.Comma != 0 {
		writer.Comma = c.Comma
	}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
