// Package ingest loads the two input tables from local CSV and XLSX files or
// from http(s)/ftp URLs. These are thin wrappers: all reconciliation
// semantics live in internal/recon.
package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Comment    rune   // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
	Encoding   string // IANA charset name; empty means UTF-8 as-is
}

// ReadCSV parses a CSV stream into a table. The first record is the header;
// data rows are padded or truncated to the header width. Non-UTF-8 input is
// decoded when Encoding names a charset.
func ReadCSV(r io.Reader, name string, opts CSVOptions) (*table.Table, error) {
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "csv: unknown encoding %q", opts.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Errorf("csv: %s is empty", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "csv: read header of %s", name)
	}
	if opts.TrimSpace {
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	t := table.New(name, header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read row %d of %s", t.Len()+2, name)
		}

		cells := make([]table.Cell, len(record))
		for i, field := range record {
			if opts.TrimSpace {
				field = strings.TrimSpace(field)
			}
			cells[i] = table.StringCell(field)
		}
		t.AppendRow(cells)
	}
}
