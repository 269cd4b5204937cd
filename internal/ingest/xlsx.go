package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/reconcile-cli/internal/table"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one sheet of an XLSX workbook into a table. The first row
// is the header. Numeric cells keep their native value so price columns
// bypass currency string cleaning downstream.
func ReadXLSX(path, name string, opts XLSXOptions) (*table.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", name)
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q of %s is empty", sheet.Name, name)
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		header[i] = cell.String()
	}

	t := table.New(name, header)
	for _, row := range sheet.Rows[1:] {
		cells := make([]table.Cell, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = toCell(cell)
		}
		t.AppendRow(cells)
	}
	return t, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func toCell(cell *xlsx.Cell) table.Cell {
	if cell.Type() == xlsx.CellTypeNumeric {
		if v, err := cell.Float(); err == nil {
			return table.NumericCell(v)
		}
	}
	return table.StringCell(cell.String())
}
