package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, build func(sheet *xlsx.Sheet)) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	build(sheet)
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, func(sheet *xlsx.Sheet) {
		addStringRow(sheet, "id", "amount")
		addStringRow(sheet, "A1", "100")
		addStringRow(sheet, "A2", "200")
	})

	tab, err := ReadXLSX(path, "ours.xlsx", XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "amount"}, tab.Columns)
	require.Equal(t, 2, tab.Len())
	assert.Equal(t, "A2", tab.Cell(1, 0).String())
}

func TestReadXLSX_NumericCellsPreserved(t *testing.T) {
	path := createTestXLSX(t, func(sheet *xlsx.Sheet) {
		addStringRow(sheet, "id", "amount")
		row := sheet.AddRow()
		row.AddCell().SetString("A1")
		row.AddCell().SetFloat(1234.56)
	})

	tab, err := ReadXLSX(path, "ours.xlsx", XLSXOptions{})
	require.NoError(t, err)

	cell := tab.Cell(0, 1)
	assert.True(t, cell.IsNumber)
	assert.InDelta(t, 1234.56, cell.Number, 1e-9)
}

func TestReadXLSX_SheetByName(t *testing.T) {
	f := xlsx.NewFile()
	first, err := f.AddSheet("First")
	require.NoError(t, err)
	addStringRow(first, "a")
	second, err := f.AddSheet("Data")
	require.NoError(t, err)
	addStringRow(second, "id")
	addStringRow(second, "A1")

	path := filepath.Join(t.TempDir(), "multi.xlsx")
	require.NoError(t, f.Save(path))

	tab, err := ReadXLSX(path, "multi.xlsx", XLSXOptions{SheetName: "Data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, tab.Columns)
	assert.Equal(t, 1, tab.Len())
}

func TestReadXLSX_SheetNotFound(t *testing.T) {
	path := createTestXLSX(t, func(sheet *xlsx.Sheet) {
		addStringRow(sheet, "id")
	})

	_, err := ReadXLSX(path, "ours.xlsx", XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)
}

func TestReadXLSX_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "nope.xlsx", XLSXOptions{})
	assert.Error(t, err)
}
