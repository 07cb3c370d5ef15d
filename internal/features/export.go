package features

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sucolo/hexfeat/internal/model"
)

// IndexColumn is the header of the cell id column in tabular exports.
const IndexColumn = model.FieldHexID

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// WriteCSV writes the table with a header row. Nulls are empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{IndexColumn}, t.ColumnNames()...)); err != nil {
		return eris.Wrap(err, "features: write csv header")
	}
	cols := t.Columns()
	for i, id := range t.Index() {
		record := make([]string, 0, len(cols)+1)
		record = append(record, id)
		for _, c := range cols {
			record = append(record, c.Values[i].String())
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "features: write csv row %s", id)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "features: flush csv")
}

// WriteJSON writes the table in its split JSON orientation.
func WriteJSON(w io.Writer, t *Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(t), "features: encode json")
}

// WriteXLSX writes the table to a single-sheet workbook. Numbers are stored
// as numeric cells and nulls as blank cells.
func WriteXLSX(w io.Writer, t *Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("features")
	if err != nil {
		return eris.Wrap(err, "features: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString(IndexColumn)
	for _, name := range t.ColumnNames() {
		header.AddCell().SetString(name)
	}

	cols := t.Columns()
	for i, id := range t.Index() {
		row := sheet.AddRow()
		row.AddCell().SetString(id)
		for _, c := range cols {
			cell := row.AddCell()
			v := c.Values[i]
			if num, ok := v.Float(); ok {
				cell.SetFloat(num)
			} else if s, ok := v.Text(); ok {
				cell.SetString(s)
			}
		}
	}

	return eris.Wrap(f.Write(w), "features: write xlsx")
}

// FormatFromPath picks the export format from a file extension; unknown
// extensions fall back to CSV.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Write encodes t in the given format.
func Write(w io.Writer, t *Table, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatCSV, "":
		return WriteCSV(w, t)
	default:
		return eris.Errorf("features: unsupported export format %q", format)
	}
}

// WriteFile exports t to path, choosing the format from the extension.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "features: create %s", path)
	}
	if err := Write(f, t, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "features: close %s", path)
}
