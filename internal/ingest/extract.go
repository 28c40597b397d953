// Package ingest parses HR extract files (CSV and XLSX) and merges them into
// one employee table keyed on the employee identifier.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/model"
)

// ExtractSpec describes one HR extract file and how to join it.
type ExtractSpec struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Key       string `yaml:"key" mapstructure:"key"`               // join key column within this extract
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`           // XLSX only; empty = first sheet
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`   // CSV only; empty = comma
}

// ReadExtract parses one extract file into a table. The format is chosen by
// file extension; the first row names the columns.
func ReadExtract(ctx context.Context, spec ExtractSpec) (*model.Table, error) {
	switch strings.ToLower(filepath.Ext(spec.Path)) {
	case ".csv":
		return readCSV(ctx, spec)
	case ".xlsx":
		return readXLSX(spec)
	default:
		return nil, eris.Errorf("ingest: unsupported extract format %q", filepath.Ext(spec.Path))
	}
}

func readCSV(ctx context.Context, spec ExtractSpec) (*model.Table, error) {
	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", spec.Path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if spec.Delimiter != "" {
		reader.Comma = rune(spec.Delimiter[0])
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read header of %s", spec.Path)
	}
	t := model.NewTable(trimAll(header))

	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read row of %s", spec.Path)
		}
		if err := t.AppendRow(cellsFromStrings(record, t.NumCols())); err != nil {
			return nil, eris.Wrapf(err, "ingest: row of %s", spec.Path)
		}
	}

	zap.L().Named("ingest").Debug("parsed extract",
		zap.String("path", spec.Path),
		zap.Int("rows", t.NumRows()),
		zap.Int("cols", t.NumCols()))
	return t, nil
}

func readXLSX(spec ExtractSpec) (*model.Table, error) {
	f, err := xlsx.OpenFile(spec.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", spec.Path)
	}

	sheet, err := getSheet(f, spec)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s has no rows", spec.Path)
	}

	header := rowToStrings(sheet.Rows[0])
	t := model.NewTable(trimAll(header))

	for _, row := range sheet.Rows[1:] {
		if err := t.AppendRow(cellsFromStrings(rowToStrings(row), t.NumCols())); err != nil {
			return nil, eris.Wrapf(err, "ingest: row of %s", spec.Path)
		}
	}

	zap.L().Named("ingest").Debug("parsed extract",
		zap.String("path", spec.Path),
		zap.Int("rows", t.NumRows()),
		zap.Int("cols", t.NumCols()))
	return t, nil
}

func getSheet(f *xlsx.File, spec ExtractSpec) (*xlsx.Sheet, error) {
	if spec.Sheet != "" {
		sheet, ok := f.Sheet[spec.Sheet]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found in %s", spec.Sheet, spec.Path)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", spec.Path)
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

// cellsFromStrings converts one raw record to cells: empty fields become
// null, cleanly numeric fields become numbers, everything else stays text.
// Short records are padded with nulls so ragged extracts still load.
func cellsFromStrings(record []string, width int) []model.Cell {
	cells := make([]model.Cell, width)
	for i := range cells {
		cells[i] = model.Null
	}
	for i, field := range record {
		if i >= width {
			break
		}
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if n, err := strconv.ParseFloat(field, 64); err == nil {
			cells[i] = model.Number(n)
			continue
		}
		cells[i] = model.String(field)
	}
	return cells
}
