package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ekaya-inc/datacheck/pkg/models"
)

const (
	utf8BOM       = "\ufeff"
	ctxCheckEvery = 4096
)

// readCSV reads a header row followed by data rows. Empty fields are null cells.
func readCSV(ctx context.Context, path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	columns[0] = strings.TrimPrefix(columns[0], utf8BOM)

	table := &models.Table{Columns: columns}
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n+1, err)
		}

		row := make([]models.Cell, len(record))
		for i, field := range record {
			row[i] = textCell(field)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func textCell(field string) models.Cell {
	if field == "" {
		return models.NullCell()
	}
	return models.Value(field)
}
