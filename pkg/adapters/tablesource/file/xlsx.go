package file

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ekaya-inc/datacheck/pkg/models"
)

// readXLSX reads the first sheet of a workbook. Rows shorter than the header are
// padded with null cells; a non-empty cell beyond the header is an error.
func readXLSX(ctx context.Context, path string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var table *models.Table
	for n := 0; rows.Next(); n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		values, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n+1, err)
		}

		if table == nil {
			if len(values) == 0 {
				continue // leading blank rows
			}
			columns := make([]string, len(values))
			for i, v := range values {
				columns[i] = strings.TrimSpace(v)
			}
			table = &models.Table{Columns: columns}
			continue
		}

		row := make([]models.Cell, len(table.Columns))
		for i := range row {
			if i < len(values) {
				row[i] = textCell(values[i])
			} else {
				row[i] = models.NullCell()
			}
		}
		for i := len(table.Columns); i < len(values); i++ {
			if values[i] != "" {
				return nil, fmt.Errorf("row %d has %d cells, header has %d", n+1, len(values), len(table.Columns))
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %s: %w", sheets[0], err)
	}
	if table == nil {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}
	return table, nil
}
