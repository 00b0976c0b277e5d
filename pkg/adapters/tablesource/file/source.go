// Package file reads tables from a directory of CSV and XLSX extracts.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/datacheck/pkg/adapters/tablesource"
	"github.com/ekaya-inc/datacheck/pkg/models"
)

const (
	extCSV  = ".csv"
	extXLSX = ".xlsx"
)

// Source discovers table files in one directory.
type Source struct {
	dir    string
	logger *zap.Logger
}

// New creates a file source rooted at dir. The directory must exist.
func New(dir string, logger *zap.Logger) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset path %s is not a directory", dir)
	}
	return &Source{dir: dir, logger: logger.Named("file-source")}, nil
}

var _ tablesource.Source = (*Source)(nil)

// Discover lists *.csv and *.xlsx files sorted by name. When two files map to
// the same table identifier the first one wins.
func (s *Source) Discover(ctx context.Context) ([]models.TableRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	refs := make([]models.TableRef, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		table := models.TableNameFromFile(name)
		if first, dup := seen[table]; dup {
			s.logger.Warn("Ignoring file for already discovered table",
				zap.String("table", table),
				zap.String("file", name),
				zap.String("using", first))
			continue
		}
		seen[table] = name
		refs = append(refs, models.TableRef{
			Name:     table,
			Source:   name,
			Location: filepath.Join(s.dir, name),
		})
	}

	s.logger.Debug("Discovered table files", zap.String("dir", s.dir), zap.Int("count", len(refs)))
	return refs, nil
}

// Load parses the file behind ref.
func (s *Source) Load(ctx context.Context, ref models.TableRef) (*models.Table, error) {
	var (
		table *models.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(ref.Location)) {
	case extCSV:
		table, err = readCSV(ctx, ref.Location)
	case extXLSX:
		table, err = readXLSX(ctx, ref.Location)
	default:
		return nil, fmt.Errorf("unsupported table file %s", ref.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref.Source, err)
	}
	table.Name = ref.Name
	return table, nil
}

// Close is a no-op; files are closed after each Load.
func (s *Source) Close() error {
	return nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extCSV, extXLSX:
		return true
	}
	return false
}
