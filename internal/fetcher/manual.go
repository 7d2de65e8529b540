package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/model"
)

// ManualFetcher reads manually submitted records from a spool directory of
// JSON files. Each file holds one record object or an array of records.
// Files are read in name order so submissions stay ordered.
type ManualFetcher struct {
	dir string
}

// NewManualFetcher creates a ManualFetcher reading from the given directory.
func NewManualFetcher(dir string) *ManualFetcher {
	return &ManualFetcher{dir: dir}
}

// Fetch reads every JSON submission for the source. The source's endpoint,
// when set, overrides the configured spool directory. A missing directory
// yields no records rather than an error: no submissions is a normal state.
func (f *ManualFetcher) Fetch(ctx context.Context, src model.SourceDefinition) ([]model.RawRecord, error) {
	dir := f.dir
	if src.Endpoint != "" {
		dir = src.Endpoint
	}
	if dir == "" {
		return nil, eris.Errorf("manual: source %s has no submission directory configured", src.ID)
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "manual: read directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var records []model.RawRecord
	for _, name := range names {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "manual: cancelled")
		}

		file, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "manual: open %s", name)
		}
		recs, err := decodeSubmission(file)
		_ = file.Close()
		if err != nil {
			zap.L().Warn("manual: skipping malformed submission",
				zap.String("source", src.ID),
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}
