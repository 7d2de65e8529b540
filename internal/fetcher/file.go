package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/model"
)

// FileOptions configures the file fetcher.
type FileOptions struct {
	Timeout time.Duration
}

// FileFetcher reads record collections from uploaded or published files:
// a local path, an http(s) URL, or an ftp URL. CSV, JSON, and XLSX are
// supported, selected by file extension.
type FileFetcher struct {
	client *http.Client
	opts   FileOptions
}

// NewFileFetcher creates a FileFetcher with the given options.
func NewFileFetcher(opts FileOptions) *FileFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &FileFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Fetch opens the source's endpoint and parses it into raw records.
func (f *FileFetcher) Fetch(ctx context.Context, src model.SourceDefinition) ([]model.RawRecord, error) {
	if src.Endpoint == "" {
		return nil, eris.Errorf("file: source %s has no file configured", src.ID)
	}

	rc, name, err := f.open(ctx, src.Endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "file: open %s", src.ID)
	}
	defer rc.Close() //nolint:errcheck

	records, err := parseByExtension(rc, name)
	if err != nil {
		return nil, eris.Wrapf(err, "file: parse %s", src.ID)
	}

	zap.L().Debug("file: parsed",
		zap.String("source", src.ID),
		zap.String("file", name),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// open returns a reader for the endpoint plus the file name used for
// extension detection.
func (f *FileFetcher) open(ctx context.Context, endpoint string) (io.ReadCloser, string, error) {
	u, err := url.Parse(endpoint)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if reqErr != nil {
				return nil, "", eris.Wrap(reqErr, "create request")
			}
			resp, doErr := f.client.Do(req)
			if doErr != nil {
				return nil, "", eris.Wrap(doErr, "download")
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				return nil, "", eris.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
			}
			return resp.Body, path.Base(u.Path), nil
		case "ftp":
			rc, ftpErr := ftpDownload(ctx, endpoint, f.opts.Timeout)
			if ftpErr != nil {
				return nil, "", ftpErr
			}
			return rc, path.Base(u.Path), nil
		}
	}

	file, err := os.Open(endpoint)
	if err != nil {
		return nil, "", eris.Wrap(err, "open file")
	}
	return file, path.Base(endpoint), nil
}

func parseByExtension(r io.Reader, name string) ([]model.RawRecord, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return parseCSV(r)
	case ".json":
		return decodeRecords(r)
	case ".xlsx":
		return parseXLSX(r)
	default:
		return nil, eris.Errorf("unsupported file type %q", path.Ext(name))
	}
}

// parseCSV reads a CSV with a header row; each body row becomes a record
// keyed by the header cells.
func parseCSV(r io.Reader) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []model.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		records = append(records, rowToRecord(header, row))
	}
	return records, nil
}

func rowToRecord(header, row []string) model.RawRecord {
	rec := make(model.RawRecord, len(header))
	for i, key := range header {
		if key == "" {
			continue
		}
		if i < len(row) {
			rec[key] = strings.TrimSpace(row[i])
		}
	}
	return rec
}
