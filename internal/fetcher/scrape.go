package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/model"
)

// ScrapeOptions configures the scraping fetcher.
type ScrapeOptions struct {
	UserAgent string
	Timeout   time.Duration

	// TableSelector narrows which table is read. Defaults to the first
	// table in the document.
	TableSelector string
}

// ScrapeFetcher extracts records from an HTML table on the source's
// endpoint page. The header row supplies the raw field names.
type ScrapeFetcher struct {
	client *http.Client
	opts   ScrapeOptions
}

// NewScrapeFetcher creates a ScrapeFetcher with the given options.
func NewScrapeFetcher(opts ScrapeOptions) *ScrapeFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "projectwatch/1.0"
	}
	if opts.TableSelector == "" {
		opts.TableSelector = "table"
	}
	return &ScrapeFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Fetch downloads the endpoint page and converts its first matching table
// into raw records, one per body row.
func (f *ScrapeFetcher) Fetch(ctx context.Context, src model.SourceDefinition) ([]model.RawRecord, error) {
	if src.Endpoint == "" {
		return nil, eris.Errorf("scrape: source %s has no endpoint configured", src.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: create request for %s", src.ID)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", src.ID)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("scrape: unexpected status %d from %s", resp.StatusCode, src.Endpoint)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse %s", src.ID)
	}

	records, err := tableRecords(doc, f.opts.TableSelector)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: %s", src.ID)
	}

	zap.L().Debug("scrape: extracted table",
		zap.String("source", src.ID),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// tableRecords turns the first selected table into records keyed by the
// header row's cell text.
func tableRecords(doc *goquery.Document, selector string) ([]model.RawRecord, error) {
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, eris.New("no table found in document")
	}

	var headers []string
	table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	if len(headers) == 0 {
		return nil, eris.New("table has no header row")
	}

	var records []model.RawRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		rec := make(model.RawRecord, len(headers))
		cells.Each(func(j int, cell *goquery.Selection) {
			if j < len(headers) {
				rec[headers[j]] = strings.TrimSpace(cell.Text())
			}
		})
		records = append(records, rec)
	})

	return records, nil
}
