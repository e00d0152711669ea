package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pedidos/internal/obs"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

const defaultCategory = "General"

// ErrReloadInProgress is returned when an ingestion run is already in flight.
// The caller treats it as a no-op rather than queueing a second run.
var ErrReloadInProgress = errors.New("catalog reload already in progress")

// Layout maps semantic fields to column indices in the source rows. It is
// validated once at ingestion start so the parsing loop stays free of magic
// numbers.
type Layout struct {
	Ref        int
	Name       int
	ClientKey  int
	ClientName int
	Category   int
	Quantity   int
	Price      int
	MinColumns int
}

// DefaultLayout matches the column order of the published price list.
func DefaultLayout() Layout {
	return Layout{
		Ref:        7,
		Name:       1,
		ClientKey:  2,
		ClientName: 3,
		Category:   8,
		Quantity:   9,
		Price:      10,
		MinColumns: 11,
	}
}

// Validate checks that every mapped index fits inside the minimum column count.
func (l Layout) Validate() error {
	max := l.Ref
	for _, idx := range []int{l.Name, l.ClientKey, l.ClientName, l.Category, l.Quantity, l.Price} {
		if idx < 0 {
			return errors.New("catalog: column index cannot be negative")
		}
		if idx > max {
			max = idx
		}
	}
	if l.Ref < 0 {
		return errors.New("catalog: column index cannot be negative")
	}
	if l.MinColumns <= max {
		return fmt.Errorf("catalog: min columns %d does not cover mapped index %d", l.MinColumns, max)
	}
	return nil
}

// Ingestor fetches raw catalog rows and rebuilds the store from them. A run
// that cannot fetch or parse the source swaps in the built-in default catalog
// instead, so the store is always queryable once Run returns.
type Ingestor struct {
	Source string
	Layout Layout
	Store  *Store
	Client *http.Client
	Logger zerolog.Logger

	mu      sync.Mutex
	running bool
}

// Run executes a full fetch-parse-replace cycle. Overlapping runs are
// rejected with ErrReloadInProgress; the in-flight run is left alone.
func (ing *Ingestor) Run(ctx context.Context) error {
	if ing == nil || ing.Store == nil {
		return errors.New("catalog: ingestor not configured")
	}
	ing.mu.Lock()
	if ing.running {
		ing.mu.Unlock()
		return ErrReloadInProgress
	}
	ing.running = true
	ing.mu.Unlock()
	defer func() {
		ing.mu.Lock()
		ing.running = false
		ing.mu.Unlock()
	}()

	if err := ing.Layout.Validate(); err != nil {
		return err
	}

	rows, err := ing.fetchRows(ctx)
	if err != nil {
		ing.Logger.Warn().Err(err).Str("source", ing.Source).Msg("catalog source unavailable, using default catalog")
		obs.ObserveIngestRun("fallback")
		products, tiers := DefaultCatalog()
		ing.Store.Replace(products, tiers)
		return nil
	}

	products, tiers := ing.ParseRows(rows)
	if len(products) == 0 {
		ing.Logger.Warn().Str("source", ing.Source).Msg("catalog source yielded no usable rows, using default catalog")
		obs.ObserveIngestRun("fallback")
		products, tiers = DefaultCatalog()
		ing.Store.Replace(products, tiers)
		return nil
	}

	ing.Store.Replace(products, tiers)
	obs.ObserveIngestRun("ok")
	ing.Logger.Info().Int("products", len(products)).Str("source", ing.Source).Msg("catalog loaded")
	return nil
}

// ParseRows turns raw rows into deduplicated products and a per-ref tier
// table. Row 0 is the header. Malformed rows are skipped with a warning; for
// rows sharing a ref the first occurrence defines the product and later rows
// only extend its tier list. Tier lists are left unsorted here; the store
// normalises them on write.
func (ing *Ingestor) ParseRows(rows [][]string) ([]Product, map[string][]pricing.Tier) {
	l := ing.Layout
	products := make([]Product, 0)
	seen := map[string]struct{}{}
	tiers := map[string][]pricing.Tier{}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < l.MinColumns {
			ing.rejectRow(i, "too few columns")
			continue
		}
		ref := strings.TrimSpace(row[l.Ref])
		name := strings.TrimSpace(row[l.Name])
		price := CleanAmount(row[l.Price])
		if ref == "" {
			ing.rejectRow(i, "empty ref")
			continue
		}
		if name == "" {
			ing.rejectRow(i, "empty name")
			continue
		}
		if price == 0 {
			ing.rejectRow(i, "no price data")
			continue
		}
		qty := CleanAmount(row[l.Quantity])

		tiers[ref] = append(tiers[ref], pricing.Tier{MinQuantity: int(qty), UnitPrice: price})
		obs.ObserveIngestRow("accepted")

		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		category := strings.TrimSpace(row[l.Category])
		if category == "" {
			category = defaultCategory
		}
		products = append(products, Product{
			Ref:        ref,
			Name:       name,
			Category:   category,
			ClientKey:  strings.TrimSpace(row[l.ClientKey]),
			ClientName: strings.TrimSpace(row[l.ClientName]),
		})
	}
	return products, tiers
}

func (ing *Ingestor) rejectRow(index int, reason string) {
	obs.ObserveIngestRow("rejected")
	ing.Logger.Warn().Int("row", index).Str("reason", reason).Msg("catalog row skipped")
}

// CleanAmount strips thousands separators, quotation characters, and
// whitespace from a numeric cell and parses the remainder as a non-negative
// integer. Cells that still fail to parse resolve to 0.
func CleanAmount(cell string) pricing.Money {
	var b strings.Builder
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (ing *Ingestor) fetchRows(ctx context.Context) ([][]string, error) {
	source := strings.TrimSpace(ing.Source)
	if source == "" {
		return nil, errors.New("catalog: no source configured")
	}
	data, err := ing.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(source), ".xlsx") {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

func (ing *Ingestor) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := ing.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return data, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := f.GetSheetName(1)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheet), nil
}

func parseCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// DefaultCatalog returns the built-in fallback used when the configured
// source is entirely unusable. Callers depend on the store being queryable
// after every ingestion run.
func DefaultCatalog() ([]Product, map[string][]pricing.Tier) {
	products := []Product{
		{Ref: "REF001", Name: "Producto Alpha Series", Category: defaultCategory, ClientKey: "900123456-7", ClientName: "Empresa Demo SAS"},
		{Ref: "REF002", Name: "Producto Beta Professional", Category: defaultCategory, ClientKey: "900123456-7", ClientName: "Empresa Demo SAS"},
	}
	tiers := map[string][]pricing.Tier{
		"REF001": {
			{MinQuantity: 1, UnitPrice: 25000},
			{MinQuantity: 10, UnitPrice: 22000},
			{MinQuantity: 50, UnitPrice: 20000},
		},
		"REF002": {
			{MinQuantity: 1, UnitPrice: 35000},
			{MinQuantity: 5, UnitPrice: 32000},
			{MinQuantity: 20, UnitPrice: 30000},
		},
	}
	return products, tiers
}
