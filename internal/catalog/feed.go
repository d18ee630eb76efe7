package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Feed columns. barcode, name and price are required; id defaults to the
// barcode.
const (
	ColumnID         = "id"
	ColumnBarcode    = "barcode"
	ColumnName       = "name"
	ColumnBrand      = "brand"
	ColumnCategory   = "category"
	ColumnPrice      = "price"
	ColumnTaxPercent = "tax_percent"
	ColumnStockCount = "stock_count"
	ColumnImageURL   = "image_url"
	ColumnActive     = "active"
)

var requiredColumns = []string{ColumnBarcode, ColumnName, ColumnPrice}

// RowError is a feed row that could not be parsed.
type RowError struct {
	Feed string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return e.Feed + ":" + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// openFeed opens a feed file, decompressing it when the name ends in .gz.
func openFeed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gzErr
}

// feedReader decodes products from a CSV feed with a header row.
type feedReader struct {
	name    string
	csv     *csv.Reader
	columns map[string]int
}

func newFeedReader(name string, r io.Reader) (*feedReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Errorf("%s: empty feed", name)
		}
		return nil, errors.Wrapf(err, "%s: read header", name)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, errors.Errorf("%s: missing column %q", name, c)
		}
	}
	return &feedReader{name: name, csv: cr, columns: columns}, nil
}

// next returns the next product. Malformed rows yield a *RowError and the
// reader can continue; io.EOF ends the feed.
func (fr *feedReader) next() (product.Product, error) {
	record, err := fr.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return product.Product{}, &RowError{Feed: fr.name, Line: parseErr.Line, Err: parseErr.Err}
		}
		return product.Product{}, err
	}
	line, _ := fr.csv.FieldPos(0)

	p, err := fr.parse(record)
	if err != nil {
		return product.Product{}, &RowError{Feed: fr.name, Line: line, Err: err}
	}
	return p, nil
}

func (fr *feedReader) field(record []string, column string) string {
	i, ok := fr.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (fr *feedReader) parse(record []string) (product.Product, error) {
	p := product.Product{
		ID:         fr.field(record, ColumnID),
		Barcode:    fr.field(record, ColumnBarcode),
		Name:       fr.field(record, ColumnName),
		Brand:      fr.field(record, ColumnBrand),
		Category:   fr.field(record, ColumnCategory),
		ImageURL:   fr.field(record, ColumnImageURL),
		TaxPercent: product.DefaultTaxPercent,
		Active:     true,
	}
	if p.ID == "" {
		p.ID = p.Barcode
	}

	var err error
	if p.Price, err = decimal.NewFromString(fr.field(record, ColumnPrice)); err != nil {
		return p, errors.Errorf("price %q is not a number", fr.field(record, ColumnPrice))
	}
	if v := fr.field(record, ColumnTaxPercent); v != "" {
		if p.TaxPercent, err = decimal.NewFromString(v); err != nil {
			return p, errors.Errorf("tax_percent %q is not a number", v)
		}
	}
	if v := fr.field(record, ColumnStockCount); v != "" {
		if p.StockCount, err = strconv.Atoi(v); err != nil {
			return p, errors.Errorf("stock_count %q is not an integer", v)
		}
	}
	if v := fr.field(record, ColumnActive); v != "" {
		if p.Active, err = strconv.ParseBool(v); err != nil {
			return p, errors.Errorf("active %q is not a boolean", v)
		}
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
