package catalog

import (
	"context"
	"io"
	"math/bits"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Import defaults.
const (
	DefaultBatchSize     = 500
	DefaultBloomCapacity = 1_000_000
	DefaultBloomFPR      = 0.001
)

// MaxFeeds is the number of feeds one import can compare.
const MaxFeeds = bits.UintSize

// Report summarizes an import.
type Report struct {
	Feeds    int
	Rows     int
	Imported int
	// Duplicates lists barcodes present in more than one feed, sorted.
	// Their products are not imported.
	Duplicates []string
	Invalid    []*RowError
}

// Importer loads CSV feeds into the catalog.
type Importer struct {
	writer    product.Writer
	batchSize int
	capacity  uint
	fpr       float64
}

// ImportOption configures an Importer.
type ImportOption func(im *Importer)

// WithBatchSize sets how many products go into one upsert.
func WithBatchSize(n int) ImportOption {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithBloomEstimates sizes the per-feed bloom filters.
func WithBloomEstimates(capacity uint, fpr float64) ImportOption {
	return func(im *Importer) {
		if capacity > 0 && fpr > 0 && fpr < 1 {
			im.capacity = capacity
			im.fpr = fpr
		}
	}
}

// NewImporter creates an Importer writing to w.
func NewImporter(w product.Writer, opts ...ImportOption) *Importer {
	im := &Importer{
		writer:    w,
		batchSize: DefaultBatchSize,
		capacity:  DefaultBloomCapacity,
		fpr:       DefaultBloomFPR,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

type feedResult struct {
	products   []product.Product
	candidates map[string]uint
	invalid    []*RowError
}

// Import reads every feed twice. The first pass builds one bloom filter of
// barcodes per feed; the second collects products and flags barcodes that
// another feed's filter may contain. A barcode flagged by two or more feeds
// is a confirmed cross-feed duplicate and is skipped. Within one feed the
// last row for a barcode wins.
func (im *Importer) Import(ctx context.Context, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return nil, errors.New("no feeds")
	}
	if len(paths) > MaxFeeds {
		return nil, errors.Errorf("at most %d feeds per import, got %d", MaxFeeds, len(paths))
	}
	lg := zctx.From(ctx)

	lg.Info("Pass 1: building bloom filters", zap.Int("feeds", len(paths)))
	filters, err := im.buildFilters(ctx, paths)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	lg.Info("Pass 2: collecting products")
	results, err := im.collect(ctx, paths, filters)
	if err != nil {
		return nil, errors.Wrap(err, "collect products")
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for barcode, mask := range r.candidates {
			merged[barcode] |= mask
		}
	}
	report := &Report{Feeds: len(paths)}
	dup := make(map[string]struct{})
	for barcode, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			dup[barcode] = struct{}{}
			report.Duplicates = append(report.Duplicates, barcode)
		}
	}
	slices.Sort(report.Duplicates)

	var unique []product.Product
	for _, r := range results {
		report.Rows += len(r.products)
		report.Invalid = append(report.Invalid, r.invalid...)
		for _, p := range r.products {
			if _, ok := dup[p.Barcode]; !ok {
				unique = append(unique, p)
			}
		}
	}

	for batch := range slices.Chunk(unique, im.batchSize) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := im.writer.Upsert(ctx, batch...); err != nil {
			return report, errors.Wrap(err, "upsert products")
		}
		report.Imported += len(batch)
	}

	lg.Info("Import complete",
		zap.Int("rows", report.Rows),
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("invalid", len(report.Invalid)),
	)
	return report, nil
}

func (im *Importer) buildFilters(ctx context.Context, paths []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.capacity, im.fpr)
			if err := streamFeed(ctx, path, func(p product.Product) {
				filter.AddString(p.Barcode)
			}, nil); err != nil {
				return err
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (im *Importer) collect(ctx context.Context, paths []string, filters []*bloom.BloomFilter) ([]feedResult, error) {
	results := make([]feedResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			bit := uint(1) << uint(i)
			byBarcode := make(map[string]int)
			r := feedResult{candidates: make(map[string]uint)}

			onProduct := func(p product.Product) {
				if idx, ok := byBarcode[p.Barcode]; ok {
					r.products[idx] = p
				} else {
					byBarcode[p.Barcode] = len(r.products)
					r.products = append(r.products, p)
				}
				for j, f := range filters {
					if j != i && f.TestString(p.Barcode) {
						r.candidates[p.Barcode] |= bit
						break
					}
				}
			}
			onInvalid := func(e *RowError) {
				r.invalid = append(r.invalid, e)
			}
			if err := streamFeed(ctx, path, onProduct, onInvalid); err != nil {
				return err
			}

			zctx.From(ctx).Info("Feed scanned",
				zap.String("feed", path),
				zap.Int("products", len(r.products)),
				zap.Int("candidates", len(r.candidates)),
				zap.Int("invalid", len(r.invalid)),
			)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// streamFeed calls onProduct for each valid row and onInvalid, when set, for
// each malformed one.
func streamFeed(ctx context.Context, path string, onProduct func(product.Product), onInvalid func(*RowError)) error {
	rc, err := openFeed(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	fr, err := newFeedReader(path, rc)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := fr.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var rowErr *RowError
		switch {
		case errors.As(err, &rowErr):
			if onInvalid != nil {
				onInvalid(rowErr)
			}
		case err != nil:
			return errors.Wrapf(err, "read %s", path)
		default:
			onProduct(p)
		}
	}
}
