// Package catalog loads products into the catalog from YAML fixtures and
// CSV feeds. It is used by operator tooling only; the API never writes the
// catalog.
package catalog

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/smart-trolley/internal/domain/product"
)

type seedProduct struct {
	ID         string `yaml:"id"`
	Barcode    string `yaml:"barcode"`
	Name       string `yaml:"name"`
	Brand      string `yaml:"brand"`
	Category   string `yaml:"category"`
	Price      string `yaml:"price"`
	TaxPercent string `yaml:"tax_percent"`
	StockCount int    `yaml:"stock_count"`
	ImageURL   string `yaml:"image_url"`
	Active     *bool  `yaml:"active"`
}

// ParseSeed decodes a YAML list of products. Products are active unless
// they set active: false; a missing tax_percent means the default GST rate.
func ParseSeed(data []byte) ([]product.Product, error) {
	var rows []seedProduct
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode seed yaml")
	}

	out := make([]product.Product, 0, len(rows))
	seen := make(map[string]string, len(rows))
	for i, row := range rows {
		p, err := row.product()
		if err != nil {
			return nil, errors.Wrapf(err, "seed product #%d", i+1)
		}
		if other, ok := seen[p.Barcode]; ok {
			return nil, errors.Errorf("seed product %q: barcode %s already used by %q", p.ID, p.Barcode, other)
		}
		seen[p.Barcode] = p.ID
		out = append(out, p)
	}
	return out, nil
}

func (s seedProduct) product() (product.Product, error) {
	p := product.Product{
		ID:         strings.TrimSpace(s.ID),
		Barcode:    strings.TrimSpace(s.Barcode),
		Name:       strings.TrimSpace(s.Name),
		Brand:      strings.TrimSpace(s.Brand),
		Category:   strings.TrimSpace(s.Category),
		StockCount: s.StockCount,
		ImageURL:   strings.TrimSpace(s.ImageURL),
		Active:     s.Active == nil || *s.Active,
		TaxPercent: product.DefaultTaxPercent,
	}

	var err error
	if p.Price, err = decimal.NewFromString(strings.TrimSpace(s.Price)); err != nil {
		return p, errors.Wrapf(err, "price %q", s.Price)
	}
	if tax := strings.TrimSpace(s.TaxPercent); tax != "" {
		if p.TaxPercent, err = decimal.NewFromString(tax); err != nil {
			return p, errors.Wrapf(err, "tax_percent %q", s.TaxPercent)
		}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
