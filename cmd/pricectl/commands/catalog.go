package commands

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/pokebim/pricewatch/models"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Product is one catalog entry.
type Product struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// Strategy overrides the catalog default for this product.
	Strategy string `yaml:"strategy,omitempty"`
}

// Catalog is the list of products refresh keeps priced.
//
//	strategy: auto
//	products:
//	  - name: Crown-Zenith-Booster-Box
//	    url: https://www.cardmarket.com/es/Pokemon/Products/Booster-Boxes/Crown-Zenith-Booster-Box?language=10
type Catalog struct {
	Strategy string    `yaml:"strategy"`
	Products []Product `yaml:"products"`
}

// LoadCatalog reads and checks a YAML catalog.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read catalog")
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, eris.Wrapf(err, "parse catalog %s", path)
	}
	if len(c.Products) == 0 {
		return nil, eris.Errorf("catalog %s lists no products", path)
	}
	seen := make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		if p.Name == "" || p.URL == "" {
			return nil, eris.Errorf("catalog entry %d needs a name and a url", i+1)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, eris.Errorf("catalog lists %q twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return &c, nil
}

// Pricer looks up one product price.
type Pricer interface {
	Price(ctx context.Context, productURL, strategy string) (*models.PriceResponse, error)
}

// Failure is a product that could not be priced.
type Failure struct {
	Name string
	Err  error
}

// Collect prices every catalog product with at most concurrency lookups in
// flight. Products that fail are reported and left out of the result; only
// cancellation stops the run.
func Collect(ctx context.Context, p Pricer, c *Catalog, concurrency int) (map[string]float64, []Failure, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu       sync.Mutex
		prices   = make(map[string]float64, len(c.Products))
		failures []Failure
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, prod := range c.Products {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			strategy := prod.Strategy
			if strategy == "" {
				strategy = c.Strategy
			}

			resp, err := p.Price(gCtx, prod.URL, strategy)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("price lookup failed", "product", prod.Name, "error", err)
				failures = append(failures, Failure{Name: prod.Name, Err: err})
				return nil
			}
			slog.Info("priced", "product", prod.Name, "price", resp.Price, "strategy", resp.Strategy)
			prices[prod.Name] = resp.Price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
	return prices, failures, nil
}
