package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"delta_bot/internal/models"
)

// Catalog maps a trading symbol to its exchange product.
type Catalog struct {
	bySymbol map[string]models.Instrument
}

type catalogFile struct {
	Instruments []models.Instrument `yaml:"instruments"`
}

// DefaultInstruments is used when no catalog file exists.
var DefaultInstruments = []models.Instrument{
	{Symbol: "ETHUSD", ProductID: 3136},
	{Symbol: "BTCUSD", ProductID: 27},
}

func NewCatalog(items []models.Instrument) (*Catalog, error) {
	c := &Catalog{bySymbol: make(map[string]models.Instrument, len(items))}
	for _, it := range items {
		it.Symbol = strings.ToUpper(strings.TrimSpace(it.Symbol))
		if it.Symbol == "" || it.ProductID <= 0 {
			return nil, fmt.Errorf("instrument %q: symbol and positive product_id required", it.Symbol)
		}
		if it.StopFloorPct < 0 {
			return nil, fmt.Errorf("instrument %s: negative stop_floor_pct", it.Symbol)
		}
		if _, dup := c.bySymbol[it.Symbol]; dup {
			return nil, fmt.Errorf("instrument %s listed twice", it.Symbol)
		}
		c.bySymbol[it.Symbol] = it
	}
	return c, nil
}

// LoadCatalog decodes a yaml catalog; a missing file yields DefaultInstruments.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewCatalog(DefaultInstruments)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return NewCatalog(f.Instruments)
}

func (c *Catalog) Lookup(symbol string) (models.Instrument, error) {
	it, ok := c.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, models.ErrUnknownInstrument)
	}
	return it, nil
}

// Symbols lists catalog symbols, sorted.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.bySymbol))
	for s := range c.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
