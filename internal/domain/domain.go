package domain

import (
	"strconv"
	"strings"
	"time"
)

type Category string

const (
	CategoryExchangeRate  Category = "exchange-rate"
	CategoryInterestRate  Category = "interest-rate"
	CategoryInflation     Category = "inflation"
	CategoryMarketIndex   Category = "market-index"
	CategoryAgroCommodity Category = "agro-commodity"
	CategoryCrypto        Category = "crypto"
)

// Categories lists every indicator category in display order.
var Categories = []Category{
	CategoryExchangeRate,
	CategoryInterestRate,
	CategoryInflation,
	CategoryMarketIndex,
	CategoryAgroCommodity,
	CategoryCrypto,
}

func ParseCategory(v string) (Category, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, c := range Categories {
		if string(c) == v {
			return c, true
		}
	}
	return "", false
}

type ValueFormat string

const (
	FormatCurrency ValueFormat = "currency"
	FormatPercent  ValueFormat = "percent"
	FormatDecimal  ValueFormat = "decimal"
)

// Indicator is a single named financial value at a point in time.
// A fallback indicator always carries a disclaimer.
type Indicator struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	ShortName       string      `json:"short_name"`
	Category        Category    `json:"category"`
	Value           float64     `json:"value"`
	Buy             *float64    `json:"buy,omitempty"`
	ChangePct       *float64    `json:"change_pct,omitempty"`
	Format          ValueFormat `json:"format"`
	Decimals        int         `json:"decimals"`
	Unit            string      `json:"unit,omitempty"`
	Source          string      `json:"source"`
	LastUpdated     time.Time   `json:"last_updated"`
	IsFallback      bool        `json:"is_fallback"`
	Disclaimer      string      `json:"disclaimer,omitempty"`
	UpdateFrequency string      `json:"update_frequency,omitempty"`
}

// SourceResult is what a connector hands back: a complete payload plus where
// it came from. Unavailable is set when every upstream failed.
type SourceResult[T any] struct {
	Payload     T         `json:"payload"`
	LastUpdated time.Time `json:"last_updated"`
	Source      string    `json:"source"`
	IsFallback  bool      `json:"is_fallback"`
	Disclaimer  string    `json:"disclaimer,omitempty"`
	Unavailable bool      `json:"unavailable"`
}

type TickerItem struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Value      float64     `json:"value"`
	ChangePct  *float64    `json:"change_pct,omitempty"`
	Format     ValueFormat `json:"format"`
	Decimals   int         `json:"decimals"`
	IsFallback bool        `json:"is_fallback"`
}

type CategoryGroup struct {
	Category   Category    `json:"category"`
	Indicators []Indicator `json:"indicators"`
}

type Overview struct {
	Groups      []CategoryGroup `json:"groups"`
	Unavailable []string        `json:"unavailable,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DerivedMetric is computed from two other indicators, e.g. the gap between
// the parallel and the official dollar.
type DerivedMetric struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Value    float64     `json:"value"`
	Format   ValueFormat `json:"format"`
	Decimals int         `json:"decimals"`
	Inputs   []string    `json:"inputs"`
}

type DollarQuotes struct {
	Quotes      []Indicator     `json:"quotes"`
	Derived     []DerivedMetric `json:"derived"`
	Unavailable []string        `json:"unavailable,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// FormatValue renders a value the way the dashboards show it.
func FormatValue(v float64, f ValueFormat, decimals int, unit string) string {
	if decimals < 0 {
		decimals = 0
	}
	num := strconv.FormatFloat(v, 'f', decimals, 64)
	switch f {
	case FormatPercent:
		return num + "%"
	case FormatCurrency:
		if unit == "" {
			return "$ " + num
		}
		return unit + " " + num
	default:
		if unit == "" {
			return num
		}
		return num + " " + unit
	}
}

func (i Indicator) Display() string {
	return FormatValue(i.Value, i.Format, i.Decimals, i.Unit)
}
