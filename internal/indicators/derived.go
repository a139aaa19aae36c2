package indicators

import (
	"strings"
	"time"

	"finboard/internal/domain"
	"finboard/internal/provider"
)

const (
	IDGapBlueOfficial = "gap-blue-oficial"
	IDGapMEPOfficial  = "gap-mep-oficial"
	IDSwapCCLMEP      = "canje-ccl-mep"
)

type derivedDef struct {
	id, name     string
	numer, denom string
}

var dollarDerived = []derivedDef{
	{IDGapBlueOfficial, "Brecha Blue / Oficial", provider.IDDollarBlue, provider.IDDollarOfficial},
	{IDGapMEPOfficial, "Brecha MEP / Oficial", provider.IDDollarMEP, provider.IDDollarOfficial},
	{IDSwapCCLMEP, "Canje CCL / MEP", provider.IDDollarCCL, provider.IDDollarMEP},
}

// deriveDollarMetrics computes each spread as a percentage. A metric is
// omitted unless both operands are live (not a stored snapshot) and no older
// than maxAge.
func deriveDollarMetrics(quotes []domain.Indicator, now time.Time, maxAge time.Duration) []domain.DerivedMetric {
	usable := make(map[string]domain.Indicator, len(quotes))
	for _, q := range quotes {
		if usableOperand(q, now, maxAge) {
			usable[q.ID] = q
		}
	}

	out := make([]domain.DerivedMetric, 0, len(dollarDerived))
	for _, d := range dollarDerived {
		n, okN := usable[d.numer]
		m, okM := usable[d.denom]
		if !okN || !okM || m.Value == 0 {
			continue
		}
		out = append(out, domain.DerivedMetric{
			ID:       d.id,
			Name:     d.name,
			Value:    (n.Value/m.Value - 1) * 100,
			Format:   domain.FormatPercent,
			Decimals: 2,
			Inputs:   []string{d.numer, d.denom},
		})
	}
	return out
}

func usableOperand(ind domain.Indicator, now time.Time, maxAge time.Duration) bool {
	if ind.Value <= 0 || strings.HasPrefix(ind.Source, provider.SnapshotSource) {
		return false
	}
	if ind.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(ind.LastUpdated) <= maxAge
}
