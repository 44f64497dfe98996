// Package pricing computes costMicros for a finished turn from its token
// counts (§4.8 "Usage accounting"). Prices are stored in integer
// micro-dollars-per-million-tokens to avoid floating point drift.
package pricing

import (
	"strings"
	"sync"
)

// Metrics is the token breakdown a calculation needs. It mirrors
// domain.UsageRecord's token fields so TP can hand its finalized usage
// straight through.
type Metrics struct {
	InputTokens          uint64
	OutputTokens         uint64
	CacheReadCount       uint64
	Cache5mCreationCount uint64
	Cache1hCreationCount uint64
}

// ModelPricing is one model's per-token price table entry, in microUSD per
// million tokens. Cache prices are optional: when unset, GetEffective*
// derives a default off InputPriceMicro the way the upstream providers
// typically discount/premium cache traffic.
type ModelPricing struct {
	ModelID                string
	InputPriceMicro        uint64
	OutputPriceMicro       uint64
	CacheReadPriceMicro    uint64
	Cache5mWritePriceMicro uint64
	Cache1hWritePriceMicro uint64
	Has1MContext           bool
}

func (p *ModelPricing) GetEffectiveCacheReadPriceMicro() uint64 {
	if p.CacheReadPriceMicro != 0 {
		return p.CacheReadPriceMicro
	}
	return p.InputPriceMicro / 10
}

func (p *ModelPricing) GetEffectiveCache5mWritePriceMicro() uint64 {
	if p.Cache5mWritePriceMicro != 0 {
		return p.Cache5mWritePriceMicro
	}
	return p.InputPriceMicro * 5 / 4
}

func (p *ModelPricing) GetEffectiveCache1hWritePriceMicro() uint64 {
	if p.Cache1hWritePriceMicro != 0 {
		return p.Cache1hWritePriceMicro
	}
	return p.InputPriceMicro * 2
}

// PriceTable is a model-id-prefix-matched set of ModelPricing entries.
type PriceTable struct {
	mu      sync.RWMutex
	version string
	entries map[string]*ModelPricing
}

func NewPriceTable(version string) *PriceTable {
	return &PriceTable{version: version, entries: make(map[string]*ModelPricing)}
}

func (pt *PriceTable) Set(p *ModelPricing) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.entries[p.ModelID] = p
}

// Get finds a model's pricing by exact match, falling back to the longest
// registered model id that is a prefix of modelID (so e.g.
// "claude-sonnet-4-5-20250514" resolves to the "claude-sonnet-4-5" entry).
func (pt *PriceTable) Get(modelID string) *ModelPricing {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	if p, ok := pt.entries[modelID]; ok {
		return p
	}

	var best *ModelPricing
	bestLen := -1
	for id, p := range pt.entries {
		if strings.HasPrefix(modelID, id) && len(id) > bestLen {
			best = p
			bestLen = len(id)
		}
	}
	return best
}

// List returns every registered model's pricing entry, for the model catalog
// endpoint.
func (pt *PriceTable) List() []*ModelPricing {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	out := make([]*ModelPricing, 0, len(pt.entries))
	for _, p := range pt.entries {
		out = append(out, p)
	}
	return out
}

const tieredContextThreshold = 200_000

// CalculateLinearCostMicro prices tokens at a single flat per-million rate.
func CalculateLinearCostMicro(tokens, priceMicro uint64) uint64 {
	return tokens * priceMicro / 1_000_000
}

// CalculateTieredCostMicro prices the first `threshold` tokens at the base
// rate and any remainder at rate premiumNumerator/premiumDenominator times
// the base, used for 1M-context models whose cost steps up past 200K tokens.
func CalculateTieredCostMicro(tokens, basePriceMicro uint64, premiumNumerator, premiumDenominator, threshold uint64) uint64 {
	if tokens <= threshold {
		return CalculateLinearCostMicro(tokens, basePriceMicro)
	}
	base := CalculateLinearCostMicro(threshold, basePriceMicro)
	premiumPrice := basePriceMicro * premiumNumerator / premiumDenominator
	over := CalculateLinearCostMicro(tokens-threshold, premiumPrice)
	return base + over
}

// Calculator computes costMicros for a (model, Metrics) pair against a
// PriceTable.
type Calculator struct {
	table *PriceTable
}

func NewCalculator(table *PriceTable) *Calculator {
	return &Calculator{table: table}
}

var (
	globalCalculator     *Calculator
	globalCalculatorOnce sync.Once
)

// GlobalCalculator returns a Calculator over DefaultPriceTable (singleton).
func GlobalCalculator() *Calculator {
	globalCalculatorOnce.Do(func() {
		globalCalculator = NewCalculator(DefaultPriceTable())
	})
	return globalCalculator
}

// Calculate returns the total cost in microUSD for metrics against model's
// price table entry, or 0 if the model is unregistered or metrics is nil.
func (c *Calculator) Calculate(model string, metrics *Metrics) uint64 {
	if metrics == nil {
		return 0
	}
	p := c.table.Get(model)
	if p == nil {
		return 0
	}

	var total uint64
	if p.Has1MContext {
		total += CalculateTieredCostMicro(metrics.InputTokens, p.InputPriceMicro, 2, 1, tieredContextThreshold)
		total += CalculateTieredCostMicro(metrics.OutputTokens, p.OutputPriceMicro, 2, 1, tieredContextThreshold)
	} else {
		total += CalculateLinearCostMicro(metrics.InputTokens, p.InputPriceMicro)
		total += CalculateLinearCostMicro(metrics.OutputTokens, p.OutputPriceMicro)
	}
	total += CalculateLinearCostMicro(metrics.CacheReadCount, p.GetEffectiveCacheReadPriceMicro())
	total += CalculateLinearCostMicro(metrics.Cache5mCreationCount, p.GetEffectiveCache5mWritePriceMicro())
	total += CalculateLinearCostMicro(metrics.Cache1hCreationCount, p.GetEffectiveCache1hWritePriceMicro())
	return total
}
