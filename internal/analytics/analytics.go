// Package analytics produces the synthetic yield and performance series
// shown on the analytics dashboard, plus the protocol TVL distribution.
// The series are illustrative only; they are not derived from chain data.
package analytics

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mantle-yield-lab/internal/domain"
)

// HistoryDays is the look-back window; series hold HistoryDays+1 points.
const HistoryDays = 30

// DefaultBaseAPY stands in for protocols that report no APY.
const DefaultBaseAPY = 5.0

// DefaultPerformanceBase seeds the performance series for an empty wallet.
const DefaultPerformanceBase = 20000.0

const dateLayout = "2006-01-02"

// YieldPoint is one day of the yield series: "date" plus one key per protocol name.
type YieldPoint map[string]interface{}

// PerformancePoint is one day of the portfolio performance series.
type PerformancePoint struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Earnings float64 `json:"earnings"`
}

// Generator builds the series. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator. A nil rnd seeds from the clock; a nil now uses time.Now.
func NewGenerator(rnd *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Generator{rnd: rnd, now: now}
}

// noise returns a uniform value in [-half, half).
func (g *Generator) noise(half float64) float64 {
	return g.rnd.Float64()*2*half - half
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// YieldHistory returns a daily APY series per protocol, oldest first.
func (g *Generator) YieldHistory(protocols []domain.ProtocolMetadata) []YieldPoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC()
	out := make([]YieldPoint, 0, HistoryDays+1)
	for i := HistoryDays; i >= 0; i-- {
		point := YieldPoint{"date": today.AddDate(0, 0, -i).Format(dateLayout)}
		for _, p := range protocols {
			base := p.APY
			if base == 0 {
				base = DefaultBaseAPY
			}
			variation := math.Sin(float64(i)*0.3)*0.5 + g.noise(0.15)
			point[p.Name] = round2(base + variation)
		}
		out = append(out, point)
	}
	return out
}

// PerformanceHistory returns a cumulative portfolio value series starting
// from base. Earnings are a tenth of each positive daily change.
func (g *Generator) PerformanceHistory(base float64) []PerformancePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC()
	value := base
	out := make([]PerformancePoint, 0, HistoryDays+1)
	for i := HistoryDays; i >= 0; i-- {
		change := math.Sin(float64(i)*0.2)*200 + g.noise(50)
		value += change

		earnings := 0.0
		if change > 0 {
			earnings = change * 0.1
		}
		out = append(out, PerformancePoint{
			Date:     today.AddDate(0, 0, -i).Format(dateLayout),
			Value:    round2(value),
			Earnings: round2(earnings),
		})
	}
	return out
}

// Distribution returns each protocol's TVL share entry in listing order.
func Distribution(protocols []domain.ProtocolMetadata) []domain.DistributionEntry {
	out := make([]domain.DistributionEntry, 0, len(protocols))
	for _, p := range protocols {
		out = append(out, domain.DistributionEntry{
			Name:  p.Name,
			Value: p.TVL,
			Type:  p.Type,
		})
	}
	return out
}
