// Package analytics turns fetched leads, stages and invoices into chart
// series. Everything here is a pure function of its inputs and the clock
// value passed in.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"agencydesk-backend/models"

	"github.com/google/uuid"
)

const monthLayout = "2006-01"

// Range is a selectable analytics window.
type Range string

const (
	Range3M  Range = "3m"
	Range6M  Range = "6m"
	Range12M Range = "12m"
)

// ParseRange accepts 3m, 6m or 12m. Empty means 6m.
func ParseRange(s string) (Range, error) {
	switch Range(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Range6M, nil
	case Range3M:
		return Range3M, nil
	case Range6M:
		return Range6M, nil
	case Range12M:
		return Range12M, nil
	}
	return "", fmt.Errorf("unknown range %q", s)
}

func (r Range) Months() int {
	switch r {
	case Range3M:
		return 3
	case Range12M:
		return 12
	}
	return 6
}

// Start returns the first instant of the oldest month in the range.
func (r Range) Start(now time.Time) time.Time {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -(r.Months() - 1), 0)
}

// MonthKeys returns the YYYY-MM keys of the last n months, oldest first,
// ending with the month of now.
func MonthKeys(now time.Time, n int) []string {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = first.AddDate(0, i-(n-1), 0).Format(monthLayout)
	}
	return keys
}

func monthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

func indexKeys(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}

// calculateRate returns num/den as a percentage, or 0 when den is 0.
func calculateRate(num, den float64) float64 {
	if den > 0 {
		return round2(num / den * 100)
	}
	return 0
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

type ConversionPoint struct {
	Month     string  `json:"month"`
	Leads     int     `json:"leads"`
	Converted int     `json:"converted"`
	Rate      float64 `json:"rate"`
}

// ConversionTrend counts leads created per month and how many of them
// converted.
func ConversionTrend(leads []models.Lead, keys []string) []ConversionPoint {
	idx := indexKeys(keys)
	points := make([]ConversionPoint, len(keys))
	for i, k := range keys {
		points[i].Month = k
	}
	for _, l := range leads {
		i, ok := idx[monthKey(l.CreatedAt)]
		if !ok {
			continue
		}
		points[i].Leads++
		if l.ConvertedToCustomer {
			points[i].Converted++
		}
	}
	for i := range points {
		points[i].Rate = calculateRate(float64(points[i].Converted), float64(points[i].Leads))
	}
	return points
}

type SourceShare struct {
	Source     string  `json:"source"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SourceDistribution groups leads by source, largest first.
func SourceDistribution(leads []models.Lead) []SourceShare {
	counts := map[string]int{}
	for _, l := range leads {
		src := strings.ToLower(strings.TrimSpace(l.Source))
		if src == "" {
			src = "unknown"
		}
		counts[src]++
	}
	out := make([]SourceShare, 0, len(counts))
	for src, n := range counts {
		out = append(out, SourceShare{
			Source:     src,
			Count:      n,
			Percentage: calculateRate(float64(n), float64(len(leads))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	return out
}

type FunnelStage struct {
	StageID                uuid.UUID `json:"stage_id"`
	Name                   string    `json:"name"`
	Color                  string    `json:"color"`
	Order                  int       `json:"order"`
	Count                  int       `json:"count"`
	Value                  float64   `json:"value"`
	ConversionFromPrevious float64   `json:"conversion_from_previous"`
}

// Funnel counts leads and deal value per stage in stage order. Leads with
// no stage are not counted.
func Funnel(stages []models.PipelineStage, leads []models.Lead) []FunnelStage {
	ordered := append([]models.PipelineStage(nil), stages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StageOrder < ordered[j].StageOrder })

	pos := make(map[uuid.UUID]int, len(ordered))
	out := make([]FunnelStage, len(ordered))
	for i, s := range ordered {
		pos[s.ID] = i
		out[i] = FunnelStage{StageID: s.ID, Name: s.Name, Color: s.Color, Order: s.StageOrder}
	}
	for _, l := range leads {
		if l.PipelineStageID == nil {
			continue
		}
		i, ok := pos[*l.PipelineStageID]
		if !ok {
			continue
		}
		out[i].Count++
		out[i].Value += l.DealValue
	}
	for i := range out {
		out[i].Value = round2(out[i].Value)
		if i == 0 {
			if out[i].Count > 0 {
				out[i].ConversionFromPrevious = 100
			}
			continue
		}
		out[i].ConversionFromPrevious = calculateRate(float64(out[i].Count), float64(out[i-1].Count))
	}
	return out
}

type RevenuePoint struct {
	Month     string  `json:"month"`
	Revenue   float64 `json:"revenue"`
	Pipeline  float64 `json:"pipeline"`
	Projected bool    `json:"projected"`
}

// ForecastHorizon is the number of projected months after the range.
const ForecastHorizon = 3

// RevenueForecast sums paid invoices per month of payment and open
// pipeline value per month of lead creation, then projects the next
// ForecastHorizon months from the average of the last three actual months.
func RevenueForecast(invoices []models.Invoice, leads []models.Lead, keys []string) []RevenuePoint {
	idx := indexKeys(keys)
	points := make([]RevenuePoint, len(keys), len(keys)+ForecastHorizon)
	for i, k := range keys {
		points[i].Month = k
	}
	for _, inv := range invoices {
		if inv.Status != models.InvoicePaid {
			continue
		}
		at := inv.IssueDate
		if inv.PaidAt != nil {
			at = *inv.PaidAt
		}
		if i, ok := idx[monthKey(at)]; ok {
			points[i].Revenue += inv.Amount
		}
	}
	for _, l := range leads {
		if l.ConvertedToCustomer {
			continue
		}
		if i, ok := idx[monthKey(l.CreatedAt)]; ok {
			points[i].Pipeline += l.DealValue
		}
	}
	for i := range points {
		points[i].Revenue = round2(points[i].Revenue)
		points[i].Pipeline = round2(points[i].Pipeline)
	}
	if len(keys) == 0 {
		return points
	}

	trail := points
	if len(trail) > 3 {
		trail = trail[len(trail)-3:]
	}
	var sum float64
	for _, p := range trail {
		sum += p.Revenue
	}
	avg := round2(sum / float64(len(trail)))

	last, _ := time.Parse(monthLayout, keys[len(keys)-1])
	for h := 1; h <= ForecastHorizon; h++ {
		points = append(points, RevenuePoint{
			Month:     last.AddDate(0, h, 0).Format(monthLayout),
			Revenue:   avg,
			Projected: true,
		})
	}
	return points
}

type Summary struct {
	TotalLeads     int     `json:"total_leads"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
	PipelineValue  float64 `json:"pipeline_value"`
	AvgDealValue   float64 `json:"avg_deal_value"`
	PaidRevenue    float64 `json:"paid_revenue"`
}

func Summarize(leads []models.Lead, invoices []models.Invoice) Summary {
	var s Summary
	var dealTotal float64
	for _, l := range leads {
		s.TotalLeads++
		dealTotal += l.DealValue
		if l.ConvertedToCustomer {
			s.Converted++
		} else {
			s.PipelineValue += l.DealValue
		}
	}
	for _, inv := range invoices {
		if inv.Status == models.InvoicePaid {
			s.PaidRevenue += inv.Amount
		}
	}
	s.ConversionRate = calculateRate(float64(s.Converted), float64(s.TotalLeads))
	if s.TotalLeads > 0 {
		s.AvgDealValue = round2(dealTotal / float64(s.TotalLeads))
	}
	s.PipelineValue = round2(s.PipelineValue)
	s.PaidRevenue = round2(s.PaidRevenue)
	return s
}

// Input is the fetched data a report is built from.
type Input struct {
	Leads    []models.Lead
	Stages   []models.PipelineStage
	Invoices []models.Invoice
}

type Report struct {
	Range           Range             `json:"range"`
	Months          []string          `json:"months"`
	Summary         Summary           `json:"summary"`
	ConversionTrend []ConversionPoint `json:"conversion_trend"`
	Sources         []SourceShare     `json:"sources"`
	Funnel          []FunnelStage     `json:"funnel"`
	Revenue         []RevenuePoint    `json:"revenue"`
	Synthetic       []SyntheticSeries `json:"synthetic,omitempty"`
}

// Build assembles every series for r. Synthetic series are added only when
// asked for.
func Build(in Input, r Range, now time.Time, includeSynthetic bool) Report {
	keys := MonthKeys(now, r.Months())
	rep := Report{
		Range:           r,
		Months:          keys,
		Summary:         Summarize(in.Leads, in.Invoices),
		ConversionTrend: ConversionTrend(in.Leads, keys),
		Sources:         SourceDistribution(in.Leads),
		Funnel:          Funnel(in.Stages, in.Leads),
		Revenue:         RevenueForecast(in.Invoices, in.Leads, keys),
	}
	if includeSynthetic {
		rep.Synthetic = Synthetic(r, keys)
	}
	return rep
}
