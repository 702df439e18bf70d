package services

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"warehouse-stocks/models"
	"warehouse-stocks/utils"
)

const (
	moversCount     = 5
	topByTotalCount = 8
)

// Deriver turns an extracted report into a Snapshot. It performs no I/O and
// never fails: absent inputs yield absent outputs.
type Deriver struct {
	logger *utils.Logger
}

func NewDeriver(logger *utils.Logger) *Deriver {
	return &Deriver{logger: logger}
}

// Derive computes the aggregate figures, shares and rankings for r.
func (d *Deriver) Derive(r *models.Report) *models.Snapshot {
	t := r.Totals
	s := &models.Snapshot{
		OK:            true,
		Source:        r.Source,
		ActivityDate:  r.ActivityDate,
		ReportDate:    r.ReportDate,
		RegisteredQty: t.RegisteredQty,
		EligibleQty:   t.EligibleQty,
		TotalQty:      t.TotalQty,
		PrevTotalQty:  t.PrevTotalQty,
		FetchedAt:     r.FetchedAt,
	}

	if t.TotalQty != nil && t.PrevTotalQty != nil {
		s.ChangeQty = lo.ToPtr(*t.TotalQty - *t.PrevTotalQty)
		if *t.PrevTotalQty != 0 {
			s.ChangePct = lo.ToPtr(*s.ChangeQty / *t.PrevTotalQty * 100)
		}
	}
	s.RegisteredSharePct = sharePct(t.RegisteredQty, t.TotalQty)
	s.EligibleSharePct = sharePct(t.EligibleQty, t.TotalQty)

	s.Movers = rankDesc(r.Records, moversCount, func(rec models.WarehouseRecord) *float64 {
		if rec.ChangeQty == nil {
			return nil
		}
		return lo.ToPtr(math.Abs(*rec.ChangeQty))
	})
	s.TopByTotal = rankDesc(r.Records, topByTotalCount, func(rec models.WarehouseRecord) *float64 {
		return rec.TotalQty
	})

	if s.RegisteredSharePct != nil && s.EligibleSharePct != nil {
		if sum := *s.RegisteredSharePct + *s.EligibleSharePct; math.Abs(sum-100) > 2 {
			d.logger.Warn("[deriver] Registered + eligible shares sum to %.2f%%, totals row looks inconsistent", sum)
		}
	}
	return s
}

func sharePct(part, total *float64) *float64 {
	if part == nil || total == nil || *total == 0 {
		return nil
	}
	return lo.ToPtr(*part / *total * 100)
}

// rankDesc keeps records with a non-nil key, orders them by key descending
// (ties keep row order) and returns at most n.
func rankDesc(records []models.WarehouseRecord, n int, key func(models.WarehouseRecord) *float64) []models.WarehouseRecord {
	ranked := lo.Filter(records, func(r models.WarehouseRecord, _ int) bool {
		return key(r) != nil
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return *key(ranked[i]) > *key(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
