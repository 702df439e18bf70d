package storage

import (
	"sort"

	"warehouse-stocks/models"
)

// DefaultHistoryLimit is the number of daily points retained.
const DefaultHistoryLimit = 120

// History is the in-memory, date-keyed history. It holds at most one point
// per date, kept sorted ascending and trimmed to the newest limit points.
type History struct {
	points []models.HistoryPoint
	limit  int
}

// NewHistory builds a History from previously persisted points. Points
// without a date are dropped and duplicate dates keep the last occurrence,
// so out-of-order or hand-edited files still satisfy the invariants. limit
// may shorten retention but never extends it past DefaultHistoryLimit.
func NewHistory(points []models.HistoryPoint, limit int) *History {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	h := &History{limit: limit, points: make([]models.HistoryPoint, 0, len(points)+1)}
	for _, p := range points {
		if p.Date == "" {
			continue
		}
		h.put(p)
	}
	h.normalize()
	return h
}

// Upsert inserts p, or replaces the point already stored for p.Date. The
// history is then re-sorted and trimmed, oldest dates dropped first.
func (h *History) Upsert(p models.HistoryPoint) {
	h.put(p)
	h.normalize()
}

// Points returns a copy of the stored points in ascending date order.
func (h *History) Points() []models.HistoryPoint {
	out := make([]models.HistoryPoint, len(h.points))
	copy(out, h.points)
	return out
}

func (h *History) Len() int { return len(h.points) }

func (h *History) put(p models.HistoryPoint) {
	for i := range h.points {
		if h.points[i].Date == p.Date {
			h.points[i] = p
			return
		}
	}
	h.points = append(h.points, p)
}

func (h *History) normalize() {
	sort.SliceStable(h.points, func(i, j int) bool {
		return h.points[i].Date < h.points[j].Date
	})
	if len(h.points) > h.limit {
		h.points = append(h.points[:0:0], h.points[len(h.points)-h.limit:]...)
	}
}
