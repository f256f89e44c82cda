package models

import (
	"sort"
	"strconv"
	"strings"
)

// Bin is a monitored waste bin as stored in the Realtime Database
// (and mirrored into Firestore / SQL).
type Bin struct {
	ID            string   `json:"id" firestore:"id" db:"id"`
	Name          string   `json:"name,omitempty" firestore:"name,omitempty" db:"name"`
	Location      string   `json:"location,omitempty" firestore:"location,omitempty" db:"location"`
	FillPct       *float64 `json:"fillPct,omitempty" firestore:"fillPct,omitempty" db:"fill_pct"`
	WeightKg      *float64 `json:"weightKg,omitempty" firestore:"weightKg,omitempty" db:"weight_kg"`
	Status        string   `json:"status,omitempty" firestore:"status,omitempty" db:"status"`
	Capacity      float64  `json:"capacity,omitempty" firestore:"capacity,omitempty" db:"capacity"`
	OperatorID    string   `json:"operatorId,omitempty" firestore:"operatorId,omitempty" db:"operator_id"`
	IsBlocked     bool     `json:"isBlocked,omitempty" firestore:"isBlocked,omitempty" db:"is_blocked"`
	UpdatedAt     string   `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" db:"updated_at"` // RFC3339
	CreatedAt     string   `json:"createdAt,omitempty" firestore:"createdAt,omitempty" db:"created_at"` // RFC3339
	LastClearedAt string   `json:"lastClearedAt,omitempty" firestore:"lastClearedAt,omitempty" db:"last_cleared_at"`
	LastClearedBy string   `json:"lastClearedBy,omitempty" firestore:"lastClearedBy,omitempty" db:"last_cleared_by"`
}

// UnassignedOperator is the marker the dashboard writes when a bin loses its operator.
const UnassignedOperator = "unassigned"

// HasOperator reports whether OperatorID references a real operator.
func (b *Bin) HasOperator() bool {
	id := strings.TrimSpace(b.OperatorID)
	return id != "" && !strings.EqualFold(id, UnassignedOperator)
}

// CreateBinRequest is the request body for POST /bins
type CreateBinRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	Capacity   float64 `json:"capacity"`
	OperatorID string  `json:"operatorId"`
	Status     string  `json:"status"`
}

// UpdateBinRequest is the request body for PUT /bins/:id.
// Empty fields keep their current value.
type UpdateBinRequest struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Capacity   float64  `json:"capacity"`
	OperatorID string   `json:"operatorId"`
	Status     string   `json:"status"`
	IsBlocked  *bool    `json:"isBlocked,omitempty"`
	FillPct    *float64 `json:"fillPct,omitempty"`
	WeightKg   *float64 `json:"weightKg,omitempty"`
}

// ClearBinRequest is the request body for POST /operators/:operatorId/bins/:binId/clear
// Completed defaults to true; false only drops the bin from the operator's
// completed list.
type ClearBinRequest struct {
	Note      string `json:"note"`
	Completed *bool  `json:"completed,omitempty"`
}

// IsCompleted reports the effective completed flag.
func (req *ClearBinRequest) IsCompleted() bool {
	return req.Completed == nil || *req.Completed
}

// Apply merges the non-empty fields of req into b.
func (req *UpdateBinRequest) Apply(b *Bin) {
	if req.Name != "" {
		b.Name = req.Name
	}
	if req.Location != "" {
		b.Location = req.Location
	}
	if req.Capacity > 0 {
		b.Capacity = req.Capacity
	}
	if req.OperatorID != "" {
		b.OperatorID = req.OperatorID
	}
	if req.Status != "" {
		b.Status = req.Status
	}
	if req.IsBlocked != nil {
		b.IsBlocked = *req.IsBlocked
	}
	if req.FillPct != nil {
		v := ClampPercent(*req.FillPct)
		b.FillPct = &v
	}
	if req.WeightKg != nil {
		v := *req.WeightKg
		if v < 0 {
			v = 0
		}
		b.WeightKg = &v
	}
}

// ClampPercent clamps a fill reading into 0..100
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// SortBins orders bins by natural id order so that bin2 sorts before bin10.
func SortBins(bins []Bin) {
	sort.SliceStable(bins, func(i, j int) bool {
		return NaturalLess(bins[i].ID, bins[j].ID)
	})
}

// NaturalLess compares ids of the form <prefix><number> numerically on the suffix.
func NaturalLess(a, b string) bool {
	pa, na, okA := splitNumericSuffix(a)
	pb, nb, okB := splitNumericSuffix(b)
	if okA && okB && pa == pb {
		if na != nb {
			return na < nb
		}
	}
	return a < b
}

func splitNumericSuffix(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return strings.ToLower(s[:i]), n, true
}

// BinEvent is one entry of a bin's clearance history.
type BinEvent struct {
	ID         string `json:"id" firestore:"-" db:"id"`
	BinID      string `json:"binId" firestore:"-" db:"bin_id"`
	Type       string `json:"type" firestore:"type" db:"type"`
	OperatorID string `json:"operatorId,omitempty" firestore:"operatorId" db:"operator_id"`
	Note       string `json:"note,omitempty" firestore:"note" db:"note"`
	Timestamp  string `json:"timestamp" firestore:"timestamp" db:"created_at"`
}

// BinEventClear marks a bin being emptied.
const BinEventClear = "clear"
