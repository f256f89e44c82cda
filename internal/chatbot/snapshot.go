package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aiswo-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// BinSnapshot is the read-only view of one bin at query time.
// Nil numeric fields mean the reading was absent in the source record.
type BinSnapshot struct {
	ID                 string
	Name               string
	FillPercent        *float64
	WeightKg           *float64
	Status             string
	Location           string
	AssignedOperatorID string
	IsBlocked          bool
	UpdatedAt          *time.Time
}

// OperatorSnapshot is the read-only view of one operator at query time.
type OperatorSnapshot struct {
	ID             string
	Name           string
	Email          string
	AssignedBinIDs []string
}

// Snapshot is a point-in-time copy of bins and operators.
type Snapshot struct {
	Bins      []BinSnapshot
	Operators []OperatorSnapshot
	TakenAt   time.Time
}

// Label is the bin's display name, falling back to its id.
func (b BinSnapshot) Label() string {
	if strings.TrimSpace(b.Name) != "" {
		return b.Name
	}
	return b.ID
}

// fill is the comparison value of the fill reading; absent readings compare as 0.
func (b BinSnapshot) fill() float64 {
	if b.FillPercent == nil {
		return 0
	}
	return *b.FillPercent
}

// weight is the comparison value of the weight reading; absent readings compare as 0.
func (b BinSnapshot) weight() float64 {
	if b.WeightKg == nil {
		return 0
	}
	return *b.WeightKg
}

// Source is anything that can list bins and operators, typically a store.Store.
type Source interface {
	ListBins(ctx context.Context) ([]models.Bin, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
}

// LoadSnapshot reads bins and operators concurrently and adapts them.
func LoadSnapshot(ctx context.Context, src Source) (Snapshot, error) {
	var (
		bins      []models.Bin
		operators []models.Operator
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bins, err = src.ListBins(gctx)
		if err != nil {
			return fmt.Errorf("failed to list bins: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		operators, err = src.ListOperators(gctx)
		if err != nil {
			return fmt.Errorf("failed to list operators: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := FromModels(bins, operators)
	snap.TakenAt = time.Now()
	return snap, nil
}

// FromModels converts store records into snapshots. Slices are copied so the
// result shares nothing with the input.
func FromModels(bins []models.Bin, operators []models.Operator) Snapshot {
	snap := Snapshot{
		Bins:      make([]BinSnapshot, 0, len(bins)),
		Operators: make([]OperatorSnapshot, 0, len(operators)),
	}

	for i := range bins {
		b := &bins[i]
		s := BinSnapshot{
			ID:        b.ID,
			Name:      b.Name,
			Status:    b.Status,
			Location:  b.Location,
			IsBlocked: b.IsBlocked,
		}
		if b.FillPct != nil {
			v := *b.FillPct
			s.FillPercent = &v
		}
		if b.WeightKg != nil {
			v := *b.WeightKg
			s.WeightKg = &v
		}
		if b.HasOperator() {
			s.AssignedOperatorID = strings.TrimSpace(b.OperatorID)
		}
		if ts := parseTimestamp(b.UpdatedAt); ts != nil {
			s.UpdatedAt = ts
		}
		snap.Bins = append(snap.Bins, s)
	}

	for i := range operators {
		op := &operators[i]
		ids := make([]string, len(op.AssignedBins))
		copy(ids, op.AssignedBins)
		snap.Operators = append(snap.Operators, OperatorSnapshot{
			ID:             op.ID,
			Name:           op.Name,
			Email:          op.Email,
			AssignedBinIDs: ids,
		})
	}

	return snap
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// OperatorFor returns the operator responsible for binID, or nil.
func (s Snapshot) OperatorFor(binID string) *OperatorSnapshot {
	return newView(s).operatorFor(binID)
}
