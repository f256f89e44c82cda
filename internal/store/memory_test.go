package store

import (
	"context"
	"testing"
	"time"

	"aiswo-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FirebaseStore)(nil)
)

func fixedStore() *MemoryStore {
	s := NewMemoryStore()
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestMemoryStoreBinsCRUD(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()

	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin10", Name: "Depot"}))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin2", FillPct: models.Float(40)}))
	assert.ErrorIs(t, s.CreateBin(ctx, &models.Bin{ID: "bin2"}), ErrAlreadyExists)

	bins, err := s.ListBins(ctx)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "bin2", bins[0].ID)
	assert.Equal(t, "bin10", bins[1].ID)
	assert.Equal(t, "2025-03-01T12:00:00Z", bins[0].CreatedAt)

	updated, err := s.UpdateBin(ctx, "bin2", &models.UpdateBinRequest{FillPct: models.Float(130), Location: "Gate"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, *updated.FillPct)
	assert.Equal(t, "Gate", updated.Location)

	_, err = s.UpdateBin(ctx, "bin9", &models.UpdateBinRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteBin(ctx, "bin10"))
	assert.ErrorIs(t, s.DeleteBin(ctx, "bin10"), ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1", FillPct: models.Float(10)}))

	b, err := s.GetBin(ctx, "bin1")
	require.NoError(t, err)
	*b.FillPct = 99

	again, err := s.GetBin(ctx, "bin1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *again.FillPct)
}

func TestMemoryStoreClearBin(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1", FillPct: models.Float(92), WeightKg: models.Float(30), Status: "Full"}))

	b, err := s.ClearBin(ctx, "bin1", "op1", "emptied")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *b.FillPct)
	assert.Equal(t, 0.0, *b.WeightKg)
	assert.Equal(t, "Normal", b.Status)
	assert.Equal(t, "op1", b.LastClearedBy)
	assert.Equal(t, "2025-03-01T12:00:00Z", b.LastClearedAt)

	_, err = s.ClearBin(ctx, "bin1", "op2", "")
	require.NoError(t, err)
	events, err := s.BinHistory(ctx, "bin1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "emptied", events[0].Note)
	assert.Equal(t, "op2", events[1].OperatorID)

	_, err = s.ClearBin(ctx, "missing", "op1", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.BinHistory(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteBin(ctx, "bin1"))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1"}))
	events, err = s.BinHistory(ctx, "bin1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemoryStoreOperatorProgress(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1"}))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin2"}))
	require.NoError(t, s.CreateOperator(ctx, &models.Operator{ID: "op1", Name: "John"}))

	progress, err := s.OperatorProgress(ctx, "op1")
	require.NoError(t, err)
	assert.Empty(t, progress.CompletedBins)
	require.Len(t, progress.Tasks, 3)

	_, err = s.ClearBin(ctx, "bin2", "op1", "")
	require.NoError(t, err)
	_, err = s.ClearBin(ctx, "bin1", "op1", "")
	require.NoError(t, err)
	_, err = s.ClearBin(ctx, "bin2", "op1", "")
	require.NoError(t, err)

	tasks, err := s.SetTaskCompleted(ctx, "op1", models.TaskInspect, true)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, "2025-03-01T12:00:00Z", tasks[0].CompletedAt)
	_, err = s.SetTaskCompleted(ctx, "op1", "dance", true)
	assert.ErrorIs(t, err, ErrNotFound)

	// returned slices are copies
	tasks[1].Completed = true

	progress, err = s.OperatorProgress(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bin2", "bin1"}, progress.CompletedBins)
	assert.True(t, progress.Tasks[0].Completed)
	assert.False(t, progress.Tasks[1].Completed)

	bins, err := s.SetBinCompleted(ctx, "op1", "bin2", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin1"}, bins)
	_, err = s.SetBinCompleted(ctx, "op1", "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteOperator(ctx, "op1"))
	progress, err = s.OperatorProgress(ctx, "op1")
	require.NoError(t, err)
	assert.Empty(t, progress.CompletedBins)
	assert.False(t, progress.Tasks[0].Completed)
}

func TestMemoryStoreDeleteOperatorUnassignsBins(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.CreateOperator(ctx, &models.Operator{ID: "op1", Name: "John", Email: "John@Example.com"}))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1", OperatorID: "op1"}))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin2", OperatorID: "op2"}))

	op, err := s.FindOperatorByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "op1", op.ID)

	require.NoError(t, s.DeleteOperator(ctx, "op1"))
	b1, _ := s.GetBin(ctx, "bin1")
	b2, _ := s.GetBin(ctx, "bin2")
	assert.Equal(t, models.UnassignedOperator, b1.OperatorID)
	assert.Equal(t, "op2", b2.OperatorID)

	_, err = s.GetOperator(ctx, "op1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateOperator(ctx, &models.Operator{ID: "op1"}), ErrNotFound)
}

func TestMemoryStoreUpsertAdminKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.UpsertAdmin(ctx, &models.Admin{Email: "Boss@AISWO.io", Name: "Boss"}))

	s.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.UpsertAdmin(ctx, &models.Admin{Email: "boss@aiswo.io", Name: "Boss 2"}))

	a, err := s.GetAdminByEmail(ctx, "boss@aiswo.io")
	require.NoError(t, err)
	assert.Equal(t, "boss_aiswo_io", a.ID)
	assert.Equal(t, "Boss 2", a.Name)
	assert.Equal(t, "2025-03-01T12:00:00Z", a.CreatedAt)
	assert.Equal(t, "2025-04-01T00:00:00Z", a.UpdatedAt)
}

func TestMemoryStoreTickets(t *testing.T) {
	ctx := context.Background()
	s := fixedStore()
	require.NoError(t, s.CreateTicket(ctx, &models.Ticket{ID: "TICKET-1", BinID: "bin1"}))
	tickets := s.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, "TICKET-1", tickets[0].ID)
}
