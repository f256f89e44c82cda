package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ store.Store = (*SQLStore)(nil)

func newTestStore(t *testing.T) (*SQLStore, *sqlx.DB) {
	t.Helper()
	logger := zap.NewNop()
	db, err := Connect(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, logger))

	s := NewSQLStore(db, logger)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })
	return s, db
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("mysql", "root@/aiswo", zap.NewNop())
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	_, db := newTestStore(t)
	require.NoError(t, Migrate(db, zap.NewNop()))
}

func TestSQLStoreBins(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin10", Name: "Depot", OperatorID: "op1"}))
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin2", FillPct: models.Float(81.5), WeightKg: models.Float(20), IsBlocked: true}))
	assert.ErrorIs(t, s.CreateBin(ctx, &models.Bin{ID: "bin2"}), store.ErrAlreadyExists)

	bins, err := s.ListBins(ctx)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "bin2", bins[0].ID)
	assert.Equal(t, 81.5, *bins[0].FillPct)
	assert.True(t, bins[0].IsBlocked)
	assert.Nil(t, bins[1].FillPct)
	assert.Equal(t, "2025-03-01T12:00:00Z", bins[1].CreatedAt)

	updated, err := s.UpdateBin(ctx, "bin10", &models.UpdateBinRequest{Location: "Yard", FillPct: models.Float(-5)})
	require.NoError(t, err)
	assert.Equal(t, "Yard", updated.Location)
	assert.Equal(t, "Depot", updated.Name)
	assert.Equal(t, 0.0, *updated.FillPct)

	_, err = s.GetBin(ctx, "bin99")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteBin(ctx, "bin10"))
	assert.ErrorIs(t, s.DeleteBin(ctx, "bin10"), store.ErrNotFound)
}

func TestSQLStoreClearBinRecordsHistory(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1", FillPct: models.Float(95), WeightKg: models.Float(30), Status: "Full"}))

	b, err := s.ClearBin(ctx, "bin1", "op1", "done")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *b.FillPct)
	assert.Equal(t, "Normal", b.Status)
	assert.Equal(t, "op1", b.LastClearedBy)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM bin_history WHERE bin_id = ?", "bin1"))
	assert.Equal(t, 1, count)

	events, err := s.BinHistory(ctx, "bin1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.BinEventClear, events[0].Type)
	assert.Equal(t, "op1", events[0].OperatorID)
	assert.Equal(t, "done", events[0].Note)
	assert.Equal(t, "2025-03-01T12:00:00Z", events[0].Timestamp)

	_, err = s.ClearBin(ctx, "bin404", "op1", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.BinHistory(ctx, "bin404")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLStoreBinHistoryKeepsClearOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1"}))

	var want []string
	for i := 0; i < 20; i++ {
		note := fmt.Sprintf("n%02d", i)
		want = append(want, note)
		_, err := s.ClearBin(ctx, "bin1", "op1", note)
		require.NoError(t, err)
	}

	events, err := s.BinHistory(ctx, "bin1")
	require.NoError(t, err)
	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.Note)
	}
	assert.Equal(t, want, got)
}

func TestSQLStoreOperatorProgress(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	require.NoError(t, s.CreateOperator(ctx, &models.Operator{ID: "op1", Name: "John", Email: "john@aiswo.io"}))
	for _, id := range []string{"bin1", "bin2", "bin3"} {
		require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: id}))
	}

	progress, err := s.OperatorProgress(ctx, "op1")
	require.NoError(t, err)
	assert.Empty(t, progress.CompletedBins)
	require.Len(t, progress.Tasks, 3)
	assert.Equal(t, models.TaskInspect, progress.Tasks[0].ID)
	assert.False(t, progress.Tasks[0].Completed)

	_, err = s.ClearBin(ctx, "bin3", "op1", "")
	require.NoError(t, err)
	_, err = s.ClearBin(ctx, "bin1", "op1", "")
	require.NoError(t, err)
	_, err = s.ClearBin(ctx, "bin3", "op1", "again")
	require.NoError(t, err)

	tasks, err := s.SetTaskCompleted(ctx, "op1", models.TaskConfirmEmpty, true)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.True(t, tasks[2].Completed)
	assert.Equal(t, "2025-03-01T12:00:00Z", tasks[2].CompletedAt)

	_, err = s.SetTaskCompleted(ctx, "op1", "dance", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	progress, err = s.OperatorProgress(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bin3", "bin1"}, progress.CompletedBins)
	assert.True(t, progress.Tasks[2].Completed)
	assert.False(t, progress.Tasks[0].Completed)

	bins, err := s.SetBinCompleted(ctx, "op1", "bin3", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin1"}, bins)
	bins, err = s.SetBinCompleted(ctx, "op1", "bin2", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin1", "bin2"}, bins)
	_, err = s.SetBinCompleted(ctx, "op1", "bin404", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteOperator(ctx, "op1"))
	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM operator_completed_bins WHERE operator_id = ?", "op1"))
	assert.Zero(t, count)
}

func TestSQLStoreOperators(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.CreateOperator(ctx, &models.Operator{ID: "op1", Name: "John", Email: "John@aiswo.io", AssignedBins: models.StringList{"bin1", "bin2"}, Role: models.RoleOperator}))
	require.NoError(t, s.CreateOperator(ctx, &models.Operator{ID: "op2", Name: "Priya", Email: "priya@aiswo.io"}))
	assert.ErrorIs(t, s.CreateOperator(ctx, &models.Operator{ID: "op1"}), store.ErrAlreadyExists)
	require.NoError(t, s.CreateBin(ctx, &models.Bin{ID: "bin1", OperatorID: "op1"}))

	op, err := s.FindOperatorByEmail(ctx, "john@AISWO.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"bin1", "bin2"}, []string(op.AssignedBins))

	op.Phone = "555"
	op.AssignedBins = models.StringList{"bin3"}
	require.NoError(t, s.UpdateOperator(ctx, op))
	got, err := s.GetOperator(ctx, "op1")
	require.NoError(t, err)
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, []string{"bin3"}, []string(got.AssignedBins))

	ops, err := s.ListOperators(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Empty(t, ops[1].AssignedBins)

	require.NoError(t, s.DeleteOperator(ctx, "op1"))
	assert.ErrorIs(t, s.DeleteOperator(ctx, "op1"), store.ErrNotFound)
	bin, err := s.GetBin(ctx, "bin1")
	require.NoError(t, err)
	assert.Equal(t, models.UnassignedOperator, bin.OperatorID)

	assert.ErrorIs(t, s.UpdateOperator(ctx, &models.Operator{ID: "ghost"}), store.ErrNotFound)
}

func TestSQLStoreAdminsAndTickets(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	require.NoError(t, s.UpsertAdmin(ctx, &models.Admin{Email: "Boss@aiswo.io", Name: "Boss", Password: "hash1"}))
	require.NoError(t, s.UpsertAdmin(ctx, &models.Admin{Email: "boss@aiswo.io", Name: "Boss", Password: "hash2"}))

	admin, err := s.GetAdminByEmail(ctx, "BOSS@aiswo.io")
	require.NoError(t, err)
	assert.Equal(t, "boss_aiswo_io", admin.ID)
	assert.Equal(t, "hash2", admin.Password)

	_, err = s.GetAdminByEmail(ctx, "nobody@aiswo.io")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateTicket(ctx, &models.Ticket{ID: "TICKET-1", UserID: "op1", BinID: "bin1", Issue: "Lid broken", Status: models.TicketStatusOpen, CreatedAt: "2025-03-01T12:00:00Z"}))
	var issue string
	require.NoError(t, db.Get(&issue, "SELECT issue FROM tickets WHERE id = ?", "TICKET-1"))
	assert.Equal(t, "Lid broken", issue)
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, SeedDemo(ctx, s, zap.NewNop()))
	bins, err := s.ListBins(ctx)
	require.NoError(t, err)
	assert.Len(t, bins, len(DemoBins()))

	ops, err := s.ListOperators(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, len(DemoOperators()))
	assert.NotEmpty(t, ops[0].Password)

	_, err = s.GetAdminByEmail(ctx, DemoAdminEmail)
	require.NoError(t, err)

	// second run is a no-op
	require.NoError(t, SeedDemo(ctx, s, zap.NewNop()))
	bins, err = s.ListBins(ctx)
	require.NoError(t, err)
	assert.Len(t, bins, len(DemoBins()))
}
