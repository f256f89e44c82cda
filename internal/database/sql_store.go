package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	binColumns      = "id, name, location, fill_pct, weight_kg, status, capacity, operator_id, is_blocked, updated_at, created_at, last_cleared_at, last_cleared_by"
	operatorColumns = "id, name, email, phone, assigned_bins, password, role, created_at, updated_at"
	adminColumns    = "id, email, name, password, created_at, updated_at"
)

// SQLStore implements store.Store on Postgres or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	return &SQLStore{db: db, now: time.Now, logger: logger}
}

func (s *SQLStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// floatArg and listArg hand the drivers plain values.
func floatArg(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func listArg(l models.StringList) (string, error) {
	v, err := l.Value()
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Bins
// ---------------------------------------------------------------------------

func getBin(ctx context.Context, q sqlx.ExtContext, id string) (*models.Bin, error) {
	var b models.Bin
	err := sqlx.GetContext(ctx, q, &b, q.Rebind("SELECT "+binColumns+" FROM bins WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func upsertBin(ctx context.Context, q sqlx.ExtContext, b *models.Bin) error {
	query := q.Rebind(`
		INSERT INTO bins (` + binColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			fill_pct = excluded.fill_pct,
			weight_kg = excluded.weight_kg,
			status = excluded.status,
			capacity = excluded.capacity,
			operator_id = excluded.operator_id,
			is_blocked = excluded.is_blocked,
			updated_at = excluded.updated_at,
			last_cleared_at = excluded.last_cleared_at,
			last_cleared_by = excluded.last_cleared_by
	`)
	_, err := q.ExecContext(ctx, query,
		b.ID, b.Name, b.Location, floatArg(b.FillPct), floatArg(b.WeightKg), b.Status, b.Capacity,
		b.OperatorID, boolToInt(b.IsBlocked), b.UpdatedAt, b.CreatedAt,
		b.LastClearedAt, b.LastClearedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to write bin %s: %w", b.ID, err)
	}
	return nil
}

func (s *SQLStore) ListBins(ctx context.Context) ([]models.Bin, error) {
	bins := []models.Bin{}
	if err := s.db.SelectContext(ctx, &bins, "SELECT "+binColumns+" FROM bins"); err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	models.SortBins(bins)
	return bins, nil
}

func (s *SQLStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	return getBin(ctx, s.db, id)
}

func (s *SQLStore) CreateBin(ctx context.Context, bin *models.Bin) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getBin(ctx, tx, bin.ID); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		now := s.timestamp()
		if bin.CreatedAt == "" {
			bin.CreatedAt = now
		}
		if bin.UpdatedAt == "" {
			bin.UpdatedAt = now
		}
		return upsertBin(ctx, tx, bin)
	})
}

func (s *SQLStore) UpdateBin(ctx context.Context, id string, req *models.UpdateBinRequest) (*models.Bin, error) {
	var updated *models.Bin
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		b, err := getBin(ctx, tx, id)
		if err != nil {
			return err
		}
		req.Apply(b)
		b.UpdatedAt = s.timestamp()
		if err := upsertBin(ctx, tx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLStore) DeleteBin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM bins WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete bin %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) ClearBin(ctx context.Context, binID, operatorID, note string) (*models.Bin, error) {
	var cleared *models.Bin
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		b, err := getBin(ctx, tx, binID)
		if err != nil {
			return err
		}
		now := s.timestamp()
		store.MarkCleared(b, operatorID, now)
		if err := upsertBin(ctx, tx, b); err != nil {
			return err
		}

		var seq int
		err = tx.GetContext(ctx, &seq, tx.Rebind("SELECT COALESCE(MAX(seq), 0) + 1 FROM bin_history WHERE bin_id = ?"), binID)
		if err != nil {
			return fmt.Errorf("failed to number clear history: %w", err)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO bin_history (id, bin_id, seq, type, operator_id, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), uuid.New().String(), binID, seq, models.BinEventClear, operatorID, note, now)
		if err != nil {
			return fmt.Errorf("failed to record clear history: %w", err)
		}
		if err := markBinCompleted(ctx, tx, operatorID, binID, now); err != nil {
			return err
		}
		cleared = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (s *SQLStore) BinHistory(ctx context.Context, binID string) ([]models.BinEvent, error) {
	if _, err := getBin(ctx, s.db, binID); err != nil {
		return nil, err
	}
	events := []models.BinEvent{}
	err := s.db.SelectContext(ctx, &events, s.db.Rebind(`
		SELECT id, bin_id, type, operator_id, note, created_at
		FROM bin_history
		WHERE bin_id = ?
		ORDER BY seq
	`), binID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bin history: %w", err)
	}
	return events, nil
}

// ---------------------------------------------------------------------------
// Operator progress
// ---------------------------------------------------------------------------

func markBinCompleted(ctx context.Context, tx *sqlx.Tx, operatorID, binID, now string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO operator_completed_bins (operator_id, bin_id, completed_at, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM operator_completed_bins WHERE operator_id = ?
		ON CONFLICT (operator_id, bin_id) DO NOTHING
	`), operatorID, binID, now, operatorID)
	if err != nil {
		return fmt.Errorf("failed to mark bin %s completed: %w", binID, err)
	}
	return nil
}

func completedBins(ctx context.Context, q sqlx.ExtContext, operatorID string) ([]string, error) {
	bins := []string{}
	err := sqlx.SelectContext(ctx, q, &bins, q.Rebind(`
		SELECT bin_id FROM operator_completed_bins WHERE operator_id = ? ORDER BY seq
	`), operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed bins: %w", err)
	}
	return bins, nil
}

// checklist loads the operator's tasks, inserting the default list on first use.
func checklist(ctx context.Context, tx *sqlx.Tx, operatorID string) ([]models.OperatorTask, error) {
	tasks := []models.OperatorTask{}
	query := tx.Rebind(`
		SELECT task_id, label, sequence_order, is_completed, completed_at
		FROM operator_tasks
		WHERE operator_id = ?
		ORDER BY sequence_order ASC
	`)
	if err := tx.SelectContext(ctx, &tasks, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to get operator tasks: %w", err)
	}
	if len(tasks) > 0 {
		return tasks, nil
	}

	tasks = models.DefaultTasks()
	for _, task := range tasks {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO operator_tasks (operator_id, task_id, label, sequence_order, is_completed, completed_at)
			VALUES (?, ?, ?, ?, 0, '')
		`), operatorID, task.ID, task.Label, task.SequenceOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to create operator tasks: %w", err)
		}
	}
	return tasks, nil
}

func (s *SQLStore) OperatorProgress(ctx context.Context, operatorID string) (*models.OperatorProgress, error) {
	progress := &models.OperatorProgress{OperatorID: operatorID}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		tasks, err := checklist(ctx, tx, operatorID)
		if err != nil {
			return err
		}
		bins, err := completedBins(ctx, tx, operatorID)
		if err != nil {
			return err
		}
		progress.Tasks = tasks
		progress.CompletedBins = bins
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *SQLStore) SetTaskCompleted(ctx context.Context, operatorID, taskID string, completed bool) ([]models.OperatorTask, error) {
	var tasks []models.OperatorTask
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		tasks, err = checklist(ctx, tx, operatorID)
		if err != nil {
			return err
		}
		if !models.SetTask(tasks, taskID, completed, s.timestamp()) {
			return store.ErrNotFound
		}

		for _, task := range tasks {
			if task.ID != taskID {
				continue
			}
			_, err = tx.ExecContext(ctx, tx.Rebind(`
				UPDATE operator_tasks
				SET is_completed = ?, completed_at = ?
				WHERE operator_id = ? AND task_id = ?
			`), boolToInt(task.Completed), task.CompletedAt, operatorID, taskID)
			if err != nil {
				return fmt.Errorf("failed to update task %s: %w", taskID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *SQLStore) SetBinCompleted(ctx context.Context, operatorID, binID string, completed bool) ([]string, error) {
	var bins []string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getBin(ctx, tx, binID); err != nil {
			return err
		}
		if completed {
			if err := markBinCompleted(ctx, tx, operatorID, binID, s.timestamp()); err != nil {
				return err
			}
		} else {
			_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM operator_completed_bins WHERE operator_id = ? AND bin_id = ?"), operatorID, binID)
			if err != nil {
				return fmt.Errorf("failed to unmark bin %s: %w", binID, err)
			}
		}
		var err error
		bins, err = completedBins(ctx, tx, operatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bins, nil
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (s *SQLStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	ops := []models.Operator{}
	if err := s.db.SelectContext(ctx, &ops, "SELECT "+operatorColumns+" FROM operators"); err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	models.SortOperators(ops)
	return ops, nil
}

func (s *SQLStore) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	var op models.Operator
	err := s.db.GetContext(ctx, &op, s.db.Rebind("SELECT "+operatorColumns+" FROM operators WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (s *SQLStore) FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var op models.Operator
	err := s.db.GetContext(ctx, &op, s.db.Rebind("SELECT "+operatorColumns+" FROM operators WHERE LOWER(email) = LOWER(?) ORDER BY id LIMIT 1"), email)
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (s *SQLStore) CreateOperator(ctx context.Context, op *models.Operator) error {
	if _, err := s.GetOperator(ctx, op.ID); err == nil {
		return store.ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if op.CreatedAt == "" {
		op.CreatedAt = s.timestamp()
	}
	if op.AssignedBins == nil {
		op.AssignedBins = models.StringList{}
	}
	assigned, err := listArg(op.AssignedBins)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO operators (`+operatorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), op.ID, op.Name, op.Email, op.Phone, assigned, op.Password, op.Role, op.CreatedAt, op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create operator %s: %w", op.ID, err)
	}
	return nil
}

func (s *SQLStore) UpdateOperator(ctx context.Context, op *models.Operator) error {
	op.UpdatedAt = s.timestamp()
	assigned, err := listArg(op.AssignedBins)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE operators
		SET name = ?, email = ?, phone = ?, assigned_bins = ?, password = ?, role = ?, updated_at = ?
		WHERE id = ?
	`), op.Name, op.Email, op.Phone, assigned, op.Password, op.Role, op.UpdatedAt, op.ID)
	if err != nil {
		return fmt.Errorf("failed to update operator %s: %w", op.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteOperator removes the operator and marks its bins unassigned.
func (s *SQLStore) DeleteOperator(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM operators WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete operator %s: %w", id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return store.ErrNotFound
		}

		_, err = tx.ExecContext(ctx, tx.Rebind("UPDATE bins SET operator_id = ? WHERE operator_id = ?"),
			models.UnassignedOperator, id)
		if err != nil {
			return fmt.Errorf("failed to unassign bins: %w", err)
		}

		for _, table := range []string{"operator_tasks", "operator_completed_bins"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE operator_id = ?"), id); err != nil {
				return fmt.Errorf("failed to drop %s for operator %s: %w", table, id, err)
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Admins and tickets
// ---------------------------------------------------------------------------

func (s *SQLStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.GetContext(ctx, &admin, s.db.Rebind("SELECT "+adminColumns+" FROM admins WHERE id = ?"), models.AdminID(email))
	if err != nil {
		return nil, notFound(err)
	}
	return &admin, nil
}

func (s *SQLStore) UpsertAdmin(ctx context.Context, admin *models.Admin) error {
	admin.ID = models.AdminID(admin.Email)
	now := s.timestamp()
	existing, err := s.GetAdminByEmail(ctx, admin.Email)
	switch {
	case err == nil:
		admin.CreatedAt = existing.CreatedAt
		admin.UpdatedAt = now
	case errors.Is(err, store.ErrNotFound):
		if admin.CreatedAt == "" {
			admin.CreatedAt = now
		}
	default:
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO admins (`+adminColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			password = excluded.password,
			updated_at = excluded.updated_at
	`), admin.ID, admin.Email, admin.Name, admin.Password, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write admin %s: %w", admin.ID, err)
	}
	return nil
}

func (s *SQLStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO tickets (id, user_id, bin_id, issue, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.UserID, t.BinID, t.Issue, t.Description, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write ticket %s: %w", t.ID, err)
	}
	return nil
}
