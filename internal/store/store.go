package store

import (
	"context"
	"errors"

	"aiswo-backend/internal/models"
)

var (
	// ErrNotFound is returned when a bin, operator or admin does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the CRUD backend for bins, operators, admins and tickets.
// List methods return plain copies in a deterministic order.
type Store interface {
	ListBins(ctx context.Context) ([]models.Bin, error)
	GetBin(ctx context.Context, id string) (*models.Bin, error)
	CreateBin(ctx context.Context, bin *models.Bin) error
	UpdateBin(ctx context.Context, id string, req *models.UpdateBinRequest) (*models.Bin, error)
	DeleteBin(ctx context.Context, id string) error
	ClearBin(ctx context.Context, binID, operatorID, note string) (*models.Bin, error)
	// BinHistory returns the clear events of a bin, oldest first.
	BinHistory(ctx context.Context, binID string) ([]models.BinEvent, error)

	// OperatorProgress returns an operator's completed bins and shift checklist.
	// ClearBin adds the bin to the clearing operator's completed list.
	OperatorProgress(ctx context.Context, operatorID string) (*models.OperatorProgress, error)
	// SetTaskCompleted returns ErrNotFound for a task id outside the checklist.
	SetTaskCompleted(ctx context.Context, operatorID, taskID string, completed bool) ([]models.OperatorTask, error)
	SetBinCompleted(ctx context.Context, operatorID, binID string, completed bool) ([]string, error)

	ListOperators(ctx context.Context) ([]models.Operator, error)
	GetOperator(ctx context.Context, id string) (*models.Operator, error)
	FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	CreateOperator(ctx context.Context, op *models.Operator) error
	UpdateOperator(ctx context.Context, op *models.Operator) error
	DeleteOperator(ctx context.Context, id string) error

	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpsertAdmin(ctx context.Context, admin *models.Admin) error

	CreateTicket(ctx context.Context, t *models.Ticket) error

	Close() error
}

// MarkCleared resets a bin after an operator empties it.
func MarkCleared(b *models.Bin, operatorID, now string) {
	zero := 0.0
	b.FillPct = &zero
	w := 0.0
	b.WeightKg = &w
	b.Status = "Normal"
	b.LastClearedAt = now
	b.LastClearedBy = operatorID
	b.UpdatedAt = now
}
