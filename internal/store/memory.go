package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"aiswo-backend/internal/models"
)

// MemoryStore keeps everything in process memory. Used in demo mode when no
// database is configured, and by tests.
type MemoryStore struct {
	mu        sync.RWMutex
	bins      map[string]models.Bin
	operators map[string]models.Operator
	admins    map[string]models.Admin
	tickets   []models.Ticket
	history   map[string][]models.BinEvent
	completed map[string][]string
	tasks     map[string][]models.OperatorTask
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bins:      make(map[string]models.Bin),
		operators: make(map[string]models.Operator),
		admins:    make(map[string]models.Admin),
		history:   make(map[string][]models.BinEvent),
		completed: make(map[string][]string),
		tasks:     make(map[string][]models.OperatorTask),
		now:       time.Now,
	}
}

func (s *MemoryStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func cloneBin(b models.Bin) models.Bin {
	if b.FillPct != nil {
		v := *b.FillPct
		b.FillPct = &v
	}
	if b.WeightKg != nil {
		v := *b.WeightKg
		b.WeightKg = &v
	}
	return b
}

func cloneOperator(o models.Operator) models.Operator {
	if o.AssignedBins != nil {
		ids := make(models.StringList, len(o.AssignedBins))
		copy(ids, o.AssignedBins)
		o.AssignedBins = ids
	}
	return o
}

func (s *MemoryStore) ListBins(ctx context.Context) ([]models.Bin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bins := make([]models.Bin, 0, len(s.bins))
	for _, b := range s.bins {
		bins = append(bins, cloneBin(b))
	}
	models.SortBins(bins)
	return bins, nil
}

func (s *MemoryStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bins[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneBin(b)
	return &out, nil
}

func (s *MemoryStore) CreateBin(ctx context.Context, bin *models.Bin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bins[bin.ID]; ok {
		return ErrAlreadyExists
	}
	now := s.timestamp()
	if bin.CreatedAt == "" {
		bin.CreatedAt = now
	}
	if bin.UpdatedAt == "" {
		bin.UpdatedAt = now
	}
	s.bins[bin.ID] = cloneBin(*bin)
	return nil
}

func (s *MemoryStore) UpdateBin(ctx context.Context, id string, req *models.UpdateBinRequest) (*models.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bins[id]
	if !ok {
		return nil, ErrNotFound
	}
	req.Apply(&b)
	b.UpdatedAt = s.timestamp()
	s.bins[id] = b
	out := cloneBin(b)
	return &out, nil
}

func (s *MemoryStore) DeleteBin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bins[id]; !ok {
		return ErrNotFound
	}
	delete(s.bins, id)
	delete(s.history, id)
	return nil
}

func (s *MemoryStore) ClearBin(ctx context.Context, binID, operatorID, note string) (*models.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bins[binID]
	if !ok {
		return nil, ErrNotFound
	}
	MarkCleared(&b, operatorID, s.timestamp())
	s.bins[binID] = b
	s.history[binID] = append(s.history[binID], models.BinEvent{
		ID:         strconv.Itoa(len(s.history[binID]) + 1),
		BinID:      binID,
		Type:       models.BinEventClear,
		OperatorID: operatorID,
		Note:       note,
		Timestamp:  b.LastClearedAt,
	})
	s.completed[operatorID] = models.ToggleCompletedBin(s.completed[operatorID], binID, true)
	out := cloneBin(b)
	return &out, nil
}

func (s *MemoryStore) BinHistory(ctx context.Context, binID string) ([]models.BinEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.bins[binID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.BinEvent, len(s.history[binID]))
	copy(out, s.history[binID])
	return out, nil
}

func (s *MemoryStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make([]models.Operator, 0, len(s.operators))
	for _, o := range s.operators {
		ops = append(ops, cloneOperator(o))
	}
	models.SortOperators(ops)
	return ops, nil
}

func (s *MemoryStore) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.operators[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneOperator(o)
	return &out, nil
}

func (s *MemoryStore) FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.operators {
		if strings.EqualFold(o.Email, email) {
			out := cloneOperator(o)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateOperator(ctx context.Context, op *models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[op.ID]; ok {
		return ErrAlreadyExists
	}
	if op.CreatedAt == "" {
		op.CreatedAt = s.timestamp()
	}
	s.operators[op.ID] = cloneOperator(*op)
	return nil
}

func (s *MemoryStore) UpdateOperator(ctx context.Context, op *models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[op.ID]; !ok {
		return ErrNotFound
	}
	op.UpdatedAt = s.timestamp()
	s.operators[op.ID] = cloneOperator(*op)
	return nil
}

// DeleteOperator removes the operator and marks its bins unassigned.
func (s *MemoryStore) DeleteOperator(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[id]; !ok {
		return ErrNotFound
	}
	for binID, b := range s.bins {
		if b.OperatorID == id {
			b.OperatorID = models.UnassignedOperator
			s.bins[binID] = b
		}
	}
	delete(s.operators, id)
	delete(s.completed, id)
	delete(s.tasks, id)
	return nil
}

// checklist returns the operator's tasks, creating the default list on first use.
// Callers hold s.mu.
func (s *MemoryStore) checklist(operatorID string) []models.OperatorTask {
	tasks, ok := s.tasks[operatorID]
	if !ok {
		tasks = models.DefaultTasks()
		s.tasks[operatorID] = tasks
	}
	return tasks
}

func (s *MemoryStore) OperatorProgress(ctx context.Context, operatorID string) (*models.OperatorProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.checklist(operatorID)
	progress := &models.OperatorProgress{
		OperatorID:    operatorID,
		CompletedBins: append([]string{}, s.completed[operatorID]...),
		Tasks:         append([]models.OperatorTask{}, tasks...),
	}
	return progress, nil
}

func (s *MemoryStore) SetTaskCompleted(ctx context.Context, operatorID, taskID string, completed bool) ([]models.OperatorTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.checklist(operatorID)
	if !models.SetTask(tasks, taskID, completed, s.timestamp()) {
		return nil, ErrNotFound
	}
	return append([]models.OperatorTask{}, tasks...), nil
}

func (s *MemoryStore) SetBinCompleted(ctx context.Context, operatorID, binID string, completed bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bins[binID]; !ok {
		return nil, ErrNotFound
	}
	s.completed[operatorID] = models.ToggleCompletedBin(s.completed[operatorID], binID, completed)
	return append([]string{}, s.completed[operatorID]...), nil
}

func (s *MemoryStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[models.AdminID(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) UpsertAdmin(ctx context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin.ID = models.AdminID(admin.Email)
	now := s.timestamp()
	if existing, ok := s.admins[admin.ID]; ok {
		admin.CreatedAt = existing.CreatedAt
		admin.UpdatedAt = now
	} else if admin.CreatedAt == "" {
		admin.CreatedAt = now
	}
	s.admins[admin.ID] = *admin
	return nil
}

func (s *MemoryStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, *t)
	return nil
}

// Tickets returns the reported tickets in creation order.
func (s *MemoryStore) Tickets() []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

func (s *MemoryStore) Close() error { return nil }
