package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"aiswo-backend/internal/models"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	binsPath            = "bins"
	binHistoryPath      = "binHistory"
	binsCollection      = "bins"
	operatorsCollection = "operators"
	adminsCollection    = "admins"
	ticketsCollection   = "tickets"
	progressCollection  = "operatorProgress"
)

// FirebaseConfig selects the credentials and database of the Firebase project.
// CredentialsBase64 wins over CredentialsFile when both are set.
type FirebaseConfig struct {
	CredentialsFile   string
	CredentialsBase64 string
	DatabaseURL       string
	ProjectID         string
}

// FirebaseStore keeps live bin readings in the Realtime Database (mirrored
// into the Firestore "bins" collection) and operators, admins and tickets in
// Firestore.
type FirebaseStore struct {
	app    *firebase.App
	rtdb   *db.Client
	fs     *firestore.Client
	logger *zap.Logger
}

// NewFirebaseApp initializes a Firebase app from a credentials file or
// base64-encoded credentials JSON (for cloud deployments without files).
func NewFirebaseApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	var opt option.ClientOption
	if cfg.CredentialsBase64 != "" {
		credentialsJSON, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(credentialsJSON)
	} else {
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	}

	conf := &firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
		ProjectID:   cfg.ProjectID,
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}

// NewFirebaseStore connects the Realtime Database and Firestore clients of app.
func NewFirebaseStore(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FirebaseStore, error) {
	rtdb, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Realtime Database client: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return &FirebaseStore{app: app, rtdb: rtdb, fs: fs, logger: logger}, nil
}

// App exposes the underlying Firebase app (shared with the FCM service).
func (s *FirebaseStore) App() *firebase.App {
	return s.app
}

func (s *FirebaseStore) Close() error {
	return s.fs.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ---------------------------------------------------------------------------
// Bins (Realtime Database)
// ---------------------------------------------------------------------------

func (s *FirebaseStore) ListBins(ctx context.Context) ([]models.Bin, error) {
	var raw map[string]models.Bin
	if err := s.rtdb.NewRef(binsPath).Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read bins: %w", err)
	}

	bins := make([]models.Bin, 0, len(raw))
	for id, b := range raw {
		b.ID = id
		bins = append(bins, b)
	}
	models.SortBins(bins)
	return bins, nil
}

func (s *FirebaseStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	var b *models.Bin
	if err := s.rtdb.NewRef(binsPath).Child(id).Get(ctx, &b); err != nil {
		return nil, fmt.Errorf("failed to read bin %s: %w", id, err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	b.ID = id
	return b, nil
}

func (s *FirebaseStore) writeBin(ctx context.Context, b *models.Bin) error {
	if err := s.rtdb.NewRef(binsPath).Child(b.ID).Set(ctx, b); err != nil {
		return fmt.Errorf("failed to write bin %s: %w", b.ID, err)
	}
	// Firestore mirror is best effort; the Realtime Database is authoritative.
	if _, err := s.fs.Collection(binsCollection).Doc(b.ID).Set(ctx, b); err != nil {
		s.logger.Warn("⚠️ Failed to mirror bin to Firestore", zap.String("bin", b.ID), zap.Error(err))
	}
	return nil
}

func (s *FirebaseStore) CreateBin(ctx context.Context, bin *models.Bin) error {
	if _, err := s.GetBin(ctx, bin.ID); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	ts := now()
	if bin.CreatedAt == "" {
		bin.CreatedAt = ts
	}
	if bin.UpdatedAt == "" {
		bin.UpdatedAt = ts
	}
	return s.writeBin(ctx, bin)
}

func (s *FirebaseStore) UpdateBin(ctx context.Context, id string, req *models.UpdateBinRequest) (*models.Bin, error) {
	b, err := s.GetBin(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(b)
	b.UpdatedAt = now()
	if err := s.writeBin(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *FirebaseStore) DeleteBin(ctx context.Context, id string) error {
	if _, err := s.GetBin(ctx, id); err != nil {
		return err
	}
	if err := s.rtdb.NewRef(binsPath).Child(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete bin %s: %w", id, err)
	}
	if _, err := s.fs.Collection(binsCollection).Doc(id).Delete(ctx); err != nil {
		s.logger.Warn("⚠️ Failed to delete Firestore bin mirror", zap.String("bin", id), zap.Error(err))
	}
	return nil
}

func (s *FirebaseStore) ClearBin(ctx context.Context, binID, operatorID, note string) (*models.Bin, error) {
	b, err := s.GetBin(ctx, binID)
	if err != nil {
		return nil, err
	}
	MarkCleared(b, operatorID, now())
	if err := s.writeBin(ctx, b); err != nil {
		return nil, err
	}

	entry := models.BinEvent{
		Type:       models.BinEventClear,
		OperatorID: operatorID,
		Note:       note,
		Timestamp:  b.LastClearedAt,
	}
	if _, err := s.rtdb.NewRef(binHistoryPath).Child(binID).Push(ctx, entry); err != nil {
		s.logger.Warn("⚠️ Failed to append clear history", zap.String("bin", binID), zap.Error(err))
	}
	_, err = s.updateProgress(ctx, operatorID, func(p *progressDoc) error {
		p.CompletedBins = models.ToggleCompletedBin(p.CompletedBins, binID, true)
		return nil
	})
	if err != nil {
		s.logger.Warn("⚠️ Failed to record operator progress", zap.String("operator", operatorID), zap.Error(err))
	}
	return b, nil
}

// BinHistory reads binHistory/{id}, kept apart from the bin node so
// writeBin's Set does not drop it. Push keys sort chronologically.
func (s *FirebaseStore) BinHistory(ctx context.Context, binID string) ([]models.BinEvent, error) {
	if _, err := s.GetBin(ctx, binID); err != nil {
		return nil, err
	}
	var raw map[string]models.BinEvent
	if err := s.rtdb.NewRef(binHistoryPath).Child(binID).Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch bin history: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	events := make([]models.BinEvent, 0, len(keys))
	for _, k := range keys {
		e := raw[k]
		e.ID = k
		e.BinID = binID
		events = append(events, e)
	}
	return events, nil
}

// MigrateBinsToFirestore copies every Realtime Database bin into the
// Firestore "bins" collection and returns how many were written.
func (s *FirebaseStore) MigrateBinsToFirestore(ctx context.Context) (int, error) {
	bins, err := s.ListBins(ctx)
	if err != nil {
		return 0, err
	}
	for i := range bins {
		if _, err := s.fs.Collection(binsCollection).Doc(bins[i].ID).Set(ctx, bins[i]); err != nil {
			return i, fmt.Errorf("failed to migrate bin %s: %w", bins[i].ID, err)
		}
	}
	return len(bins), nil
}

// ---------------------------------------------------------------------------
// Operators (Firestore)
// ---------------------------------------------------------------------------

func operatorFromDoc(doc *firestore.DocumentSnapshot) (*models.Operator, error) {
	var op models.Operator
	if err := doc.DataTo(&op); err != nil {
		return nil, fmt.Errorf("failed to decode operator %s: %w", doc.Ref.ID, err)
	}
	op.ID = doc.Ref.ID
	return &op, nil
}

func (s *FirebaseStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	docs, err := s.fs.Collection(operatorsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}

	ops := make([]models.Operator, 0, len(docs))
	for _, doc := range docs {
		op, err := operatorFromDoc(doc)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	models.SortOperators(ops)
	return ops, nil
}

func (s *FirebaseStore) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	doc, err := s.fs.Collection(operatorsCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read operator %s: %w", id, err)
	}
	return operatorFromDoc(doc)
}

func (s *FirebaseStore) FindOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	docs, err := s.fs.Collection(operatorsCollection).Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query operators: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return operatorFromDoc(docs[0])
}

func (s *FirebaseStore) CreateOperator(ctx context.Context, op *models.Operator) error {
	if op.CreatedAt == "" {
		op.CreatedAt = now()
	}
	_, err := s.fs.Collection(operatorsCollection).Doc(op.ID).Create(ctx, op)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create operator %s: %w", op.ID, err)
	}
	return nil
}

func (s *FirebaseStore) UpdateOperator(ctx context.Context, op *models.Operator) error {
	if _, err := s.GetOperator(ctx, op.ID); err != nil {
		return err
	}
	op.UpdatedAt = now()
	if _, err := s.fs.Collection(operatorsCollection).Doc(op.ID).Set(ctx, op); err != nil {
		return fmt.Errorf("failed to update operator %s: %w", op.ID, err)
	}
	return nil
}

// DeleteOperator removes the operator and marks its bins unassigned in both
// the Realtime Database and the Firestore mirror.
func (s *FirebaseStore) DeleteOperator(ctx context.Context, id string) error {
	if _, err := s.GetOperator(ctx, id); err != nil {
		return err
	}

	bins, err := s.ListBins(ctx)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	for _, b := range bins {
		if b.OperatorID == id {
			updates[binsPath+"/"+b.ID+"/operatorId"] = models.UnassignedOperator
		}
	}
	if len(updates) > 0 {
		if err := s.rtdb.NewRef("/").Update(ctx, updates); err != nil {
			return fmt.Errorf("failed to unassign bins: %w", err)
		}
	}

	docs, err := s.fs.Collection(binsCollection).Where("operatorId", "==", id).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to query Firestore bins: %w", err)
	}
	for _, doc := range docs {
		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "operatorId", Value: models.UnassignedOperator}}); err != nil {
			return fmt.Errorf("failed to unassign bin %s: %w", doc.Ref.ID, err)
		}
	}

	if _, err := s.fs.Collection(operatorsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete operator %s: %w", id, err)
	}
	if _, err := s.fs.Collection(progressCollection).Doc(id).Delete(ctx); err != nil {
		s.logger.Warn("⚠️ Failed to delete operator progress", zap.String("operator", id), zap.Error(err))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operator progress (Firestore)
// ---------------------------------------------------------------------------

type progressDoc struct {
	CompletedBins []string              `firestore:"completedBins"`
	Tasks         []models.OperatorTask `firestore:"tasks"`
	UpdatedAt     string                `firestore:"updatedAt,omitempty"`
}

func (p *progressDoc) fillDefaults() {
	if p.CompletedBins == nil {
		p.CompletedBins = []string{}
	}
	if len(p.Tasks) == 0 {
		p.Tasks = models.DefaultTasks()
	}
}

func (p *progressDoc) toModel(operatorID string) *models.OperatorProgress {
	return &models.OperatorProgress{OperatorID: operatorID, CompletedBins: p.CompletedBins, Tasks: p.Tasks}
}

// updateProgress applies fn to operatorProgress/{id} inside a transaction.
func (s *FirebaseStore) updateProgress(ctx context.Context, operatorID string, fn func(p *progressDoc) error) (*progressDoc, error) {
	ref := s.fs.Collection(progressCollection).Doc(operatorID)
	var out progressDoc
	err := s.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var p progressDoc
		doc, err := tx.Get(ref)
		switch {
		case isNotFound(err):
		case err != nil:
			return err
		default:
			if err := doc.DataTo(&p); err != nil {
				return fmt.Errorf("failed to decode progress of %s: %w", operatorID, err)
			}
		}
		p.fillDefaults()
		if err := fn(&p); err != nil {
			return err
		}
		p.UpdatedAt = now()
		out = p
		return tx.Set(ref, &p)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FirebaseStore) OperatorProgress(ctx context.Context, operatorID string) (*models.OperatorProgress, error) {
	var p progressDoc
	doc, err := s.fs.Collection(progressCollection).Doc(operatorID).Get(ctx)
	switch {
	case isNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read progress of %s: %w", operatorID, err)
	default:
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode progress of %s: %w", operatorID, err)
		}
	}
	p.fillDefaults()
	return p.toModel(operatorID), nil
}

func (s *FirebaseStore) SetTaskCompleted(ctx context.Context, operatorID, taskID string, completed bool) ([]models.OperatorTask, error) {
	p, err := s.updateProgress(ctx, operatorID, func(p *progressDoc) error {
		if !models.SetTask(p.Tasks, taskID, completed, now()) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Tasks, nil
}

func (s *FirebaseStore) SetBinCompleted(ctx context.Context, operatorID, binID string, completed bool) ([]string, error) {
	if _, err := s.GetBin(ctx, binID); err != nil {
		return nil, err
	}
	p, err := s.updateProgress(ctx, operatorID, func(p *progressDoc) error {
		p.CompletedBins = models.ToggleCompletedBin(p.CompletedBins, binID, completed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update progress of %s: %w", operatorID, err)
	}
	return p.CompletedBins, nil
}

// ---------------------------------------------------------------------------
// Admins and tickets (Firestore)
// ---------------------------------------------------------------------------

func (s *FirebaseStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	id := models.AdminID(email)
	doc, err := s.fs.Collection(adminsCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read admin %s: %w", id, err)
	}

	var admin models.Admin
	if err := doc.DataTo(&admin); err != nil {
		return nil, fmt.Errorf("failed to decode admin %s: %w", id, err)
	}
	admin.ID = doc.Ref.ID
	return &admin, nil
}

func (s *FirebaseStore) UpsertAdmin(ctx context.Context, admin *models.Admin) error {
	admin.ID = models.AdminID(admin.Email)
	ts := now()
	existing, err := s.GetAdminByEmail(ctx, admin.Email)
	switch {
	case err == nil:
		admin.CreatedAt = existing.CreatedAt
		admin.UpdatedAt = ts
	case errors.Is(err, ErrNotFound):
		if admin.CreatedAt == "" {
			admin.CreatedAt = ts
		}
	default:
		return err
	}

	if _, err := s.fs.Collection(adminsCollection).Doc(admin.ID).Set(ctx, admin); err != nil {
		return fmt.Errorf("failed to write admin %s: %w", admin.ID, err)
	}
	return nil
}

func (s *FirebaseStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if _, err := s.fs.Collection(ticketsCollection).Doc(t.ID).Set(ctx, t); err != nil {
		return fmt.Errorf("failed to write ticket %s: %w", t.ID, err)
	}
	return nil
}
