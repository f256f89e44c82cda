package chatbot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"aiswo-backend/internal/metrics"
	"aiswo-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reply sources.
const (
	SourceRules     = "rules"
	SourceHelp      = "help"
	SourceGenerator = "generator"
	SourceFallback  = "fallback"
)

// FallbackResponse is returned when the generator fails.
const FallbackResponse = "I'm having trouble connecting right now. Please try again or contact support. 🔧"

var (
	// ErrEmptyMessage is returned by Chat for blank messages.
	ErrEmptyMessage = errors.New("message is required")
	// ErrInvalidReport is returned by Report when bin id or issue is missing.
	ErrInvalidReport = errors.New("binId and issue are required")
)

// Generator produces free text for questions the resolver does not handle.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SnapshotProvider supplies the point-in-time data a chat turn is answered from.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// TicketSink persists reported issues.
type TicketSink interface {
	CreateTicket(ctx context.Context, t *models.Ticket) error
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Response       string    `json:"response"`
	Source         string    `json:"source"`
	Intent         string    `json:"intent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversationId"`
}

// Assistant answers chat messages: rule-based first, generator second.
type Assistant struct {
	resolver  *Resolver
	snapshots SnapshotProvider
	generator Generator
	history   *History
	tickets   TicketSink
	logger    *zap.Logger
}

// NewAssistant wires an assistant. history is owned by the caller.
func NewAssistant(snapshots SnapshotProvider, generator Generator, history *History, tickets TicketSink, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &Assistant{
		resolver:  NewResolver(),
		snapshots: snapshots,
		generator: generator,
		history:   history,
		tickets:   tickets,
		logger:    logger,
	}
}

var helpRe = regexp.MustCompile(`^(?:help|\?)$|\bwhat can you do\b|\bcapabilities\b|\bhow do i use you\b`)

// Chat answers message for userID and records the exchange.
func (a *Assistant) Chat(ctx context.Context, userID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	if userID == "" {
		userID = "anonymous"
	}

	reply := Reply{ConversationID: userID}

	if helpRe.MatchString(normalize(message)) {
		reply.Response, reply.Source = helpText, SourceHelp
	} else {
		snap, err := a.snapshots.Snapshot(ctx)
		if err != nil {
			return Reply{}, fmt.Errorf("failed to load snapshot: %w", err)
		}

		if ans, ok := a.resolver.Resolve(message, snap); ok {
			reply.Response, reply.Source, reply.Intent = ans.Text, SourceRules, string(ans.Intent)
			metrics.ObserveIntent(reply.Intent)
			a.logger.Debug("Answered from snapshot",
				zap.String("user", userID),
				zap.String("intent", reply.Intent))
		} else {
			reply.Response, reply.Source = a.generate(ctx, userID, snap, message)
		}
	}

	reply.Timestamp = time.Now()
	a.history.Append(userID,
		Turn{Role: RoleUser, Message: message, Timestamp: reply.Timestamp},
		Turn{Role: RoleAssistant, Message: reply.Response, Timestamp: reply.Timestamp},
	)
	metrics.ObserveChatMessage(reply.Source)
	return reply, nil
}

func (a *Assistant) generate(ctx context.Context, userID string, snap Snapshot, message string) (string, string) {
	prompt := BuildPrompt(snap, a.history.Recent(userID, promptHistoryTurns), message)

	start := time.Now()
	text, err := a.generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty generation")
	}
	if err != nil {
		metrics.ObserveGeneration(metrics.ResultError, time.Since(start))
		a.logger.Warn("⚠️ Generator failed, using fallback response",
			zap.String("user", userID),
			zap.Error(err))
		return FallbackResponse, SourceFallback
	}
	metrics.ObserveGeneration(metrics.ResultSuccess, time.Since(start))
	return strings.TrimSpace(text), SourceGenerator
}

// History returns the kept turns for userID, oldest first.
func (a *Assistant) History(userID string) []Turn {
	return a.history.Recent(userID, 0)
}

// ClearHistory drops the conversation for userID.
func (a *Assistant) ClearHistory(userID string) {
	a.history.Clear(userID)
}

// Stats reports conversation counters.
func (a *Assistant) Stats() HistoryStats {
	return a.history.Stats()
}

// Report files an issue ticket for a bin and returns guidance for the user.
func (a *Assistant) Report(ctx context.Context, userID, binID, issue, description string) (*models.Ticket, string, error) {
	binID, issue = strings.TrimSpace(binID), strings.TrimSpace(issue)
	if binID == "" || issue == "" {
		return nil, "", ErrInvalidReport
	}
	if userID == "" {
		userID = "anonymous"
	}

	ticket := &models.Ticket{
		ID:          "TICKET-" + uuid.New().String(),
		UserID:      userID,
		BinID:       binID,
		Issue:       issue,
		Description: strings.TrimSpace(description),
		Status:      models.TicketStatusOpen,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if a.tickets != nil {
		if err := a.tickets.CreateTicket(ctx, ticket); err != nil {
			return nil, "", fmt.Errorf("failed to save ticket: %w", err)
		}
	}

	a.logger.Info("🛠️ Issue reported",
		zap.String("ticket", ticket.ID),
		zap.String("bin", binID),
		zap.String("user", userID))

	guidance := fmt.Sprintf("🛠️ Got it. Issue logged for %s as %s: %s.\nThe admin team has been notified and will follow up.",
		binID, ticket.ID, issue)
	return ticket, guidance, nil
}

var helpText = strings.Join([]string{
	"🤖 I can help with:",
	"• Checking a bin: \"Status of bin2\"",
	"• Listing full bins: \"Which bins need emptying?\"",
	"• Getting an overview: \"Show all bin status\"",
	"• Finding assignments: \"Who handles bin3?\"",
	"• Comparing bins: \"Is bin1 fuller than bin2?\"",
	"• Reporting issues: use the Report Issue form (POST /chatbot/report)",
	"",
	"Ask away! I always respond using the latest data in the system.",
}, "\n")
