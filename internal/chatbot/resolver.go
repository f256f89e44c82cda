package chatbot

import (
	"regexp"
	"strings"
)

// Intent names a recognised category of operational question.
type Intent string

const (
	IntentWhoOperates   Intent = "who_operates"
	IntentWhichBins     Intent = "which_bins"
	IntentCount         Intent = "count"
	IntentWhereIs       Intent = "where_is"
	IntentCompare       Intent = "compare"
	IntentCondition     Intent = "bin_condition"
	IntentListOperators Intent = "list_operators"
	IntentExtreme       Intent = "extreme_bin"
	IntentNeedsEmptying Intent = "needs_emptying"
	IntentWeight        Intent = "weight"
	IntentBinStatus     Intent = "bin_status"
	IntentFullAlert     Intent = "full_alert"
	IntentShowAll       Intent = "show_all"
	IntentOverview      Intent = "overview"
)

// Answer is a deterministic response produced from a snapshot.
type Answer struct {
	Intent Intent
	Text   string
}

// operationalKeywords gate the grammar. A message containing none of them is
// never answered from the snapshot.
var operationalKeywords = []string{
	"status", "bin", "full", "empty", "weight", "level", "fill", "operator",
	"assigned", "who", "which", "all bins", "show", "list", "check", "report",
	"issue", "problem",
}

// IsOperational reports whether message contains any operational keyword.
func IsOperational(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range operationalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// rule pairs a predicate with the handler that answers it. match returns the
// captured arguments the handler needs.
type rule struct {
	intent Intent
	match  func(q *query) ([]string, bool)
	answer func(q *query, args []string) string
}

// Resolver answers operational questions from a snapshot. It holds no state
// beyond its immutable rule table and is safe for concurrent use.
type Resolver struct {
	rules []rule
}

// NewResolver returns a resolver with the standard intent table.
func NewResolver() *Resolver {
	return &Resolver{rules: defaultRules()}
}

var defaultResolver = NewResolver()

// Resolve answers message from bins and operators with the standard table.
func Resolve(message string, bins []BinSnapshot, operators []OperatorSnapshot) (Answer, bool) {
	return defaultResolver.Resolve(message, Snapshot{Bins: bins, Operators: operators})
}

// Resolve classifies message and answers it from snap. The boolean is false
// when the message is not operational; the caller should escalate it.
func (r *Resolver) Resolve(message string, snap Snapshot) (Answer, bool) {
	text := normalize(message)
	if text == "" || !IsOperational(text) {
		return Answer{}, false
	}

	q := &query{text: text, view: newView(snap)}
	for _, rl := range r.rules {
		args, ok := rl.match(q)
		if !ok {
			continue
		}
		return Answer{Intent: rl.intent, Text: rl.answer(q, args)}, true
	}

	// Operational but unmatched: fall back to the full listing.
	return Answer{Intent: IntentOverview, Text: q.overview()}, true
}

// Intents lists the rule table in priority order.
func (r *Resolver) Intents() []Intent {
	out := make([]Intent, 0, len(r.rules)+1)
	for _, rl := range r.rules {
		out = append(out, rl.intent)
	}
	return append(out, IntentOverview)
}

var whitespace = regexp.MustCompile(`\s+`)

func normalize(message string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(message), " "))
}

type query struct {
	text string
	*view
}

func (q *query) overview() string {
	return FormatOverview(Snapshot{Bins: q.bins, Operators: q.operators})
}

// view indexes a snapshot for one resolution. It never mutates the slices it wraps.
type view struct {
	bins      []BinSnapshot
	operators []OperatorSnapshot
}

func newView(s Snapshot) *view {
	return &view{bins: s.Bins, operators: s.Operators}
}

func (v *view) findBin(id string) (BinSnapshot, bool) {
	for _, b := range v.bins {
		if strings.EqualFold(b.ID, id) {
			return b, true
		}
	}
	return BinSnapshot{}, false
}

func (v *view) operatorByID(id string) *OperatorSnapshot {
	for i := range v.operators {
		if strings.EqualFold(v.operators[i].ID, id) {
			return &v.operators[i]
		}
	}
	return nil
}

// operatorFor resolves the operator responsible for binID. An operator's own
// assignment list wins; otherwise the bin's operator reference is followed.
// A reference to an operator missing from the snapshot yields a stub named by id.
func (v *view) operatorFor(binID string) *OperatorSnapshot {
	for i := range v.operators {
		for _, id := range v.operators[i].AssignedBinIDs {
			if strings.EqualFold(id, binID) {
				return &v.operators[i]
			}
		}
	}
	b, ok := v.findBin(binID)
	if !ok || b.AssignedOperatorID == "" {
		return nil
	}
	if op := v.operatorByID(b.AssignedOperatorID); op != nil {
		return op
	}
	return &OperatorSnapshot{ID: b.AssignedOperatorID, Name: b.AssignedOperatorID}
}

// binsOf lists the distinct bin ids attributed to op, in assignment order
// followed by snapshot order. Once the snapshot carries bins, assigned ids
// missing from it are skipped.
func (v *view) binsOf(op *OperatorSnapshot) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		key := strings.ToLower(id)
		if id == "" || seen[key] {
			return
		}
		seen[key] = true
		ids = append(ids, id)
	}
	for _, id := range op.AssignedBinIDs {
		if len(v.bins) == 0 {
			add(id)
		} else if b, ok := v.findBin(id); ok {
			add(b.ID)
		}
	}
	for _, b := range v.bins {
		if strings.EqualFold(b.AssignedOperatorID, op.ID) {
			add(b.ID)
		}
	}
	return ids
}
