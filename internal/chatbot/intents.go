package chatbot

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	binRefRe      = regexp.MustCompile(`\bbin\s?(\d+)\b`)
	pluralBinsRe  = regexp.MustCompile(`\bbins\b`)
	whoOperatesRe = regexp.MustCompile(`\bwho\s+(?:is\s+)?(?:operating|operates|assigned\s+to|manages|managing|handles|handling|responsible\s+for)\s+(?:the\s+)?bin\s?(\d+)\b`)
	whichBinsRe   = regexp.MustCompile(`\b(?:which|what)\s+bins?\s+(?:is|does|do|are)\s+(.+?)\s+(?:operating|operates|operate|managing|manages|manage|handling|handles|handle|assigned|responsible)\b`)
	whichBinsToRe = regexp.MustCompile(`\b(?:which|what)\s+bins?\s+(?:is|are)\s+(?:assigned\s+to|handled\s+by|managed\s+by|operated\s+by)\s+(.+?)\s*[?.!]*$`)
	howManyRe     = regexp.MustCompile(`\bhow\s+many\s+bins?\b`)
	countFullRe   = regexp.MustCompile(`\b(?:full|needs?\s+emptying|needs?\s+to\s+be\s+emptied)\b`)
	countEmptyRe  = regexp.MustCompile(`\b(?:empty|available|free)\b`)
	countAssignRe = regexp.MustCompile(`\b(?:assigned|unassigned|operators?)\b`)
	whereIsRe     = regexp.MustCompile(`\bwhere\s+is\s+(?:the\s+)?bin\s?(\d+)\b`)
	compareRe     = regexp.MustCompile(`\bis\s+(?:the\s+)?bin\s?(\d+)\s+(fuller|emptier|heavier|lighter)\s+than\s+(?:the\s+)?bin\s?(\d+)\b`)
	conditionRe   = regexp.MustCompile(`\bis\s+(?:the\s+)?bin\s?(\d+)\s+(full|empty|available|blocked)\b`)
	listOpsRe     = regexp.MustCompile(`\b(?:(?:list|show)(?:\s+me)?\s+(?:all\s+)?(?:the\s+)?operators|who\s+are\s+(?:all\s+)?(?:the\s+)?operators)\b`)
	extremeRe     = regexp.MustCompile(`\b(fullest|emptiest)\b`)
	needsRe       = regexp.MustCompile(`\b(?:which|what)\s+bins?\s+(?:needs?|requires?)\s+(?:emptying|attention|collection|collecting)\b`)
	weightRe      = regexp.MustCompile(`\b(?:weight|weigh|weighs|weighing|heavy|kg|kilos?|kilograms?)\b`)
	fullAlertRe   = regexp.MustCompile(`\bfull\s+bins\b|\balerts?\b`)
	showAllRe     = regexp.MustCompile(`\ball\b|\bmy\s+bins\b|\bwhat\s+bins\b|\bstatus\b`)
)

// defaultRules is the intent table in priority order; the first match wins.
func defaultRules() []rule {
	return []rule{
		{intent: IntentWhoOperates, match: submatch(whoOperatesRe), answer: answerWhoOperates},
		{intent: IntentWhichBins, match: matchWhichBins, answer: answerWhichBins},
		{intent: IntentCount, match: matchCount, answer: answerCount},
		{intent: IntentWhereIs, match: submatch(whereIsRe), answer: answerWhereIs},
		{intent: IntentCompare, match: submatch(compareRe), answer: answerCompare},
		{intent: IntentCondition, match: submatch(conditionRe), answer: answerCondition},
		{intent: IntentListOperators, match: submatch(listOpsRe), answer: answerListOperators},
		{intent: IntentExtreme, match: matchExtreme, answer: answerExtreme},
		{intent: IntentNeedsEmptying, match: submatch(needsRe), answer: answerAttention},
		{intent: IntentWeight, match: matchWeight, answer: answerWeight},
		{intent: IntentBinStatus, match: matchSingleBin, answer: answerBinStatus},
		{intent: IntentFullAlert, match: submatch(fullAlertRe), answer: answerAttention},
		{intent: IntentShowAll, match: submatch(showAllRe), answer: answerOverview},
	}
}

// submatch adapts a regexp into a rule predicate returning its capture groups.
func submatch(re *regexp.Regexp) func(q *query) ([]string, bool) {
	return func(q *query) ([]string, bool) {
		m := re.FindStringSubmatch(q.text)
		if m == nil {
			return nil, false
		}
		return m[1:], true
	}
}

func binID(n string) string {
	return "bin" + n
}

func notFound(id string) string {
	return fmt.Sprintf("❓ I couldn't find %s in the system. Please make sure it's registered.", id)
}

func answerWhoOperates(q *query, args []string) string {
	id := binID(args[0])
	// Without any bin readings the assignment lists are the only record.
	b, exists := q.findBin(id)
	switch {
	case exists:
		id = b.ID
	case len(q.bins) > 0:
		return notFound(id)
	}

	if op := q.operatorFor(id); op != nil {
		email := op.Email
		if email == "" {
			email = placeholderNA
		}
		return fmt.Sprintf("👷 %s (%s) handles %s. Contact: %s.", op.Name, op.ID, id, email)
	}
	if !exists {
		return notFound(id)
	}
	return fmt.Sprintf("👷 %s has no operator assigned yet.", id)
}

func matchWhichBins(q *query) ([]string, bool) {
	if args, ok := submatch(whichBinsRe)(q); ok {
		return args, true
	}
	return submatch(whichBinsToRe)(q)
}

func answerWhichBins(q *query, args []string) string {
	name := strings.TrimSpace(strings.TrimPrefix(args[0], "the "))

	var matched []*OperatorSnapshot
	for i := range q.operators {
		if strings.Contains(strings.ToLower(q.operators[i].Name), name) {
			matched = append(matched, &q.operators[i])
		}
	}
	if len(matched) == 0 {
		return fmt.Sprintf("❓ I couldn't find an operator named %q.", name)
	}

	who := name
	if len(matched) == 1 {
		who = matched[0].Name
	}

	var lines []string
	for _, b := range q.bins {
		op := q.operatorFor(b.ID)
		if op == nil || !strings.Contains(strings.ToLower(op.Name), name) {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s – %s full, %s (%s)",
			displayName(b), FormatPercent(b.FillPercent), FormatWeight(b.WeightKg), Tier(b)))
	}
	if len(lines) == 0 {
		return fmt.Sprintf("👷 %s has no bins assigned right now.", who)
	}
	header := fmt.Sprintf("👷 Bins handled by %s (%d):", who, len(lines))
	return strings.Join(append([]string{header}, lines...), "\n")
}

func matchCount(q *query) ([]string, bool) {
	if !howManyRe.MatchString(q.text) {
		return nil, false
	}
	switch {
	case countFullRe.MatchString(q.text):
		return []string{"full"}, true
	case countEmptyRe.MatchString(q.text):
		return []string{"empty"}, true
	case countAssignRe.MatchString(q.text):
		return []string{"assigned"}, true
	default:
		return []string{"total"}, true
	}
}

func answerCount(q *query, args []string) string {
	total := len(q.bins)
	switch args[0] {
	case "full":
		n := 0
		for _, b := range q.bins {
			if b.fill() >= FullThreshold {
				n++
			}
		}
		return fmt.Sprintf("📊 %d of %d bins are full (80%%+ capacity).", n, total)
	case "empty":
		n := 0
		for _, b := range q.bins {
			if b.fill() < EmptyThreshold {
				n++
			}
		}
		return fmt.Sprintf("📊 %d of %d bins are empty (below 20%% capacity).", n, total)
	case "assigned":
		assigned := 0
		for _, b := range q.bins {
			if q.operatorFor(b.ID) != nil {
				assigned++
			}
		}
		return fmt.Sprintf("📊 %d bins are assigned to an operator and %d are unassigned (%d total).",
			assigned, total-assigned, total)
	default:
		return fmt.Sprintf("📊 There are %d bins in the system.", total)
	}
}

func answerWhereIs(q *query, args []string) string {
	id := binID(args[0])
	b, ok := q.findBin(id)
	if !ok {
		return notFound(id)
	}
	if strings.TrimSpace(b.Location) == "" {
		return fmt.Sprintf("📍 The location of %s is not specified.", b.ID)
	}
	return fmt.Sprintf("📍 %s is located at %s.", b.ID, b.Location)
}

func answerCompare(q *query, args []string) string {
	idA, relation, idB := binID(args[0]), args[1], binID(args[2])
	a, okA := q.findBin(idA)
	b, okB := q.findBin(idB)
	switch {
	case !okA && !okB:
		return fmt.Sprintf("❓ I couldn't find %s or %s in the system.", idA, idB)
	case !okA:
		return notFound(idA)
	case !okB:
		return notFound(idB)
	}

	var (
		va, vb     float64
		shownA     string
		shownB     string
		sameAdjust string
		yes        bool
	)
	switch relation {
	case "fuller", "emptier":
		va, vb = a.fill(), b.fill()
		shownA, shownB = FormatPercent(a.FillPercent), FormatPercent(b.FillPercent)
		sameAdjust = "equally full"
	default:
		va, vb = a.weight(), b.weight()
		shownA, shownB = FormatWeight(a.WeightKg), FormatWeight(b.WeightKg)
		sameAdjust = "equally heavy"
	}

	if va == vb {
		return fmt.Sprintf("⚖️ %s and %s are %s (%s).", a.ID, b.ID, sameAdjust, shownA)
	}

	switch relation {
	case "fuller", "heavier":
		yes = va > vb
	default:
		yes = va < vb
	}
	if yes {
		return fmt.Sprintf("✅ Yes, %s (%s) is %s than %s (%s).", a.ID, shownA, relation, b.ID, shownB)
	}
	return fmt.Sprintf("❌ No, %s (%s) is not %s than %s (%s).", a.ID, shownA, relation, b.ID, shownB)
}

func answerCondition(q *query, args []string) string {
	id, condition := binID(args[0]), args[1]
	b, ok := q.findBin(id)
	if !ok {
		return notFound(id)
	}

	var yes bool
	switch condition {
	case "full":
		yes = b.fill() >= FullThreshold
	case "empty":
		yes = b.fill() < EmptyThreshold
	case "available":
		yes = b.fill() < AvailableThreshold
	case "blocked":
		if b.IsBlocked {
			return fmt.Sprintf("🚫 Yes, %s is blocked.", b.ID)
		}
		return fmt.Sprintf("✅ No, %s is not blocked.", b.ID)
	}

	pct := FormatPercent(b.FillPercent)
	if yes {
		return fmt.Sprintf("%s Yes, %s is %s (%s capacity).", tierEmoji(Tier(b)), b.ID, condition, pct)
	}
	return fmt.Sprintf("%s No, %s is not %s (%s capacity).", tierEmoji(Tier(b)), b.ID, condition, pct)
}

func answerListOperators(q *query, _ []string) string {
	return q.operatorRoster()
}

func matchExtreme(q *query) ([]string, bool) {
	if pluralBinsRe.MatchString(q.text) {
		return nil, false
	}
	m := extremeRe.FindStringSubmatch(q.text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// answerExtreme reports the first bin holding the maximum (fullest) or
// minimum (emptiest) fill reading, so ties keep snapshot order.
func answerExtreme(q *query, args []string) string {
	if len(q.bins) == 0 {
		return "🗑️ No bins found in the system right now."
	}

	best := q.bins[0]
	for _, b := range q.bins[1:] {
		if args[0] == "fullest" && b.fill() > best.fill() {
			best = b
		}
		if args[0] == "emptiest" && b.fill() < best.fill() {
			best = b
		}
	}
	return fmt.Sprintf("%s The %s bin is %s at %s (%s, %s).",
		tierEmoji(Tier(best)), args[0], displayName(best), FormatPercent(best.FillPercent),
		FormatWeight(best.WeightKg), locationOf(best))
}

func answerAttention(q *query, _ []string) string {
	return q.attentionList()
}

func matchWeight(q *query) ([]string, bool) {
	if !weightRe.MatchString(q.text) {
		return nil, false
	}
	m := binRefRe.FindStringSubmatch(q.text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

func answerWeight(q *query, args []string) string {
	id := binID(args[0])
	b, ok := q.findBin(id)
	if !ok {
		return notFound(id)
	}
	return fmt.Sprintf("⚖️ %s weighs %s and is %s full.", b.ID, FormatWeight(b.WeightKg), FormatPercent(b.FillPercent))
}

func matchSingleBin(q *query) ([]string, bool) {
	if pluralBinsRe.MatchString(q.text) {
		return nil, false
	}
	m := binRefRe.FindStringSubmatch(q.text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

func answerBinStatus(q *query, args []string) string {
	id := binID(args[0])
	b, ok := q.findBin(id)
	if !ok {
		return fmt.Sprintf("❓ I don't have live data for %s right now. Please make sure it's registered in the system.", id)
	}
	return FormatSingleBinStatus(b, q.operatorFor(b.ID))
}

func answerOverview(q *query, _ []string) string {
	return q.overview()
}
