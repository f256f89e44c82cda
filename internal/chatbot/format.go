package chatbot

import (
	"fmt"
	"strings"
	"time"
)

// Fill thresholds. Tiers, "full", "available" and "empty" each have their own
// constant even where two values coincide.
const (
	// CriticalTier and WarningTier bucket bins into Critical / Warning / Normal
	// for every listing, overview and status card.
	CriticalTier = 80.0
	WarningTier  = 60.0

	// FullThreshold is used by "is bin N full", the full-bins count and the
	// attention lists. Inclusive.
	FullThreshold = 80.0
	// AvailableThreshold is used by "is bin N available". Exclusive.
	AvailableThreshold = 50.0
	// EmptyThreshold is used by "is bin N empty" and the empty-bins count. Exclusive.
	EmptyThreshold = 20.0
)

// Tier labels.
const (
	TierCritical = "Critical"
	TierWarning  = "Warning"
	TierNormal   = "Normal"
)

// Placeholders for absent optional fields.
const (
	placeholderNA         = "N/A"
	placeholderLocation   = "No location"
	placeholderStatus     = "Unknown"
	placeholderUnassigned = "Unassigned"
)

// Tier buckets a bin by its fill reading (absent readings count as 0).
func Tier(b BinSnapshot) string {
	fill := b.fill()
	switch {
	case fill >= CriticalTier:
		return TierCritical
	case fill >= WarningTier:
		return TierWarning
	default:
		return TierNormal
	}
}

func tierEmoji(tier string) string {
	switch tier {
	case TierCritical:
		return "🔴"
	case TierWarning:
		return "⚠️"
	default:
		return "✅"
	}
}

// FormatPercent renders a fill reading with one decimal, or N/A when absent.
func FormatPercent(p *float64) string {
	if p == nil {
		return placeholderNA
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// FormatWeight renders a weight with two decimals and the kg unit, or N/A when absent.
func FormatWeight(w *float64) string {
	if w == nil {
		return placeholderNA
	}
	return fmt.Sprintf("%.2f kg", *w)
}

func locationOf(b BinSnapshot) string {
	if strings.TrimSpace(b.Location) == "" {
		return placeholderLocation
	}
	return b.Location
}

func statusOf(b BinSnapshot) string {
	if strings.TrimSpace(b.Status) == "" {
		return placeholderStatus
	}
	return b.Status
}

func displayName(b BinSnapshot) string {
	label := b.Label()
	if strings.EqualFold(label, b.ID) {
		return b.ID
	}
	return fmt.Sprintf("%s (%s)", b.ID, label)
}

// FormatSingleBinStatus renders the full status card for one bin.
// op may be nil when no operator is assigned.
func FormatSingleBinStatus(b BinSnapshot, op *OperatorSnapshot) string {
	condition := statusOf(b)
	if b.FillPercent != nil {
		condition = fmt.Sprintf("%s (%s)", condition, Tier(b))
	}

	operator := placeholderUnassigned
	if op != nil {
		operator = op.Name
	}

	blocked := "No"
	if b.IsBlocked {
		blocked = "Yes"
	}

	updated := placeholderNA
	if b.UpdatedAt != nil {
		updated = b.UpdatedAt.UTC().Format(time.RFC3339)
	}

	lines := []string{
		fmt.Sprintf("🗑️ Status for %s:", b.ID),
		fmt.Sprintf("• Name: %s", b.Label()),
		fmt.Sprintf("• Fill Level: %s", FormatPercent(b.FillPercent)),
		fmt.Sprintf("• Weight: %s", FormatWeight(b.WeightKg)),
		fmt.Sprintf("• Condition: %s", condition),
		fmt.Sprintf("• Location: %s", locationOf(b)),
		fmt.Sprintf("• Operator: %s", operator),
		fmt.Sprintf("• Blocked: %s", blocked),
		fmt.Sprintf("• Updated: %s", updated),
	}
	return strings.Join(lines, "\n")
}

// FormatOverview renders the status listing for every bin in the snapshot,
// headed by the tier counts.
func FormatOverview(snap Snapshot) string {
	if len(snap.Bins) == 0 {
		return "🗑️ No bins found in the system right now."
	}

	counts := map[string]int{}
	for _, b := range snap.Bins {
		counts[Tier(b)]++
	}

	lines := []string{
		fmt.Sprintf("📊 Bin status overview (%d total):", len(snap.Bins)),
		fmt.Sprintf("• Critical (80%%+): %d", counts[TierCritical]),
		fmt.Sprintf("• Warning (60-<80%%): %d", counts[TierWarning]),
		fmt.Sprintf("• Normal (<60%%): %d", counts[TierNormal]),
		"",
	}
	for _, b := range snap.Bins {
		tier := Tier(b)
		lines = append(lines, fmt.Sprintf("%s %s – %s full, %s, %s (%s)",
			tierEmoji(tier), displayName(b), FormatPercent(b.FillPercent),
			FormatWeight(b.WeightKg), tier, locationOf(b)))
	}
	if counts[TierCritical] == 0 && counts[TierWarning] == 0 {
		lines = append(lines, "", "✅ All bins are within safe limits right now.")
	}
	return strings.Join(lines, "\n")
}

// FormatAttentionList renders the bins at or above FullThreshold, annotated
// with their operator when one is assigned.
func FormatAttentionList(snap Snapshot) string {
	return newView(snap).attentionList()
}

func (v *view) attentionList() string {
	var lines []string
	for _, b := range v.bins {
		if b.fill() < FullThreshold {
			continue
		}
		line := fmt.Sprintf("• %s – %s (%s)", displayName(b), FormatPercent(b.FillPercent), locationOf(b))
		if op := v.operatorFor(b.ID); op != nil {
			line += fmt.Sprintf(" – operator: %s", op.Name)
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return "✅ Great news! No bins are full right now. All bins are below 80% capacity."
	}
	header := fmt.Sprintf("⚠️ Bins needing attention (%d):", len(lines))
	return strings.Join(append([]string{header}, lines...), "\n")
}

// FormatOperatorRoster renders one line per distinct operator with its bin count.
func FormatOperatorRoster(snap Snapshot) string {
	return newView(snap).operatorRoster()
}

func (v *view) operatorRoster() string {
	seen := map[string]bool{}
	var lines []string
	for i := range v.operators {
		op := &v.operators[i]
		key := strings.ToLower(op.ID)
		if seen[key] {
			continue
		}
		seen[key] = true

		ids := v.binsOf(op)
		line := fmt.Sprintf("• %s (%s) – %d %s", op.Name, op.ID, len(ids), plural(len(ids), "bin", "bins"))
		if len(ids) > 0 {
			line += ": " + strings.Join(ids, ", ")
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return "👷 No operators are registered right now."
	}
	header := fmt.Sprintf("👷 Operators (%d):", len(lines))
	return strings.Join(append([]string{header}, lines...), "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
