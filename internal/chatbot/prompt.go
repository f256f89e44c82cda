package chatbot

import (
	"fmt"
	"strings"
)

// promptHistoryTurns is how many recent turns are quoted in a generation prompt.
const promptHistoryTurns = 4

// SystemContext describes the snapshot for a text generator.
func SystemContext(snap Snapshot) string {
	if len(snap.Bins) == 0 && len(snap.Operators) == 0 {
		return "No system data available at the moment."
	}

	v := newView(snap)
	var sb strings.Builder

	sb.WriteString("📊 BIN STATUS:\n")
	if len(snap.Bins) == 0 {
		sb.WriteString("- No bins currently in the system.\n")
	}
	counts := map[string]int{}
	for _, b := range snap.Bins {
		tier := Tier(b)
		counts[tier]++
		operator := placeholderUnassigned
		if op := v.operatorFor(b.ID); op != nil {
			operator = op.Name
		}
		fmt.Fprintf(&sb, "- %s %s: %s full, %s, Status: %s, Location: %s, Assigned to: %s\n",
			tierEmoji(tier), displayName(b), FormatPercent(b.FillPercent), FormatWeight(b.WeightKg),
			statusOf(b), locationOf(b), operator)
	}

	sb.WriteString("\n👷 OPERATORS:\n")
	if len(snap.Operators) == 0 {
		sb.WriteString("- No operators currently assigned.\n")
	}
	for i := range snap.Operators {
		op := &snap.Operators[i]
		ids := v.binsOf(op)
		assigned := "none"
		if len(ids) > 0 {
			assigned = strings.Join(ids, ", ")
		}
		fmt.Fprintf(&sb, "- %s: Assigned to %s\n", op.Name, assigned)
	}

	fmt.Fprintf(&sb, "\nSYSTEM STATISTICS:\n- Total Bins: %d\n- Critical (80%%+): %d\n- Warning (60-<80%%): %d\n- Normal (<60%%): %d\n",
		len(snap.Bins), counts[TierCritical], counts[TierWarning], counts[TierNormal])

	return sb.String()
}

// BuildPrompt assembles the generation prompt from the snapshot, the recent
// conversation and the user's question.
func BuildPrompt(snap Snapshot, history []Turn, message string) string {
	if len(history) > promptHistoryTurns {
		history = history[len(history)-promptHistoryTurns:]
	}
	turns := make([]string, 0, len(history))
	for _, t := range history {
		turns = append(turns, fmt.Sprintf("%s: %s", t.Role, t.Message))
	}

	return fmt.Sprintf(`You are a helpful AI assistant for the AISWO Smart Bin Monitoring System.
You help employees and operators with bin status, reporting issues, system support, and environmental best practices.

CURRENT SYSTEM STATUS:
%s
CONVERSATION HISTORY:
%s

USER QUESTION: %s

INSTRUCTIONS:
- Be helpful, friendly, and concise.
- If asked about bin status, use the system data provided above.
- If asked about waste management, recycling, segregation, or composting, give practical, evidence-based guidance.
- Fill levels of 80%% or more are critical, 60%% up to 80%% is a warning, below 60%% is normal.
- Keep responses under 120 words unless a detailed explanation is truly needed.
- If you are unsure or data is missing, say so honestly and suggest the next best action.

RESPONSE:`, SystemContext(snap), strings.Join(turns, "\n"), message)
}
