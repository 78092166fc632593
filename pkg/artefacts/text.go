package artefacts

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var listSplitPattern = regexp.MustCompile(`[,;\n]+`)

// NormalizeList splits a free-text field into a deduplicated, order-
// preserving list of trimmed, non-empty items, capped at maxItems.
func NormalizeList(text string, maxItems int) []string {
	if maxItems <= 0 {
		maxItems = 25
	}
	parts := listSplitPattern.Split(strings.TrimSpace(text), -1)
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
		if len(out) >= maxItems {
			break
		}
	}
	return out
}

// ShortList joins lines for display, truncating with a "+N more" suffix
// once the line count exceeds limit.
func ShortList(lines []string, limit int) string {
	if len(lines) == 0 {
		return "-"
	}
	if limit <= 0 {
		limit = 50
	}
	if len(lines) <= limit {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:limit], "\n") + fmt.Sprintf("\n... +%d more", len(lines)-limit)
}

// ResolveDisplayNames turns user ids into a deduplicated, casefold-sorted
// "• name" list: the C1 username store is consulted first, the platform's
// live guild member list is the fallback, and a user who appears in neither
// renders as "User <id>" rather than being dropped.
func ResolveDisplayNames(userIDs []uint64, storeUsernames, guildMembers map[uint64]string, limit int) string {
	if len(userIDs) == 0 {
		return "—"
	}
	sorted := append([]uint64(nil), userIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	seen := make(map[string]bool, len(sorted))
	labels := make([]string, 0, len(sorted))
	for _, id := range sorted {
		label := storeUsernames[id]
		if label == "" {
			label = guildMembers[id]
		}
		if label == "" {
			label = fmt.Sprintf("User %d", id)
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return strings.ToLower(labels[i]) < strings.ToLower(labels[j]) })

	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = "• " + l
	}
	return ShortList(lines, limit)
}

// PayloadHash returns the stable fingerprint the orchestrator compares
// against the artefact cache to decide whether a repost is needed.
func PayloadHash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}
