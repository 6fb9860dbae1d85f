package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grandlucky-quiz-service/internal/domain"
)

// NormalizeReport counts what Normalize did with a batch.
type NormalizeReport struct {
	Dropped int
	// OneBased lists records whose correct index was read as 1-based. These
	// point at inconsistent upstream data.
	OneBased []string
}

// Normalize turns raw store rows into selection candidates. Malformed rows
// are dropped; an empty result is valid.
func Normalize(raw []domain.Question) ([]domain.PoolQuestion, NormalizeReport) {
	var report NormalizeReport
	out := make([]domain.PoolQuestion, 0, len(raw))
	for _, q := range raw {
		pq, oneBased, ok := normalizeOne(q)
		if !ok {
			report.Dropped++
			continue
		}
		if oneBased {
			report.OneBased = append(report.OneBased, q.ID)
		}
		out = append(out, pq)
	}
	deduped := DedupeByPrompt(out)
	report.Dropped += len(out) - len(deduped)
	return deduped, report
}

func normalizeOne(q domain.Question) (domain.PoolQuestion, bool, bool) {
	prompt := strings.TrimSpace(q.Prompt)
	if prompt == "" {
		return domain.PoolQuestion{}, false, false
	}

	unique := uniqueChoices(parseChoices(q.Choices))
	if len(unique) < 3 {
		return domain.PoolQuestion{}, false, false
	}

	idx, oneBased, ok := resolveCorrectIndex(q.CorrectIndex)
	if !ok || idx >= len(unique) {
		return domain.PoolQuestion{}, false, false
	}

	wrong := make([]string, 0, len(unique)-1)
	for i, c := range unique {
		if i != idx {
			wrong = append(wrong, c)
		}
	}
	if len(wrong) < 2 {
		return domain.PoolQuestion{}, false, false
	}

	return domain.PoolQuestion{
		ID:           q.ID,
		Lang:         q.Lang,
		Topic:        strings.TrimSpace(q.Topic),
		Prompt:       prompt,
		CorrectValue: unique[idx],
		WrongPool:    wrong,
	}, oneBased, true
}

// parseChoices accepts a JSON array, a JSON string holding a JSON array, or
// anything else, which becomes a single choice.
func parseChoices(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if list, ok := decodeChoiceList(raw); ok {
		return list
	}
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		if list, ok := decodeChoiceList(strings.TrimSpace(inner)); ok {
			return list
		}
		return []string{inner}
	}
	return []string{raw}
}

func decodeChoiceList(raw string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out, true
}

// uniqueChoices trims, drops empties and removes case-insensitive repeats,
// keeping the first spelling.
func uniqueChoices(choices []string) []string {
	seen := make(map[string]struct{}, len(choices))
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := foldKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// resolveCorrectIndex reads 0 as 0-based and any positive i as 1-based.
func resolveCorrectIndex(raw string) (idx int, oneBased bool, ok bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" {
		return 0, false, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false, false
		}
		n = int(f)
	}
	switch {
	case n < 0:
		return 0, false, false
	case n == 0:
		return 0, false, true
	default:
		return n - 1, true, true
	}
}

// DedupeByPrompt keeps the first question for each case-insensitive prompt.
func DedupeByPrompt(pool []domain.PoolQuestion) []domain.PoolQuestion {
	seen := make(map[string]struct{}, len(pool))
	out := make([]domain.PoolQuestion, 0, len(pool))
	for _, q := range pool {
		key := foldKey(q.Prompt)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sameValue(a, b string) bool {
	return foldKey(a) == foldKey(b)
}
