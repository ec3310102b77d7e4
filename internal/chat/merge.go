package chat

import (
	"sort"
	"strings"
	"time"

	"caredesk-server/internal/metrics"
)

// contentKey is the heuristic correlation key used when no client token is
// available: trimmed text, direction, and the UTC timestamp truncated to
// minute granularity. Two identical texts sent in the same direction within
// the same minute collide; see DESIGN.md for the token-based strengthening.
func contentKey(m Message) string {
	minute := ParseTimestamp(m.Timestamp).UTC().Truncate(time.Minute).Format("2006-01-02T15:04")
	return strings.TrimSpace(m.Text) + "|" + string(m.Direction) + "|" + minute
}

// Merge folds a batch of authoritative records into the locally held list.
// The operation is purely additive with respect to user-visible state: no
// local message is ever dropped except through the explicit replacement of a
// temporary entry by its confirmed counterpart.
//
// Matching order per incoming record:
//  1. ids already present locally are dropped as pure duplicates
//  2. an echoed client token joins the record exactly to its temp message
//  3. a content-key match against a confirmed local message drops the record
//  4. a content-key match against a temp local message replaces it in place
//  5. everything else is appended as genuinely new
//
// The result is deduplicated by id a second time (the replacement in step 4
// can collide with an already-present confirmed id) and sorted ascending by
// normalized timestamp.
func Merge(local []Message, incoming []Message) []Message {
	merged := make([]Message, len(local))
	copy(merged, local)

	existingIDs := make(map[string]struct{}, len(merged))
	confirmedKeys := make(map[string]struct{}, len(merged))
	tempByToken := make(map[string]int)
	tempByKey := make(map[string]int)
	for i, m := range merged {
		existingIDs[m.ID] = struct{}{}
		if IsTempID(m.ID) {
			if tok := m.ClientToken(); tok != "" {
				tempByToken[tok] = i
			}
			key := contentKey(m)
			if _, ok := tempByKey[key]; !ok {
				tempByKey[key] = i
			}
		} else {
			confirmedKeys[contentKey(m)] = struct{}{}
		}
	}

	replaceAt := func(idx int, in Message) {
		merged[idx] = in
		existingIDs[in.ID] = struct{}{}
		confirmedKeys[contentKey(in)] = struct{}{}
	}

	for _, in := range incoming {
		in.Timestamp = NormalizeTimestamp(in.Timestamp)
		if _, ok := existingIDs[in.ID]; ok {
			continue
		}
		if tok := in.ClientToken(); tok != "" {
			if idx, ok := tempByToken[tok]; ok && IsTempID(merged[idx].ID) {
				replaceAt(idx, in)
				continue
			}
		}
		key := contentKey(in)
		if _, ok := confirmedKeys[key]; ok {
			continue
		}
		if idx, ok := tempByKey[key]; ok && IsTempID(merged[idx].ID) {
			replaceAt(idx, in)
			continue
		}
		merged = append(merged, in)
		existingIDs[in.ID] = struct{}{}
		confirmedKeys[key] = struct{}{}
	}

	merged = dedupeByID(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return ParseTimestamp(merged[i].Timestamp).Before(ParseTimestamp(merged[j].Timestamp))
	})
	metrics.EventMerges.Inc()
	return merged
}

// dedupeByID keeps the first occurrence of each id.
func dedupeByID(msgs []Message) []Message {
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
