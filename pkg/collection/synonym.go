package collection

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
)

// Synonym is one synonym rule for a collection (spec.md §2's load protocol,
// §6's enable_synonyms/synonym_prefix/synonym_num_typos parameters),
// persisted under $SY_<len(collection)>_<collection>_<id>. Root unset means a multi-way set:
// any term in Synonyms expands to every other term in the set. Root set
// means a one-way rule: Root appearing in the query expands to every term
// in Synonyms.
type Synonym struct {
	ID       string   `json:"id"`
	Root     string   `json:"root,omitempty"`
	Synonyms []string `json:"synonyms"`
}

// UpsertSynonym saves or replaces the synonym rule named s.ID for
// collection.
func (m *Manager) UpsertSynonym(collection string, s Synonym) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return glinterr.Fatal(err, "marshal synonym %q", s.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(synonymKey(collection, s.ID), raw); err != nil {
		return glinterr.Fatal(err, "persist synonym %q", s.ID)
	}
	m.synonyms[collection] = upsertSynonymList(m.synonyms[collection], s)
	return nil
}

// DropSynonym removes a saved synonym rule.
func (m *Manager) DropSynonym(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(synonymKey(collection, id)); err != nil {
		return glinterr.Fatal(err, "drop synonym %q", id)
	}
	list := m.synonyms[collection]
	for i, s := range list {
		if s.ID == id {
			m.synonyms[collection] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// ListSynonyms returns every synonym rule saved for collection.
func (m *Manager) ListSynonyms(collection string) []Synonym {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Synonym, len(m.synonyms[collection]))
	copy(out, m.synonyms[collection])
	return out
}

func upsertSynonymList(list []Synonym, s Synonym) []Synonym {
	for i, existing := range list {
		if existing.ID == s.ID {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}

// synonymKey builds $SY_<len(collection)>_<collection>_<id>, matching
// overrideKey's length-prefixed layout so a collection name containing an
// underscore can't be confused with the id suffix when parsed back apart.
func synonymKey(collection, id string) []byte {
	prefix := append([]byte{}, kv.PrefixSynonymSet...)
	prefix = append(prefix, strconv.Itoa(len(collection))...)
	prefix = append(prefix, '_')
	prefix = append(prefix, collection...)
	prefix = append(prefix, '_')
	prefix = append(prefix, id...)
	return prefix
}

func (m *Manager) loadSynonymsLocked() error {
	it, err := m.store.Scan(kv.PrefixSynonymSet, kv.PrefixUpperBound(kv.PrefixSynonymSet))
	if err != nil {
		return glinterr.Fatal(err, "scan synonyms")
	}
	defer it.Close()

	m.synonyms = make(map[string][]Synonym)
	for it.Next() {
		if !it.Valid() {
			break
		}
		rest := it.Key()[len(kv.PrefixSynonymSet):]
		sep := indexByte(rest, '_')
		if sep < 0 {
			continue
		}
		n, err := strconv.Atoi(string(rest[:sep]))
		if err != nil || sep+1+n+1 > len(rest) {
			continue
		}
		collection := string(rest[sep+1 : sep+1+n])

		var s Synonym
		if err := json.Unmarshal(it.Value(), &s); err != nil {
			continue
		}
		m.synonyms[collection] = append(m.synonyms[collection], s)
	}
	return nil
}

// expandSynonyms appends every synonym alternative triggered by a term
// already present in q to q itself, so the normal token-matching pipeline
// treats the original and expanded phrasing as equally matchable
// alternatives. prefix allows a trigger term to match a prefix of a query
// token (synonym_prefix); numTypos allows it to match within that many
// character edits (synonym_num_typos), both applied to every query token
// whatever its length.
func expandSynonyms(q string, rules []Synonym, prefix bool, numTypos int) string {
	if len(rules) == 0 || strings.TrimSpace(q) == "" {
		return q
	}
	tokens := strings.Fields(strings.ToLower(q))
	var extra []string
	for _, rule := range rules {
		if rule.Root != "" {
			if synonymTermTriggered(tokens, rule.Root, prefix, numTypos) {
				extra = append(extra, rule.Synonyms...)
			}
			continue
		}
		for i, term := range rule.Synonyms {
			if !synonymTermTriggered(tokens, term, prefix, numTypos) {
				continue
			}
			for j, other := range rule.Synonyms {
				if j != i {
					extra = append(extra, other)
				}
			}
		}
	}
	if len(extra) == 0 {
		return q
	}
	return q + " " + strings.Join(extra, " ")
}

// synonymTermTriggered reports whether term (a single word or a space-joined
// phrase) is present among tokens, honoring prefix and typo-distance slack.
func synonymTermTriggered(tokens []string, term string, prefix bool, numTypos int) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	words := strings.Fields(term)
	if len(words) > 1 {
		return strings.Contains(strings.Join(tokens, " "), term)
	}
	for _, tok := range tokens {
		if tok == term {
			return true
		}
		if prefix && strings.HasPrefix(tok, term) {
			return true
		}
		if numTypos > 0 && synonymEditDistance(tok, term, numTypos) <= numTypos {
			return true
		}
	}
	return false
}

// synonymEditDistance is a small standalone Levenshtein distance, capped at
// maxDist+1, so synonym trigger matching doesn't need to import pkg/query's
// unexported typo-matching internals for this one comparison.
func synonymEditDistance(a, b string, maxDist int) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if abs(la-lb) > maxDist {
		return maxDist + 1
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
