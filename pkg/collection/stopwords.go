package collection

import (
	"encoding/json"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
)

// UpsertStopwords persists a named stopword set under $SW_<name> (spec.md
// §6), usable by any search that names it via the `stopwords` parameter.
func (m *Manager) UpsertStopwords(name string, words []string) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return glinterr.Fatal(err, "marshal stopwords %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(kv.CollectionKey(kv.PrefixStopwords, name), raw); err != nil {
		return glinterr.Fatal(err, "persist stopwords %q", name)
	}
	if m.stopwords == nil {
		m.stopwords = make(map[string][]string)
	}
	m.stopwords[name] = words
	return nil
}

// GetStopwords returns the named stopword list, or NotFound.
func (m *Manager) GetStopwords(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	words, ok := m.stopwords[name]
	if !ok {
		return nil, glinterr.NotFound("stopwords", "stopword set %q not found", name)
	}
	return words, nil
}

// DropStopwords removes a saved stopword set.
func (m *Manager) DropStopwords(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stopwords[name]; !ok {
		return glinterr.NotFound("stopwords", "stopword set %q not found", name)
	}
	if err := m.store.Delete(kv.CollectionKey(kv.PrefixStopwords, name)); err != nil {
		return glinterr.Fatal(err, "drop stopwords %q", name)
	}
	delete(m.stopwords, name)
	return nil
}

func (m *Manager) loadStopwordsLocked() error {
	it, err := m.store.Scan(kv.PrefixStopwords, kv.PrefixUpperBound(kv.PrefixStopwords))
	if err != nil {
		return glinterr.Fatal(err, "scan stopwords")
	}
	defer it.Close()

	m.stopwords = make(map[string][]string)
	for it.Next() {
		if !it.Valid() {
			break
		}
		name := string(it.Key()[len(kv.PrefixStopwords):])
		var words []string
		if err := json.Unmarshal(it.Value(), &words); err != nil {
			continue
		}
		m.stopwords[name] = words
	}
	return nil
}

// stripStopwords removes the named stopword list's entries from q,
// token-for-token and case-insensitively, leaving the surrounding
// whitespace-joined query intact for tokenizeQuery to re-split.
func stripStopwords(q string, words []string) string {
	if len(words) == 0 {
		return q
	}
	drop := make(map[string]bool, len(words))
	for _, w := range words {
		drop[strings.ToLower(w)] = true
	}
	fields := strings.Fields(q)
	kept := fields[:0:0]
	for _, f := range fields {
		if !drop[strings.ToLower(f)] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return q
	}
	return strings.Join(kept, " ")
}
