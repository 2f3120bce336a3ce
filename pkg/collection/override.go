package collection

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
)

// OverrideMatch selects how an Override's Query is compared against the
// incoming search's q parameter.
type OverrideMatch string

const (
	MatchExact    OverrideMatch = "exact"
	MatchContains OverrideMatch = "contains"
)

// Override is one curation rule (spec.md §4.5 step 9, §GLOSSARY): a query
// match that pins or hides specific documents and/or injects filter/sort
// parameters, persisted under $OISET_<len(collection)>_<collection>_<id>.
type Override struct {
	ID    string        `json:"id"`
	Query string        `json:"query"`
	Match OverrideMatch `json:"match"`

	PinnedHits []string `json:"pinned_hits,omitempty"`
	HiddenHits []string `json:"hidden_hits,omitempty"`

	FilterBy string `json:"filter_by,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`

	// FilterCuratedHits is stored with the rule but not read when searching:
	// pinned hits are only reordered among documents that already match q
	// and filter_by, and are never force-included.
	FilterCuratedHits bool `json:"filter_curated_hits,omitempty"`
}

// Matches reports whether o applies to query q.
func (o Override) Matches(q string) bool {
	switch o.Match {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(o.Query), strings.TrimSpace(q))
	default:
		return strings.Contains(strings.ToLower(q), strings.ToLower(o.Query))
	}
}

// UpsertOverride saves or replaces the override rule named o.ID for
// collection.
func (m *Manager) UpsertOverride(collection string, o Override) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return glinterr.Fatal(err, "marshal override %q", o.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(overrideKey(collection, o.ID), raw); err != nil {
		return glinterr.Fatal(err, "persist override %q", o.ID)
	}
	m.overrides[collection] = upsertOverrideList(m.overrides[collection], o)
	return nil
}

// DropOverride removes a saved override rule.
func (m *Manager) DropOverride(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(overrideKey(collection, id)); err != nil {
		return glinterr.Fatal(err, "drop override %q", id)
	}
	list := m.overrides[collection]
	for i, o := range list {
		if o.ID == id {
			m.overrides[collection] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// ListOverrides returns every override rule saved for collection.
func (m *Manager) ListOverrides(collection string) []Override {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Override, len(m.overrides[collection]))
	copy(out, m.overrides[collection])
	return out
}

// MatchingOverrides returns, in saved order, every override rule for
// collection whose Query matches q.
func (m *Manager) MatchingOverrides(collection, q string) []Override {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Override
	for _, o := range m.overrides[collection] {
		if o.Matches(q) {
			out = append(out, o)
		}
	}
	return out
}

func upsertOverrideList(list []Override, o Override) []Override {
	for i, existing := range list {
		if existing.ID == o.ID {
			list[i] = o
			return list
		}
	}
	return append(list, o)
}

// overrideKey builds $OISET_<len(collection)>_<collection>_<id> so that a
// collection name containing an underscore can't be confused with the id
// suffix when the key is later parsed back apart on load.
func overrideKey(collection, id string) []byte {
	prefix := append([]byte{}, kv.PrefixOverrideSet...)
	prefix = append(prefix, strconv.Itoa(len(collection))...)
	prefix = append(prefix, '_')
	prefix = append(prefix, collection...)
	prefix = append(prefix, '_')
	prefix = append(prefix, id...)
	return prefix
}

func (m *Manager) loadOverridesLocked() error {
	it, err := m.store.Scan(kv.PrefixOverrideSet, kv.PrefixUpperBound(kv.PrefixOverrideSet))
	if err != nil {
		return glinterr.Fatal(err, "scan overrides")
	}
	defer it.Close()

	m.overrides = make(map[string][]Override)
	for it.Next() {
		if !it.Valid() {
			break
		}
		rest := it.Key()[len(kv.PrefixOverrideSet):]
		sep := indexByte(rest, '_')
		if sep < 0 {
			continue
		}
		n, err := strconv.Atoi(string(rest[:sep]))
		if err != nil || sep+1+n+1 > len(rest) {
			continue
		}
		collection := string(rest[sep+1 : sep+1+n])

		var o Override
		if err := json.Unmarshal(it.Value(), &o); err != nil {
			continue
		}
		m.overrides[collection] = append(m.overrides[collection], o)
	}
	return nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
