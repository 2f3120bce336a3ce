package collection

import (
	"encoding/json"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/query"
)

// UpsertPreset persists a named parameter bundle under $PS_<name> (spec.md
// §6) and makes it immediately resolvable by DoSearch.
func (m *Manager) UpsertPreset(name string, params query.Params) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return glinterr.Fatal(err, "marshal preset %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(kv.CollectionKey(kv.PrefixPreset, name), raw); err != nil {
		return glinterr.Fatal(err, "persist preset %q", name)
	}
	if m.presets == nil {
		m.presets = make(map[string]query.Params)
	}
	m.presets[name] = params
	return nil
}

// GetPreset returns the named preset's params, or NotFound if no such
// preset has been saved.
func (m *Manager) GetPreset(name string) (query.Params, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[name]
	if !ok {
		return query.Params{}, glinterr.NotFound("preset", "preset %q not found", name)
	}
	return p, nil
}

// DropPreset removes a saved preset.
func (m *Manager) DropPreset(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[name]; !ok {
		return glinterr.NotFound("preset", "preset %q not found", name)
	}
	if err := m.store.Delete(kv.CollectionKey(kv.PrefixPreset, name)); err != nil {
		return glinterr.Fatal(err, "drop preset %q", name)
	}
	delete(m.presets, name)
	return nil
}

// loadPresetsLocked rebuilds the in-memory preset map from $PS_ on boot.
// A corrupt preset record is skipped, without being logged, rather than
// failing the whole boot.
func (m *Manager) loadPresetsLocked() error {
	it, err := m.store.Scan(kv.PrefixPreset, kv.PrefixUpperBound(kv.PrefixPreset))
	if err != nil {
		return glinterr.Fatal(err, "scan presets")
	}
	defer it.Close()

	m.presets = make(map[string]query.Params)
	for it.Next() {
		if !it.Valid() {
			break
		}
		name := string(it.Key()[len(kv.PrefixPreset):])
		var p query.Params
		if err := json.Unmarshal(it.Value(), &p); err != nil {
			continue
		}
		m.presets[name] = p
	}
	return nil
}
