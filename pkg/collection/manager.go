package collection

import (
	"encoding/json"
	"sync"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/idalloc"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/query"
	"github.com/cuemby/glint/pkg/readiness"
	"github.com/cuemby/glint/pkg/schema"
)

// collectionMeta is the serialized form of a collection's schema and
// configuration, stored under $CM_<name>, matching the collection-meta
// JSON keys of spec.md §6.
type collectionMeta struct {
	ID                  uint32         `json:"id"`
	Name                string         `json:"name"`
	Fields              []schema.Field `json:"fields"`
	DefaultSortingField string         `json:"default_sorting_field"`
	FallbackFieldType   string         `json:"fallback_field_type,omitempty"`
	EnableNestedFields  bool           `json:"enable_nested_fields,omitempty"`
	SymbolsToIndex      []rune         `json:"symbols_to_index,omitempty"`
	TokenSeparators     []rune         `json:"token_separators,omitempty"`
}

func metaFromSchema(id uint32, name string, sch *schema.Schema) collectionMeta {
	m := collectionMeta{
		ID:                  id,
		Name:                name,
		Fields:              sch.Fields,
		DefaultSortingField: sch.DefaultSortingField,
		EnableNestedFields:  sch.EnableNestedFields,
		SymbolsToIndex:      sch.SymbolsToIndex,
		TokenSeparators:     sch.TokenSeparators,
	}
	if sch.HasFallbackType {
		m.FallbackFieldType = sch.FallbackFieldType.String()
	}
	return m
}

// Manager owns every live collection plus the symlink table that lets a
// collection be addressed by an alias.
type Manager struct {
	mu          sync.RWMutex
	store       kv.Store
	collections map[string]*Collection
	symlinks    map[string]string
	collIDs     *idalloc.CollectionIDAllocator
	gate        *readiness.Gate

	presets      map[string]query.Params
	stopwords    map[string][]string
	overrides    map[string][]Override
	synonyms     map[string][]Synonym
	referencedIn map[string][]string
}

// NewManager builds an empty Manager over store. Call LoadAll to rebuild
// in-memory state from a prior run before serving traffic.
func NewManager(store kv.Store) *Manager {
	return &Manager{
		store:       store,
		collections: make(map[string]*Collection),
		symlinks:    make(map[string]string),
		collIDs:     idalloc.NewCollectionIDAllocator(store),
		presets:      make(map[string]query.Params),
		stopwords:    make(map[string][]string),
		overrides:    make(map[string][]Override),
		synonyms:     make(map[string][]Synonym),
		referencedIn: make(map[string][]string),
	}
}

// SetReadinessGate wires g into the manager so DoSearch/DoUnion refuse to
// run ahead of the node's read-catch-up state (spec.md §5). A nil gate
// (the default) leaves search unrestricted, which is what every
// single-node and test setup wants.
func (m *Manager) SetReadinessGate(g *readiness.Gate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = g
}

// CreateCollection registers a new collection under name with the given
// schema, persisting its metadata before it becomes visible to readers.
func (m *Manager) CreateCollection(name string, sch *schema.Schema) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[name]; exists {
		return nil, glinterr.Conflict("name", "collection %q already exists", name)
	}

	id, err := m.collIDs.Next()
	if err != nil {
		return nil, glinterr.Fatal(err, "allocate collection id")
	}

	meta := metaFromSchema(id, name, sch)
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, glinterr.Fatal(err, "marshal collection metadata")
	}
	if err := m.store.Put(kv.CollectionKey(kv.PrefixCollectionMeta, name), raw); err != nil {
		return nil, glinterr.Fatal(err, "persist collection metadata")
	}

	c := New(id, name, sch, m.store)
	c.SetLookup(m)
	m.collections[name] = c
	m.rebuildReferencedInLocked()
	return c, nil
}

// CreateCollectionFromJSON parses raw as a POST /collections request body
// (spec.md §4.2's creation protocol: "validate the request JSON against §6
// rules") and creates the collection it describes.
func (m *Manager) CreateCollectionFromJSON(raw []byte) (*Collection, error) {
	name, sch, err := schema.ParseCreateRequest(raw)
	if err != nil {
		return nil, err
	}
	return m.CreateCollection(name, sch)
}

// ReferencedIn returns the names of every live collection with a field
// that declares a reference into name — the reverse of each collection's
// own (forward-only, persisted) Field.Reference. Spec.md §9's "cyclic
// reference graph across collections" redesign note: only the forward
// direction is ever stored; this reverse set is rebuilt in memory on
// every collection create/drop/load rather than persisted.
func (m *Manager) ReferencedIn(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.referencedIn[name]...)
}

// rebuildReferencedInLocked recomputes the referencedIn index from every
// live collection's schema. Caller must hold m.mu.
func (m *Manager) rebuildReferencedInLocked() {
	m.referencedIn = make(map[string][]string)
	for _, c := range m.collections {
		for _, f := range c.Schema.Fields {
			if f.Reference == "" {
				continue
			}
			target := refCollectionName(f.Reference)
			m.referencedIn[target] = append(m.referencedIn[target], c.Name)
		}
	}
}

// DropCollection removes a collection and every document/index/key it
// owns.
func (m *Manager) DropCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = m.resolveLocked(name)
	if _, ok := m.collections[name]; !ok {
		return glinterr.NotFound("name", "collection %q not found", name)
	}

	c := m.collections[name]
	if err := m.store.DeleteRange(docSeqPrefix(c.ID), kv.PrefixUpperBound(docSeqPrefix(c.ID))); err != nil {
		return glinterr.Fatal(err, "drop document data")
	}
	if err := m.store.DeleteRange(docIDPrefix(c.ID), kv.PrefixUpperBound(docIDPrefix(c.ID))); err != nil {
		return glinterr.Fatal(err, "drop document id index")
	}
	if err := m.store.Delete(kv.CollectionKey(kv.PrefixCollectionMeta, name)); err != nil {
		return glinterr.Fatal(err, "drop collection metadata")
	}
	if err := m.store.Delete(kv.CollectionKey(kv.PrefixNextSeqID, name)); err != nil {
		return glinterr.Fatal(err, "drop sequence counter")
	}
	delete(m.collections, name)
	m.rebuildReferencedInLocked()
	return nil
}

// GetCollection returns the live Collection for name (or its symlink
// target), implementing collection.CollectionLookup.
func (m *Manager) GetCollection(name string) (*Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = m.resolveLocked(name)
	c, ok := m.collections[name]
	if !ok {
		return nil, glinterr.NotFound("name", "collection %q not found", name)
	}
	return c, nil
}

// ListCollections returns every live collection name.
func (m *Manager) ListCollections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.collections))
	for name := range m.collections {
		out = append(out, name)
	}
	return out
}

// CollectionDocCount returns the live document count for name, or 0 if no
// such collection exists. Used by pkg/metrics.Collector.
func (m *Manager) CollectionDocCount(name string) int {
	c, err := m.GetCollection(name)
	if err != nil {
		return 0
	}
	return c.DocCount()
}

// UpsertSymlink registers alias as another name for target.
func (m *Manager) UpsertSymlink(alias, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(kv.CollectionKey(kv.PrefixSymlink, alias), []byte(target)); err != nil {
		return glinterr.Fatal(err, "persist symlink")
	}
	m.symlinks[alias] = target
	return nil
}

func (m *Manager) resolveLocked(name string) string {
	if target, ok := m.symlinks[name]; ok {
		return target
	}
	return name
}

// LoadAll rebuilds every collection's schema and in-memory indexes from
// the store after a restart: it reads every $CM_ metadata entry, then
// replays that collection's documents from the <collection_id>_ range in
// sequence-id order.
func (m *Manager) LoadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, err := m.store.Scan(kv.PrefixCollectionMeta, kv.PrefixUpperBound(kv.PrefixCollectionMeta))
	if err != nil {
		return glinterr.Fatal(err, "scan collection metadata")
	}
	defer it.Close()

	var metas []collectionMeta
	for it.Next() {
		if !it.Valid() {
			break
		}
		var meta collectionMeta
		if err := json.Unmarshal(it.Value(), &meta); err != nil {
			return glinterr.Fatal(err, "unmarshal collection metadata")
		}
		metas = append(metas, meta)
	}

	symIt, err := m.store.Scan(kv.PrefixSymlink, kv.PrefixUpperBound(kv.PrefixSymlink))
	if err != nil {
		return glinterr.Fatal(err, "scan symlinks")
	}
	defer symIt.Close()
	for symIt.Next() {
		if !symIt.Valid() {
			break
		}
		alias := string(symIt.Key()[len(kv.PrefixSymlink):])
		m.symlinks[alias] = string(symIt.Value())
	}

	for _, meta := range metas {
		sch, err := schema.New(meta.Fields, meta.DefaultSortingField)
		if err != nil {
			return glinterr.Fatal(err, "rebuild schema for %q", meta.Name)
		}
		sch.EnableNestedFields = meta.EnableNestedFields
		sch.SymbolsToIndex = meta.SymbolsToIndex
		sch.TokenSeparators = meta.TokenSeparators
		if meta.FallbackFieldType != "" {
			t, ferr := schema.ParseFieldType(meta.FallbackFieldType)
			if ferr != nil {
				return glinterr.Fatal(ferr, "rebuild fallback field type for %q", meta.Name)
			}
			sch.FallbackFieldType = t
			sch.HasFallbackType = true
		}
		c := New(meta.ID, meta.Name, sch, m.store)
		c.SetLookup(m)
		if err := c.replayDocuments(); err != nil {
			return glinterr.Fatal(err, "replay documents for %q", meta.Name)
		}
		m.collections[meta.Name] = c
	}

	// Per spec.md §4.2's load protocol: "load overrides, synonyms,
	// aliases, presets, stopwords" after documents are replayed. A corrupt
	// auxiliary record is skipped rather than failing boot, and nothing is
	// logged for it; the per-loader functions do that by ignoring
	// unmarshal errors entry-by-entry.
	if err := m.loadPresetsLocked(); err != nil {
		return err
	}
	if err := m.loadStopwordsLocked(); err != nil {
		return err
	}
	if err := m.loadOverridesLocked(); err != nil {
		return err
	}
	if err := m.loadSynonymsLocked(); err != nil {
		return err
	}
	m.rebuildReferencedInLocked()
	return nil
}

// replayDocuments rebuilds every in-memory index by scanning the
// collection's stored documents in sequence-id order.
func (c *Collection) replayDocuments() error {
	prefix := docSeqPrefix(c.ID)
	it, err := c.store.Scan(prefix, kv.PrefixUpperBound(prefix))
	if err != nil {
		return err
	}
	defer it.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	for it.Next() {
		if !it.Valid() {
			break
		}
		key := it.Key()
		if len(key) >= len(prefix)+3 && string(key[len(prefix):len(prefix)+3]) == "id_" {
			// <collection_id>_id_<doc_id> mapping keys share this prefix.
			continue
		}
		seqID := decodeSeqID(key[len(prefix):])

		var doc map[string]any
		if err := json.Unmarshal(it.Value(), &doc); err != nil {
			return err
		}
		flat, err := c.Schema.Flatten(doc)
		if err != nil {
			return err
		}
		c.indexLocked(seqID, flat)

		docID, _ := doc["id"].(string)
		c.idToSeq[docID] = seqID
		c.seqToDocID[seqID] = docID
		c.live[seqID] = true
	}
	return nil
}

// filterEvaluator is satisfied by *Collection; kept here only to document
// the dependency explicitly for readers of this file.
var _ filter.Evaluator = (*Collection)(nil)
