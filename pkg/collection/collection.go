package collection

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/idalloc"
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/schema"
)

// WriteOp selects the upsert semantics applied to a document.
type WriteOp int

const (
	// OpCreate rejects the write if a document with the same id already
	// exists.
	OpCreate WriteOp = iota
	// OpUpsert replaces the document unconditionally, creating it if
	// absent.
	OpUpsert
	// OpUpdate merges the given fields into an existing document and
	// fails if it doesn't exist.
	OpUpdate
	// OpEmplace is OpUpdate that also creates the document when absent.
	OpEmplace
	// OpDelete removes the document.
	OpDelete
)

// fieldIndexes bundles the index family instances a single schema field
// can participate in.
type fieldIndexes struct {
	inverted *index.InvertedIndex
	numeric  *index.NumericIndex
	facet    *index.FacetIndex
	sort     *index.SortIndex
	geo      *index.GeoIndex
	vector   *index.VectorIndex
}

// Collection is one schema plus the index families and storage backing it.
type Collection struct {
	mu sync.RWMutex

	ID     uint32
	Name   string
	Schema *schema.Schema

	store   kv.Store
	seqIDs  *idalloc.SeqIDAllocator
	byField map[string]*fieldIndexes

	// idToSeq mirrors the KV id-mapping keys in memory for fast point
	// lookups without a store round trip on every write in a batch.
	idToSeq    map[string]uint64
	seqToDocID map[uint64]string
	live       map[uint64]bool

	lookup CollectionLookup
}

// New builds an empty Collection backed by store, allocating index
// families for every concrete schema field that declares one.
func New(id uint32, name string, sch *schema.Schema, store kv.Store) *Collection {
	c := &Collection{
		ID:      id,
		Name:    name,
		Schema:  sch,
		store:   store,
		seqIDs:  idalloc.NewSeqIDAllocator(store, name),
		byField:    make(map[string]*fieldIndexes),
		idToSeq:    make(map[string]uint64),
		seqToDocID: make(map[uint64]string),
		live:       make(map[uint64]bool),
	}
	for _, f := range sch.Fields {
		c.ensureFieldIndexes(f)
	}
	return c
}

func (c *Collection) ensureFieldIndexes(f schema.Field) *fieldIndexes {
	fi, ok := c.byField[f.Name]
	if ok {
		return fi
	}
	fi = &fieldIndexes{}
	if f.Index && f.Type == schema.TypeString && !f.IsVector() {
		fi.inverted = index.NewInvertedIndex()
	}
	if f.HasNumericalIndex() && f.Index && !f.IsVector() {
		fi.numeric = index.NewNumericIndex()
	}
	if f.Facet {
		fi.facet = index.NewFacetIndex()
	}
	if f.IsSortable() && !f.IsVector() {
		fi.sort = index.NewSortIndex()
	}
	if f.Type == schema.TypeGeopoint {
		fi.geo = index.NewGeoIndex()
	}
	if f.IsVector() {
		dist := index.CosineDistance
		if f.VecDist == schema.DistInnerProduct {
			dist = index.InnerProductDistance
		}
		fi.vector = index.NewVectorIndex(dist, 16, 200)
	}
	c.byField[f.Name] = fi
	return fi
}

// Add validates, flattens, and applies doc under the given write op,
// returning the sequence id assigned (or reused, for updates/deletes).
func (c *Collection) Add(doc map[string]any, op WriteOp) (uint64, error) {
	docID, _ := doc["id"].(string)
	if docID == "" && op != OpCreate {
		return 0, glinterr.ClientError("id", "document missing id")
	}

	var pendingOps map[string]any
	if raw, ok := doc["$operations"]; ok {
		pendingOps, _ = raw.(map[string]any)
		delete(doc, "$operations")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var exists bool
	var existingSeq uint64
	if docID != "" {
		existingSeq, exists = c.idToSeq[docID]
	}

	switch op {
	case OpCreate:
		if exists {
			return 0, glinterr.Conflict("id", "document with id %q already exists", docID)
		}
	case OpUpdate:
		if !exists {
			return 0, glinterr.NotFound("id", "document with id %q not found", docID)
		}
	case OpDelete:
		if !exists {
			return 0, glinterr.NotFound("id", "document with id %q not found", docID)
		}
		return existingSeq, c.deleteLocked(docID, existingSeq)
	}

	merged := doc
	if (op == OpUpdate || op == OpEmplace) && exists {
		base, err := c.getLocked(existingSeq)
		if err != nil {
			return 0, err
		}
		merged = mergeDocs(base, doc)
	}

	if pendingOps != nil {
		if err := applyOperations(merged, pendingOps); err != nil {
			return 0, err
		}
	}

	if op == OpUpsert {
		if err := requireNonOptionalFields(c.Schema, merged); err != nil {
			return 0, err
		}
	}

	seqID := existingSeq
	var err error
	if !exists {
		seqID, err = c.seqIDs.Next()
		if err != nil {
			return 0, glinterr.Fatal(err, "allocate sequence id")
		}
		if docID == "" {
			docID = strconv.FormatUint(seqID, 10)
			merged["id"] = docID
		}
	} else {
		c.unindexLocked(existingSeq)
	}

	if err := c.resolveReferencesLocked(merged); err != nil {
		return 0, err
	}

	flat, err := c.Schema.Flatten(merged)
	if err != nil {
		return 0, err
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return 0, glinterr.Fatal(err, "marshal document")
	}

	ops := []kv.Op{
		kv.PutOp(docSeqKey(c.ID, seqID), raw),
		kv.PutOp(docIDKey(c.ID, docID), encodeSeqID(seqID)),
	}
	if err := c.store.BatchWrite(ops); err != nil {
		return 0, glinterr.Fatal(err, "write document")
	}

	c.indexLocked(seqID, flat)
	c.idToSeq[docID] = seqID
	c.seqToDocID[seqID] = docID
	c.live[seqID] = true

	return seqID, nil
}

func (c *Collection) deleteLocked(docID string, seqID uint64) error {
	ops := []kv.Op{
		kv.DeleteOp(docSeqKey(c.ID, seqID)),
		kv.DeleteOp(docIDKey(c.ID, docID)),
	}
	if err := c.store.BatchWrite(ops); err != nil {
		return glinterr.Fatal(err, "delete document")
	}
	c.unindexLocked(seqID)
	delete(c.idToSeq, docID)
	delete(c.seqToDocID, seqID)
	delete(c.live, seqID)
	return nil
}

func (c *Collection) getLocked(seqID uint64) (map[string]any, error) {
	raw, err := c.store.Get(docSeqKey(c.ID, seqID))
	if err != nil {
		return nil, glinterr.Fatal(err, "read document")
	}
	if raw == nil {
		return nil, glinterr.NotFound("id", "document not found")
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, glinterr.Fatal(err, "unmarshal document")
	}
	return doc, nil
}

// Get returns the stored document for docID.
func (c *Collection) Get(docID string) (map[string]any, error) {
	c.mu.RLock()
	seqID, ok := c.idToSeq[docID]
	c.mu.RUnlock()
	if !ok {
		return nil, glinterr.NotFound("id", "document with id %q not found", docID)
	}
	return c.getLocked(seqID)
}

// DocCount returns the number of live documents.
func (c *Collection) DocCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.live)
}

// indexLocked fans a flattened document's field values out into every
// index family the schema wires up for those fields. Caller must hold mu.
func (c *Collection) indexLocked(seqID uint64, flat *schema.Flattened) {
	for _, fv := range flat.Values {
		fi := c.ensureFieldIndexes(fv.Field)
		for _, v := range fv.Values {
			c.indexValue(fi, fv.Field, seqID, v)
		}
	}
}

func (c *Collection) indexValue(fi *fieldIndexes, f schema.Field, seqID uint64, v any) {
	switch f.Type {
	case schema.TypeString:
		s, _ := v.(string)
		if fi.inverted != nil {
			for _, tok := range tokenize(s) {
				fi.inverted.Insert(tok, uint32(seqID))
			}
		}
		if fi.facet != nil {
			fi.facet.Insert(uint32(seqID), s)
		}
	case schema.TypeInt32, schema.TypeInt64:
		n := toInt64(v)
		if fi.numeric != nil {
			fi.numeric.Insert(n, uint32(seqID))
		}
		if fi.sort != nil {
			fi.sort.Set(uint32(seqID), n)
		}
	case schema.TypeFloat:
		fv, _ := toFloat64(v)
		if f.IsVector() {
			vec, ok := v.([]float32)
			if !ok {
				vec = toFloat32Slice(v)
			}
			if fi.vector != nil && len(vec) > 0 {
				fi.vector.Insert(uint32(seqID), vec)
			}
			return
		}
		n := index.FloatToOrderedInt64(fv)
		if fi.numeric != nil {
			fi.numeric.Insert(n, uint32(seqID))
		}
		if fi.sort != nil {
			fi.sort.Set(uint32(seqID), n)
		}
	case schema.TypeBool:
		b, _ := v.(bool)
		n := int64(0)
		if b {
			n = 1
		}
		if fi.numeric != nil {
			fi.numeric.Insert(n, uint32(seqID))
		}
	case schema.TypeGeopoint:
		lat, lng, ok := toGeopoint(v)
		if ok && fi.geo != nil {
			fi.geo.Insert(uint32(seqID), lat, lng)
		}
	}
}

// unindexLocked removes every trace of seqID from the field indexes. It
// scans the stored document rather than tracking reverse-lookups per
// value, trading a read for simpler bookkeeping — acceptable since
// updates/deletes are far rarer than fresh inserts.
func (c *Collection) unindexLocked(seqID uint64) {
	raw, err := c.store.Get(docSeqKey(c.ID, seqID))
	if err != nil || raw == nil {
		return
	}
	var doc map[string]any
	if json.Unmarshal(raw, &doc) != nil {
		return
	}
	flat, err := c.Schema.Flatten(doc)
	if err != nil {
		return
	}
	for _, fv := range flat.Values {
		fi, ok := c.byField[fv.Path]
		if !ok {
			continue
		}
		for _, v := range fv.Values {
			c.unindexValue(fi, fv.Field, seqID, v)
		}
	}
}

func (c *Collection) unindexValue(fi *fieldIndexes, f schema.Field, seqID uint64, v any) {
	switch f.Type {
	case schema.TypeString:
		s, _ := v.(string)
		if fi.inverted != nil {
			for _, tok := range tokenize(s) {
				fi.inverted.Delete(tok, uint32(seqID))
			}
		}
		if fi.facet != nil {
			fi.facet.Delete(uint32(seqID))
		}
	case schema.TypeInt32, schema.TypeInt64:
		if fi.numeric != nil {
			fi.numeric.Delete(toInt64(v), uint32(seqID))
		}
		if fi.sort != nil {
			fi.sort.Delete(uint32(seqID))
		}
	case schema.TypeFloat:
		if f.IsVector() {
			if fi.vector != nil {
				fi.vector.Delete(uint32(seqID))
			}
			return
		}
		fv, _ := toFloat64(v)
		n := index.FloatToOrderedInt64(fv)
		if fi.numeric != nil {
			fi.numeric.Delete(n, uint32(seqID))
		}
		if fi.sort != nil {
			fi.sort.Delete(uint32(seqID))
		}
	case schema.TypeBool:
		b, _ := v.(bool)
		n := int64(0)
		if b {
			n = 1
		}
		if fi.numeric != nil {
			fi.numeric.Delete(n, uint32(seqID))
		}
	case schema.TypeGeopoint:
		lat, lng, ok := toGeopoint(v)
		if ok && fi.geo != nil {
			fi.geo.Delete(uint32(seqID), lat, lng)
		}
	}
}

// mergeDocs overlays patch's keys onto base, used by update/emplace.
func mergeDocs(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// requireNonOptionalFields enforces spec.md §4.3's "upsert requires a
// document satisfying all non-optional fields" — every concretely
// declared, non-optional field (other than the reserved "id") must have
// a present value in doc.
func requireNonOptionalFields(sch *schema.Schema, doc map[string]any) error {
	for _, f := range sch.Fields {
		if f.Optional || f.Name == "id" {
			continue
		}
		if _, ok := doc[f.Name]; !ok {
			return glinterr.ClientError(f.Name, "field %q is required for upsert", f.Name)
		}
	}
	return nil
}

// applyOperations mutates merged in place per the "$operations" write
// extension (spec.md §8 scenario 2): {"$operations":{"increment":
// {"field":delta}}} adds delta to the field's current numeric value. A
// field absent from merged is treated as zero, which resolves spec.md
// §9's open question on incrementing a not-yet-existing optional field
// via EMPLACE by having it behave as create-with-value-delta.
func applyOperations(merged map[string]any, ops map[string]any) error {
	incRaw, ok := ops["increment"]
	if !ok {
		return nil
	}
	inc, ok := incRaw.(map[string]any)
	if !ok {
		return glinterr.ClientError("$operations", "increment must be an object of field:delta pairs")
	}
	for field, deltaRaw := range inc {
		delta, ok := toFloat64(deltaRaw)
		if !ok {
			return glinterr.ClientError(field, "increment delta for %q must be numeric", field)
		}
		current := 0.0
		if existing, ok := merged[field]; ok {
			cur, ok := toFloat64(existing)
			if !ok {
				return glinterr.ClientError(field, "field %q is not numeric, cannot increment", field)
			}
			current = cur
		}
		merged[field] = current + delta
	}
	return nil
}
