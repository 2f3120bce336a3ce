package collection

import (
	"strings"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/schema"
)

// CollectionLookup is the narrow surface MatchReference needs from the
// collection manager: finding another collection by name without pulling
// in the manager's write-path or admin surface.
type CollectionLookup interface {
	GetCollection(name string) (*Collection, error)
}

// SetLookup wires the collection manager in after construction, avoiding a
// constructor-time cycle between Manager and Collection.
func (c *Collection) SetLookup(l CollectionLookup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup = l
}

// SeqIDToDocID returns the user-facing id for a live sequence id.
func (c *Collection) SeqIDToDocID(seqID uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.seqToDocID[uint64(seqID)]
	return id, ok
}

// DocIDToSeqID returns the sequence id assigned to docID, if it is live.
func (c *Collection) DocIDToSeqID(docID string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seqID, ok := c.idToSeq[docID]
	return seqID, ok
}

// refCollectionName splits a "<collection>.<field>" reference path (spec.md
// §3's Field.reference) into the referenced collection name.
func refCollectionName(reference string) string {
	if i := strings.Index(reference, "."); i >= 0 {
		return reference[:i]
	}
	return reference
}

// resolveReferencesLocked fills in the "<field>_sequence_id" helper field
// (spec.md §3, §4.3 step 3) for every reference field present in doc,
// translating the referenced collection's string id into its sequence id.
// A reference to a collection that doesn't exist yet is only tolerated
// when the field is declared async (spec.md §3's async_reference); it is
// then left unresolved, and nothing fills it in when the target collection
// is created later. Caller must hold c.mu.
func (c *Collection) resolveReferencesLocked(doc map[string]any) error {
	for _, f := range c.Schema.Fields {
		if f.Reference == "" {
			continue
		}
		val, ok := doc[f.Name]
		if !ok {
			continue
		}
		refCollName := refCollectionName(f.Reference)
		if c.lookup == nil {
			continue
		}
		other, err := c.lookup.GetCollection(refCollName)
		if err != nil {
			if f.AsyncReference {
				continue
			}
			return glinterr.ClientError(f.Name, "referenced collection %q not found", refCollName)
		}

		switch v := val.(type) {
		case string:
			if seqID, ok := other.DocIDToSeqID(v); ok {
				doc[f.Name+"_sequence_id"] = seqID
			}
		case []any:
			ids := make([]uint64, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					continue
				}
				if seqID, ok := other.DocIDToSeqID(s); ok {
					ids = append(ids, seqID)
				}
			}
			doc[f.Name+"_sequence_id"] = ids
		}
	}
	return nil
}

// referenceField returns the schema field on this collection that
// references otherCollection, if any.
func (c *Collection) referenceField(otherCollection string) (schema.Field, bool) {
	prefix := otherCollection + "."
	for _, f := range c.Schema.Fields {
		if strings.HasPrefix(f.Reference, prefix) {
			return f, true
		}
	}
	return schema.Field{}, false
}

// MatchReference implements filter.Evaluator: it evaluates the reference
// leaf's inner filter against the named collection, maps the matching
// documents there back to their string ids, and returns every document in
// this collection whose reference field names one of those ids.
func (c *Collection) MatchReference(leaf *filter.Leaf) ([]uint32, error) {
	if c.lookup == nil {
		return nil, glinterr.Fatal(nil, "collection %q cannot resolve references: no lookup configured", c.Name)
	}
	other, err := c.lookup.GetCollection(leaf.RefCollection)
	if err != nil {
		return nil, err
	}

	otherMatches, err := filter.Eval(leaf.RefInner, other)
	if err != nil {
		return nil, err
	}

	refField, ok := c.referenceField(leaf.RefCollection)
	if !ok {
		return nil, glinterr.ClientError(leaf.RefCollection, "no field in %q references collection %q", c.Name, leaf.RefCollection)
	}

	c.mu.RLock()
	fi := c.byField[refField.Name]
	c.mu.RUnlock()
	if fi == nil {
		return nil, nil
	}

	var out []uint32
	for _, seqID := range otherMatches {
		docID, ok := other.SeqIDToDocID(seqID)
		if !ok {
			continue
		}
		var matches []uint32
		if fi.facet != nil {
			matches = fi.facet.Docs(docID)
		} else if fi.inverted != nil {
			matches = fi.inverted.Postings(docID)
		}
		out = index.Union(out, matches)
	}
	return out, nil
}
