package collection

import "encoding/binary"

// Document storage uses two keys per document so a document can be looked
// up either by its assigned sequence id (for ordered scans and postings
// lists) or by its user-facing string id (for point reads/writes/deletes):
//
//	<collection_id>_<seq_id>     -> the document's stored JSON
//	<collection_id>_id_<string_id> -> the seq_id, 8 bytes big-endian
func docSeqKey(collID uint32, seqID uint64) []byte {
	key := make([]byte, 4+1+8)
	binary.BigEndian.PutUint32(key[0:4], collID)
	key[4] = '_'
	binary.BigEndian.PutUint64(key[5:13], seqID)
	return key
}

func docSeqPrefix(collID uint32) []byte {
	key := make([]byte, 4+1)
	binary.BigEndian.PutUint32(key[0:4], collID)
	key[4] = '_'
	return key
}

func docIDKey(collID uint32, docID string) []byte {
	key := make([]byte, 0, 4+4+len(docID))
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, collID)
	key = append(key, prefix...)
	key = append(key, "_id_"...)
	key = append(key, docID...)
	return key
}

func docIDPrefix(collID uint32) []byte {
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, collID)
	return append(prefix, "_id_"...)
}

func encodeSeqID(seqID uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seqID)
	return b
}

func decodeSeqID(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
