package kv

// Key prefixes, per spec §6's keyspace table. Every collection-scoped
// prefix is followed by the collection name; counters and indexes append
// further structure documented at each constant.
var (
	// PrefixCollectionIDCounter ($CI) holds the most recently allocated
	// collection id, as a single key with no suffix.
	PrefixCollectionIDCounter = []byte("$CI")

	// PrefixCollectionMeta ($CM_<name>) holds a collection's serialized
	// schema and configuration.
	PrefixCollectionMeta = []byte("$CM_")

	// PrefixNextSeqID ($CN_<name>) holds the most recently assigned
	// sequence id within a collection.
	PrefixNextSeqID = []byte("$CN_")

	// PrefixSymlink ($SL_<name>) maps a collection alias to its real
	// name.
	PrefixSymlink = []byte("$SL_")

	// PrefixPreset ($PS_<name>) holds a saved search-parameter preset.
	PrefixPreset = []byte("$PS_")

	// PrefixStopwords ($SW_<name>) holds a named stopword set.
	PrefixStopwords = []byte("$SW_")

	// PrefixStemmerDict ($SD_<name>) holds a named stemming override
	// dictionary.
	PrefixStemmerDict = []byte("$SD_")

	// PrefixRaftChunk ($RL_<req_id>_<chunk_index>) stages an in-flight,
	// not-yet-fully-reassembled multi-chunk write request.
	PrefixRaftChunk = []byte("$RL_")

	// PrefixSkipIndex ($XP<idx>) marks a raft log index whose write
	// permanently failed and must be skipped on replay.
	PrefixSkipIndex = []byte("$XP")

	// PrefixOverrideSet ($OISET_<len>_<collection>_<id>) holds one override
	// rule.
	PrefixOverrideSet = []byte("$OISET_")

	// PrefixSynonymSet ($SY_<len>_<collection>_<id>) holds one synonym
	// rule for a collection.
	PrefixSynonymSet = []byte("$SY_")

	// The following are named for completeness per spec §6 but have no
	// manager implementing them: natural-language query generation and
	// personalization models are explicit non-goals (§1).
	PrefixNLSearchPreset   = []byte("$NLSP_")
	PrefixPersonalization  = []byte("$PER_")
	PrefixAsyncDocRequest  = []byte("$ADQ_")
)

// PrefixUpperBound returns the smallest key strictly greater than every key
// starting with prefix, by incrementing the prefix's last byte (carrying
// into preceding bytes on overflow). A nil result means the prefix is
// 0xff-only and the scan should run to the end of the keyspace.
func PrefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// CollectionKey builds the key for a collection-scoped prefix + name, e.g.
// CollectionKey(PrefixCollectionMeta, "products") -> "$CM_products".
func CollectionKey(prefix []byte, name string) []byte {
	key := make([]byte, 0, len(prefix)+len(name))
	key = append(key, prefix...)
	key = append(key, name...)
	return key
}
