package metadata

import (
	"github.com/metaforge/unitmeta/errors"
)

// The index hash is fixed-seed FNV-1a over the key's four little-endian
// bytes. Order independent, stable across runs.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211

	indexBuckets = 256
)

func bucketOf(key uint32) int {
	h := fnvOffset
	for i := 0; i < 4; i++ {
		h ^= uint64(byte(key >> (8 * i)))
		h *= fnvPrime
	}
	return int(h % indexBuckets)
}

// writeIndex serializes the two-level lookup table for the collected
// entries into the currently open record: 256 bucket records in
// ascending order, each a flat run of raw (u32 offset, u32 key) pairs,
// then a fixed table of the 256 bucket-start offsets. Entries within a
// bucket keep insertion order, so a duplicate key resolves to its
// first record.
func (cx *encodeContext) writeIndex(entries []indexEntry) {
	buckets := make([][]indexEntry, indexBuckets)
	for _, e := range entries {
		b := bucketOf(e.key)
		buckets[b] = append(buckets[b], e)
	}

	starts := make([]uint32, indexBuckets)
	cx.w.Start(tagIndexBuckets)
	for i, b := range buckets {
		pos := cx.w.Pos()
		if uint64(pos) > 0xFFFF_FFFF {
			cx.fatal(errors.OffsetOverflow("index bucket offset", uint64(pos)))
		}
		starts[i] = uint32(pos)
		cx.w.Start(tagIndexBucket)
		for _, e := range b {
			cx.w.RawU32BE(e.pos)
			cx.w.RawU32BE(e.key)
		}
		cx.w.End()
	}
	cx.w.End()

	cx.w.Start(tagIndexTable)
	for _, s := range starts {
		cx.w.RawU32BE(s)
	}
	cx.w.End()
}
