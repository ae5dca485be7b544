package pkgid

import (
	"hash/fnv"
	"io"

	"github.com/jmank88/nuts"
)

// CacheKey is a binary, length-minimal key suitable for a sorted on-disk
// cache (e.g. a BoltDB bucket, the way the teacher's source_cache_bolt.go
// keys its cache), built with nuts the same way: a big-endian encoding via
// nuts.Key.Put, sized by nuts.KeyLen so small hash values don't pay for
// unused leading zero bytes. The ID part is an FNV-64a hash, so keys sort
// by hash, not in ID order.
type CacheKey []byte

// NewCacheKey derives a cache key from id's identity triple and the
// metadata key being requested, so two keys on the same ID never collide.
func NewCacheKey(id *ID, key Key) CacheKey {
	h := fnv.New64a()
	io.WriteString(h, id.Name.String())
	h.Write([]byte{0})
	io.WriteString(h, id.Version.String())
	h.Write([]byte{0})
	io.WriteString(h, id.Repository.String())
	sum := h.Sum64()

	idKeyLen := nuts.KeyLen(sum)
	kKeyLen := nuts.KeyLen(uint64(key))

	k := make(nuts.Key, idKeyLen+kKeyLen)
	k[:idKeyLen].Put(sum)
	k[idKeyLen:].Put(uint64(key))
	return CacheKey(k)
}
