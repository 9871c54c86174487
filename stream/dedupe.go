package stream

import (
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/posacc/types/frame"
)

// NewDedupeLRUFunc returns a predicate that is false for a frame
// identical to one of the last size frames seen. Control messages always pass.
func NewDedupeLRUFunc(size int) func(*frame.Message) bool {
	var dedupeCache = lru.New(size)
	return func(m *frame.Message) bool {
		if m.Kind != frame.KindFrame || m.Frame == nil {
			return true
		}
		hash, err := hashstructure.Hash(m.Frame, hashstructure.FormatV2, nil)
		if err != nil {
			return true
		}
		key := fmt.Sprintf("%d", hash)
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
