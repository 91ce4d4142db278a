// Package keylock serializes work per string key using a fixed set of
// striped mutexes.
package keylock

import (
	"hash/fnv"
	"sync"
)

const stripes = 64

// Striped maps keys onto a fixed pool of mutexes. Distinct keys may share a
// stripe. The zero value is ready to use.
type Striped struct {
	mu [stripes]sync.Mutex
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Striped) Lock(key string) (unlock func()) {
	m := &s.mu[index(key)]
	m.Lock()
	return m.Unlock
}

func index(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % stripes
}
