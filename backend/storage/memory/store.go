package memory

import (
	"sort"
	"sync"
)

// MemStore is a keyed in-memory store.
type MemStore[V any] struct {
	mx *sync.RWMutex
	db map[string]V
}

func NewMemStore[V any]() *MemStore[V] {
	return &MemStore[V]{
		mx: &sync.RWMutex{},
		db: make(map[string]V),
	}
}

// Put stores v under key and reports false if the key was already taken.
func (ms *MemStore[V]) Put(key string, v V) bool {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	if _, ok := ms.db[key]; ok {
		return false
	}
	ms.db[key] = v
	return true
}

func (ms *MemStore[V]) Get(key string) (V, bool) {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	v, ok := ms.db[key]
	return v, ok
}

func (ms *MemStore[V]) Has(key string) bool {
	_, ok := ms.Get(key)
	return ok
}

func (ms *MemStore[V]) Delete(key string) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	delete(ms.db, key)
}

func (ms *MemStore[V]) Len() int {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	return len(ms.db)
}

// Values returns stored values ordered by key.
func (ms *MemStore[V]) Values() []V {
	ms.mx.RLock()
	defer ms.mx.RUnlock()

	keys := make([]string, 0, len(ms.db))
	for k := range ms.db {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, ms.db[k])
	}
	return values
}
