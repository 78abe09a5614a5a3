// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache stores the answers of remote repository lookups keyed by
// content digest, so identical files are only looked up once per run (and,
// with a persistent store, across runs).
package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gohugoio/hashstructure"
	"github.com/google/osv-depcheck/log"
	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"
)

// DefaultSize is the default number of in-memory entries.
const DefaultSize = 4096

// entry is the cached answer of a lookup. A nil Data means "not found".
type entry struct {
	Data json.RawMessage `json:"data,omitempty"`
}

// Cache is a two level cache: an in-memory LRU in front of an optional bbolt
// database. A nil *Cache is valid and caches nothing.
type Cache struct {
	mem *lru.Cache[string, entry]
	db  *bolt.DB
}

// New returns a Cache holding up to size entries in memory. If path is not
// empty, entries are also persisted to a bbolt database at path.
func New(size int, path string) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	mem, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	c := &Cache{mem: mem}
	if path == "" {
		return c, nil
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening lookup cache %q: %w", path, err)
	}
	c.db = db
	return c, nil
}

// Close releases the persistent store, if any.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func memKey(bucket, key string) string { return bucket + "\x00" + key }

func (c *Cache) get(bucket, key string) (entry, bool) {
	if c == nil {
		return entry{}, false
	}
	if e, ok := c.mem.Get(memKey(bucket, key)); ok {
		return e, true
	}
	if c.db == nil {
		return entry{}, false
	}
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction.
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Warnf("cache: dropping corrupt entry %s/%s: %v", bucket, key, err)
		return entry{}, false
	}
	c.mem.Add(memKey(bucket, key), e)
	return e, true
}

func (c *Cache) put(bucket, key string, e entry) {
	if c == nil {
		return
	}
	c.mem.Add(memKey(bucket, key), e)
	if c.db == nil {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		log.Warnf("cache: encoding %s/%s: %v", bucket, key, err)
		return
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		log.Warnf("cache: persisting %s/%s: %v", bucket, key, err)
	}
}

// Lookup is a typed view on a Cache for one analyzer. A nil *Lookup caches
// nothing.
type Lookup[T any] struct {
	c      *Cache
	bucket string
}

// NewLookup returns a typed view on c. The bucket name is derived from name
// and a hash of settings, so that changing e.g. a repository URL doesn't
// serve answers of the previous repository.
func NewLookup[T any](c *Cache, name string, settings any) *Lookup[T] {
	bucket := name
	if settings != nil {
		if h, err := hashstructure.Hash(settings, nil); err == nil {
			bucket = name + "-" + strconv.FormatUint(h, 16)
		} else {
			log.Warnf("cache: hashing %s settings: %v", name, err)
		}
	}
	return &Lookup[T]{c: c, bucket: bucket}
}

// Bucket returns the bucket name used for persistence.
func (l *Lookup[T]) Bucket() string { return l.bucket }

// Get returns the cached answer for key. hit reports whether there was an
// answer; a hit with a nil value is a cached "not found".
func (l *Lookup[T]) Get(key string) (v *T, hit bool) {
	if l == nil {
		return nil, false
	}
	e, ok := l.c.get(l.bucket, key)
	if !ok {
		return nil, false
	}
	if e.Data == nil {
		return nil, true
	}
	v = new(T)
	if err := json.Unmarshal(e.Data, v); err != nil {
		return nil, false
	}
	return v, true
}

// Put caches v for key. A nil v records "not found". Errors are never cached.
func (l *Lookup[T]) Put(key string, v *T) {
	if l == nil {
		return
	}
	if v == nil {
		l.c.put(l.bucket, key, entry{})
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warnf("cache: encoding %s/%s: %v", l.bucket, key, err)
		return
	}
	l.c.put(l.bucket, key, entry{Data: data})
}
