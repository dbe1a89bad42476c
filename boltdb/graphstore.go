// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package boltdb implements a graph store persisted in a bolt database.
package boltdb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
	"github.com/zeebo/blake3"
	bolt "go.etcd.io/bbolt"
)

// ErrGraphStoreClosed is returned by operations on a closed store.
const ErrGraphStoreClosed errors.Code = "GraphStoreClosed"

var bucketGraphs = []byte("graphs")

// defaultGraphKey is the bucket name of the default graph. Named graphs are
// keyed by their IRI, which is never empty.
var defaultGraphKey = []byte{0}

// Ensure type implements interface.
var _ graphity.GraphStore = (*GraphStore)(nil)

// GraphStore keeps each graph in a nested bucket of the "graphs" bucket.
// Each triple is keyed by the blake3 digest of its N-Triples statement and
// holds the statement as its value, so statement size is not bound by the
// bolt key limit. Decoded graphs are cached until the graph is next written.
type GraphStore struct {
	mu    sync.RWMutex
	db    *bolt.DB
	cache *graphCache

	// File path to database file.
	Path string
}

// NewGraphStore returns a store for the database at path. Call Open before
// use.
func NewGraphStore(path string) *GraphStore {
	return &GraphStore{
		Path:  path,
		cache: newGraphCache(),
	}
}

// OpenGraphStore opens and initializes a bolt graph store.
func OpenGraphStore(path string) (*GraphStore, error) {
	s := NewGraphStore(path)
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the database file, creating it if needed.
func (s *GraphStore) Open() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0750); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(s.Path))
	} else if s.db, err = bolt.Open(s.Path, 0600, &bolt.Options{Timeout: 1 * time.Second}); err != nil {
		return errors.Wrapf(err, "open file: %s", s.Path)
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGraphs)
		return err
	}); err != nil {
		s.db.Close()
		s.db = nil
		return errors.Wrap(err, "initializing")
	}
	return nil
}

// Close closes the underlying database.
func (s *GraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func graphKey(name graphity.GraphName) []byte {
	if name.IsDefault() {
		return defaultGraphKey
	}
	return []byte(name.IRI())
}

func (s *GraphStore) view(ctx context.Context, fn func(graphs *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errors.New(ErrGraphStoreClosed, "graph store is closed")
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketGraphs))
	})
}

func (s *GraphStore) update(ctx context.Context, name graphity.GraphName, fn func(graphs *bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errors.New(ErrGraphStoreClosed, "graph store is closed")
	}
	defer s.cache.Delete(string(graphKey(name)))
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucketGraphs))
	})
}

// Get returns the named graph.
func (s *GraphStore) Get(ctx context.Context, name graphity.GraphName) (*rdf.Graph, bool, error) {
	key := graphKey(name)
	g, gen := s.cache.Get(string(key))
	if g != nil {
		return g, true, nil
	}

	var buf bytes.Buffer
	var found bool
	if err := s.view(ctx, func(graphs *bolt.Bucket) error {
		b := graphs.Bucket(key)
		if b == nil {
			return nil
		}
		found = true
		return b.ForEach(func(_, v []byte) error {
			buf.Write(v)
			buf.WriteByte('\n')
			return nil
		})
	}); err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", name)
	} else if !found {
		return nil, false, nil
	}

	g, err := encoding.DecodeGraph(&buf, encoding.MediaTypeNTriples)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decoding %s", name)
	}
	g = g.ReadOnly()
	s.cache.Set(string(key), g, gen)
	return g, true, nil
}

// Head reports whether the named graph exists.
func (s *GraphStore) Head(ctx context.Context, name graphity.GraphName) (bool, error) {
	var found bool
	err := s.view(ctx, func(graphs *bolt.Bucket) error {
		found = graphs.Bucket(graphKey(name)) != nil
		return nil
	})
	return found, errors.Wrapf(err, "reading %s", name)
}

// Put replaces the named graph with g.
func (s *GraphStore) Put(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (created bool, err error) {
	err = s.update(ctx, name, func(graphs *bolt.Bucket) error {
		key := graphKey(name)
		created = graphs.Bucket(key) == nil
		if !created {
			if err := graphs.DeleteBucket(key); err != nil {
				return err
			}
		}
		return putTriples(graphs, key, g)
	})
	return created, errors.Wrapf(err, "writing %s", name)
}

// Post adds the triples of g to the named graph.
func (s *GraphStore) Post(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (created bool, err error) {
	err = s.update(ctx, name, func(graphs *bolt.Bucket) error {
		created = graphs.Bucket(graphKey(name)) == nil
		return putTriples(graphs, graphKey(name), g)
	})
	return created, errors.Wrapf(err, "writing %s", name)
}

func putTriples(graphs *bolt.Bucket, key []byte, g *rdf.Graph) error {
	b, err := graphs.CreateBucketIfNotExists(key)
	if err != nil {
		return err
	}
	g.Each(func(t rdf.Triple) bool {
		stmt := []byte(t.String())
		sum := blake3.Sum256(stmt)
		err = b.Put(sum[:], stmt)
		return err == nil
	})
	return err
}

// Delete removes the named graph.
func (s *GraphStore) Delete(ctx context.Context, name graphity.GraphName) (deleted bool, err error) {
	err = s.update(ctx, name, func(graphs *bolt.Bucket) error {
		if graphs.Bucket(graphKey(name)) == nil {
			return nil
		}
		deleted = true
		return graphs.DeleteBucket(graphKey(name))
	})
	return deleted, errors.Wrapf(err, "deleting %s", name)
}

// Patch is not supported.
func (s *GraphStore) Patch(ctx context.Context, name graphity.GraphName, g *rdf.Graph) error {
	return graphity.UnsupportedPatchError(name)
}

// Graphs returns the names of the stored graphs in key order.
func (s *GraphStore) Graphs(ctx context.Context) ([]graphity.GraphName, error) {
	var names []graphity.GraphName
	err := s.view(ctx, func(graphs *bolt.Bucket) error {
		return graphs.ForEach(func(k, _ []byte) error {
			if bytes.Equal(k, defaultGraphKey) {
				names = append(names, graphity.DefaultGraph)
				return nil
			}
			name, err := graphity.NamedGraph(string(k))
			if err != nil {
				return err
			}
			names = append(names, name)
			return nil
		})
	})
	return names, err
}

// graphCache holds decoded read-only graphs by bucket key. Each key has a
// generation which Delete advances; Set only stores a graph read under the
// current generation, so a read racing a write cannot cache stale data.
type graphCache struct {
	mu     sync.RWMutex
	graphs map[string]*rdf.Graph
	gens   map[string]uint64
}

func newGraphCache() *graphCache {
	return &graphCache{
		graphs: make(map[string]*rdf.Graph),
		gens:   make(map[string]uint64),
	}
}

func (c *graphCache) Get(key string) (*rdf.Graph, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graphs[key], c.gens[key]
}

func (c *graphCache) Set(key string, g *rdf.Graph, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] == gen {
		c.graphs[key] = g
	}
}

func (c *graphCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.graphs, key)
	c.gens[key]++
}
