// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package inmem implements a graph store held in memory.
package inmem

import (
	"context"
	"sync"

	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash/v2"
	"github.com/molecula/graphity"
	"github.com/molecula/graphity/rdf"
)

// Ensure type implements interface.
var _ graphity.GraphStore = (*GraphStore)(nil)

// GraphStore keeps read-only graphs in an immutable map. Readers take a
// snapshot of the map and never block writers for longer than a pointer
// swap.
type GraphStore struct {
	mu     sync.Mutex // serializes writers
	graphs *immutable.Map[string, *rdf.Graph]
}

// NewGraphStore returns an empty store.
func NewGraphStore() *GraphStore {
	return &GraphStore{graphs: immutable.NewMap[string, *rdf.Graph](graphHasher{})}
}

func (s *GraphStore) snapshot() *immutable.Map[string, *rdf.Graph] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphs
}

func key(name graphity.GraphName) string {
	if name.IsDefault() {
		return ""
	}
	return name.IRI()
}

// Get returns the named graph.
func (s *GraphStore) Get(ctx context.Context, name graphity.GraphName) (*rdf.Graph, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	g, ok := s.snapshot().Get(key(name))
	return g, ok, nil
}

// Head reports whether the named graph exists.
func (s *GraphStore) Head(ctx context.Context, name graphity.GraphName) (bool, error) {
	_, ok, err := s.Get(ctx, name)
	return ok, err
}

// Put replaces the named graph with g.
func (s *GraphStore) Put(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (bool, error) {
	return s.update(ctx, name, func(*rdf.Graph) (*rdf.Graph, error) {
		return g.ReadOnly(), nil
	})
}

// Post merges g into the named graph.
func (s *GraphStore) Post(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (bool, error) {
	return s.update(ctx, name, func(prev *rdf.Graph) (*rdf.Graph, error) {
		if prev == nil {
			return g.ReadOnly(), nil
		}
		merged := prev.Clone()
		if err := merged.Merge(g); err != nil {
			return nil, err
		}
		return merged.ReadOnly(), nil
	})
}

// update stores the graph returned by fn and reports whether the graph was
// created.
func (s *GraphStore) update(ctx context.Context, name graphity.GraphName, fn func(prev *rdf.Graph) (*rdf.Graph, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _ := s.graphs.Get(key(name))
	next, err := fn(prev)
	if err != nil {
		return false, err
	}
	s.graphs = s.graphs.Set(key(name), next)
	return prev == nil, nil
}

// Delete removes the named graph.
func (s *GraphStore) Delete(ctx context.Context, name graphity.GraphName) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graphs.Get(key(name)); !ok {
		return false, nil
	}
	s.graphs = s.graphs.Delete(key(name))
	return true, nil
}

// Patch is not supported.
func (s *GraphStore) Patch(ctx context.Context, name graphity.GraphName, g *rdf.Graph) error {
	return graphity.UnsupportedPatchError(name)
}

// Len returns the number of graphs, including the default graph if set.
func (s *GraphStore) Len() int { return s.snapshot().Len() }

// graphHasher hashes graph keys with xxhash.
type graphHasher struct{}

func (graphHasher) Hash(key string) uint32 {
	return uint32(xxhash.Sum64String(key))
}

func (graphHasher) Equal(a, b string) bool { return a == b }
