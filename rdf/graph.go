// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package rdf

import (
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/molecula/graphity/errors"
)

// Graph is a set of triples kept in N-Triples order.
//
// A Graph may be populated with Add until it is handed out through ReadOnly.
// The triples live in an immutable sorted map, so a read-only view is a
// snapshot and never observes later writes to the graph it came from. A
// mutable Graph is not safe for concurrent writers; read-only graphs are safe
// to share.
type Graph struct {
	triples  *immutable.SortedMap[string, Triple] // keyed by N-Triples statement
	readOnly bool
}

// NewGraph returns a mutable graph holding triples. Invalid triples are
// skipped; use Add to see the validation error.
func NewGraph(triples ...Triple) *Graph {
	g := &Graph{}
	for _, t := range triples {
		_ = g.Add(t)
	}
	return g
}

func (g *Graph) m() *immutable.SortedMap[string, Triple] {
	if g.triples == nil {
		g.triples = immutable.NewSortedMap[string, Triple](nil)
	}
	return g.triples
}

// Add inserts t. Adding a triple already present is a no-op.
func (g *Graph) Add(t Triple) error {
	if g.readOnly {
		return errors.New(ErrReadOnlyGraph, "graph is read-only")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	g.triples = g.m().Set(t.String(), t)
	return nil
}

// Delete removes t if present.
func (g *Graph) Delete(t Triple) error {
	if g.readOnly {
		return errors.New(ErrReadOnlyGraph, "graph is read-only")
	}
	g.triples = g.m().Delete(t.String())
	return nil
}

// Merge adds every triple of other to g.
func (g *Graph) Merge(other *Graph) error {
	var err error
	other.Each(func(t Triple) bool {
		err = g.Add(t)
		return err == nil
	})
	return err
}

// ReadOnly returns a read-only view of the current contents of g.
func (g *Graph) ReadOnly() *Graph {
	if g.readOnly {
		return g
	}
	return &Graph{triples: g.m(), readOnly: true}
}

// Clone returns a mutable copy of g.
func (g *Graph) Clone() *Graph {
	return &Graph{triples: g.m()}
}

// IsReadOnly reports whether Add and Delete are rejected.
func (g *Graph) IsReadOnly() bool { return g.readOnly }

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil || g.triples == nil {
		return 0
	}
	return g.triples.Len()
}

// Contains reports whether t is in g.
func (g *Graph) Contains(t Triple) bool {
	if g == nil || g.triples == nil {
		return false
	}
	_, ok := g.triples.Get(t.String())
	return ok
}

// Each calls fn for each triple in order until fn returns false.
func (g *Graph) Each(fn func(Triple) bool) {
	if g == nil || g.triples == nil {
		return
	}
	itr := g.triples.Iterator()
	for !itr.Done() {
		_, t, _ := itr.Next()
		if !fn(t) {
			return
		}
	}
}

// Triples returns the triples in order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, g.Len())
	g.Each(func(t Triple) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Equal reports whether both graphs hold the same triples. Blank node labels
// are compared literally.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	equal := true
	g.Each(func(t Triple) bool {
		equal = other.Contains(t)
		return equal
	})
	return equal
}

// String returns the graph as an N-Triples document.
func (g *Graph) String() string {
	var sb strings.Builder
	g.Each(func(t Triple) bool {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
