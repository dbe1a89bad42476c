// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package test holds helpers shared by the tests of several packages.
package test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
	"github.com/stretchr/testify/require"
)

// Triple returns a triple about example.com resources.
func Triple(s, p string, o rdf.Term) rdf.Triple {
	return rdf.Triple{
		Subject:   rdf.IRI("http://example.com/" + s),
		Predicate: rdf.IRI("http://example.com/" + p),
		Object:    o,
	}
}

// Graph returns a mutable graph of n triples.
func Graph(n int) *rdf.Graph {
	g := rdf.NewGraph()
	for i := 0; i < n; i++ {
		if err := g.Add(Triple(fmt.Sprintf("s%d", i), "p", rdf.Literal(fmt.Sprint(i)))); err != nil {
			panic(err)
		}
	}
	return g
}

// MustNamedGraph returns a graph name for iri or fails t.
func MustNamedGraph(t testing.TB, iri string) graphity.GraphName {
	t.Helper()
	n, err := graphity.NamedGraph(iri)
	require.NoError(t, err)
	return n
}

// RunGraphStoreTests checks the behaviour every GraphStore shares.
// newStore must return an empty store.
func RunGraphStoreTests(t *testing.T, newStore func(t *testing.T) graphity.GraphStore) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		g, ok, err := s.Get(ctx, MustNamedGraph(t, "http://example.com/missing"))
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, g)

		ok, err = s.Head(ctx, MustNamedGraph(t, "http://example.com/missing"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		name := MustNamedGraph(t, "http://example.com/g1")
		in := Graph(3)
		require.NoError(t, in.Add(Triple("s0", "label", rdf.LangLiteral("zero", "en"))))
		require.NoError(t, in.Add(rdf.Triple{Subject: rdf.Blank("x"), Predicate: rdf.IRI("http://example.com/n"), Object: rdf.TypedLiteral("7", "http://www.w3.org/2001/XMLSchema#int")}))

		created, err := s.Put(ctx, name, in)
		require.NoError(t, err)
		require.True(t, created)

		out, ok, err := s.Get(ctx, name)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, out.IsReadOnly())
		require.Equal(t, in.String(), out.String())
		require.True(t, errors.Is(out.Add(Triple("a", "b", rdf.Literal("c"))), rdf.ErrReadOnlyGraph))

		ok, err = s.Head(ctx, name)
		require.NoError(t, err)
		require.True(t, ok)

		// Replacing an existing graph does not create it.
		created, err = s.Put(ctx, name, Graph(1))
		require.NoError(t, err)
		require.False(t, created)

		out, _, err = s.Get(ctx, name)
		require.NoError(t, err)
		require.Equal(t, 1, out.Len())
	})

	t.Run("Post", func(t *testing.T) {
		s := newStore(t)
		name := MustNamedGraph(t, "http://example.com/g2")

		created, err := s.Post(ctx, name, Graph(2))
		require.NoError(t, err)
		require.True(t, created)

		created, err = s.Post(ctx, name, rdf.NewGraph(Triple("extra", "p", rdf.IRI("http://example.com/o"))))
		require.NoError(t, err)
		require.False(t, created)

		out, ok, err := s.Get(ctx, name)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 3, out.Len())
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		name := MustNamedGraph(t, "http://example.com/g3")

		ok, err := s.Delete(ctx, name)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = s.Put(ctx, name, Graph(1))
		require.NoError(t, err)

		ok, err = s.Delete(ctx, name)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = s.Get(ctx, name)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("DefaultGraph", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, graphity.DefaultGraph, Graph(2))
		require.NoError(t, err)

		out, ok, err := s.Get(ctx, graphity.DefaultGraph)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 2, out.Len())

		// Named graphs are separate from the default graph.
		_, ok, err = s.Get(ctx, MustNamedGraph(t, "http://example.com/other"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("LargeLiteral", func(t *testing.T) {
		s := newStore(t)
		big := Triple("doc", "text", rdf.Literal(strings.Repeat("x", 40000)))
		in := Graph(1)
		require.NoError(t, in.Add(big))

		created, err := s.Put(ctx, graphity.DefaultGraph, in)
		require.NoError(t, err)
		require.True(t, created)

		// Posting the same statements again leaves a single copy.
		_, err = s.Post(ctx, graphity.DefaultGraph, rdf.NewGraph(big))
		require.NoError(t, err)

		out, ok, err := s.Get(ctx, graphity.DefaultGraph)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 2, out.Len())
		require.True(t, out.Contains(big))
	})

	t.Run("Patch", func(t *testing.T) {
		s := newStore(t)
		err := s.Patch(ctx, graphity.DefaultGraph, Graph(1))
		require.True(t, errors.Is(err, graphity.ErrUnsupportedOperation))
	})
}
