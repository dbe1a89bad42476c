// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package rdf_test

import (
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
	"github.com/stretchr/testify/require"
)

func TestTermString(t *testing.T) {
	tests := []struct {
		term rdf.Term
		exp  string
	}{
		{rdf.IRI("http://example.com/s"), "<http://example.com/s>"},
		{rdf.Blank("b0"), "_:b0"},
		{rdf.Literal("plain"), `"plain"`},
		{rdf.LangLiteral("chat", "fr"), `"chat"@fr`},
		{rdf.TypedLiteral("1", "http://www.w3.org/2001/XMLSchema#integer"), `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{rdf.TypedLiteral("s", rdf.XSDString), `"s"`},
		{rdf.Term{}, ""},
	}
	for _, test := range tests {
		require.Equal(t, test.exp, test.term.String())
	}
}

func TestTermDatatype(t *testing.T) {
	require.Equal(t, rdf.XSDString, rdf.Literal("x").Datatype())
	require.Equal(t, rdf.RDFLangString, rdf.LangLiteral("x", "en").Datatype())
	require.Equal(t, "", rdf.IRI("http://example.com/").Datatype())
}

func TestTermFromQuad(t *testing.T) {
	for _, term := range []rdf.Term{
		rdf.IRI("http://example.com/s"),
		rdf.Blank("n1"),
		rdf.Literal("v"),
		rdf.LangLiteral("v", "en"),
		rdf.TypedLiteral("2", "http://www.w3.org/2001/XMLSchema#int"),
	} {
		got, err := rdf.TermFromQuad(term.Quad())
		require.NoError(t, err)
		require.Equal(t, term, got)
	}

	_, err := rdf.TermFromQuad(nil)
	require.True(t, errors.Is(err, rdf.ErrInvalidTerm))

	got, err := rdf.TermFromQuad(quad.Int(3))
	require.NoError(t, err)
	require.Equal(t, "3", got.Value())
	require.True(t, got.IsLiteral())
}

func TestTripleValidate(t *testing.T) {
	s, p, o := rdf.IRI("http://example.com/s"), rdf.IRI("http://example.com/p"), rdf.Literal("o")

	_, err := rdf.NewTriple(s, p, o)
	require.NoError(t, err)

	_, err = rdf.NewTriple(o, p, o)
	require.True(t, errors.Is(err, rdf.ErrInvalidTriple))

	_, err = rdf.NewTriple(s, rdf.Blank("p"), o)
	require.True(t, errors.Is(err, rdf.ErrInvalidTriple))

	_, err = rdf.NewTriple(s, p, rdf.Term{})
	require.True(t, errors.Is(err, rdf.ErrInvalidTriple))
}

func TestGraph(t *testing.T) {
	t1 := rdf.Triple{rdf.IRI("http://example.com/a"), rdf.IRI("http://example.com/p"), rdf.Literal("1")}
	t2 := rdf.Triple{rdf.IRI("http://example.com/b"), rdf.IRI("http://example.com/p"), rdf.Literal("2")}

	g := rdf.NewGraph(t2, t1, t1)
	require.Equal(t, 2, g.Len())
	require.Equal(t, []rdf.Triple{t1, t2}, g.Triples())
	require.True(t, g.Contains(t1))

	t.Run("ReadOnly", func(t *testing.T) {
		ro := g.ReadOnly()
		require.True(t, ro.IsReadOnly())
		require.False(t, g.IsReadOnly())

		err := ro.Add(t1)
		require.True(t, errors.Is(err, rdf.ErrReadOnlyGraph))
		require.True(t, errors.Is(ro.Delete(t1), rdf.ErrReadOnlyGraph))

		// Later writes to the source do not leak into the view.
		t3 := rdf.Triple{rdf.IRI("http://example.com/c"), rdf.IRI("http://example.com/p"), rdf.Literal("3")}
		require.NoError(t, g.Add(t3))
		require.Equal(t, 3, g.Len())
		require.Equal(t, 2, ro.Len())
		require.NoError(t, g.Delete(t3))
	})

	t.Run("Clone", func(t *testing.T) {
		c := g.ReadOnly().Clone()
		require.False(t, c.IsReadOnly())
		require.NoError(t, c.Delete(t1))
		require.Equal(t, 1, c.Len())
		require.Equal(t, 2, g.Len())
	})

	t.Run("EqualMerge", func(t *testing.T) {
		a := rdf.NewGraph(t1)
		require.False(t, a.Equal(g))
		require.NoError(t, a.Merge(rdf.NewGraph(t2)))
		require.True(t, a.Equal(g))
	})

	t.Run("String", func(t *testing.T) {
		exp := "<http://example.com/a> <http://example.com/p> \"1\" .\n" +
			"<http://example.com/b> <http://example.com/p> \"2\" .\n"
		require.Equal(t, exp, g.String())
	})

	t.Run("Zero", func(t *testing.T) {
		var empty rdf.Graph
		require.Equal(t, 0, empty.Len())
		require.Empty(t, empty.Triples())
		require.True(t, empty.Equal(rdf.NewGraph()))
	})
}
