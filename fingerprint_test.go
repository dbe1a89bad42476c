// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity_test

import (
	"regexp"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/stretchr/testify/require"
)

func rows() []sparql.Binding {
	return []sparql.Binding{
		{"s": rdf.IRI("http://example.com/a"), "o": rdf.Literal("1")},
		{"s": rdf.IRI("http://example.com/b"), "o": rdf.Literal("2")},
		{"s": rdf.IRI("http://example.com/c")},
	}
}

func TestFingerprint(t *testing.T) {
	vars := []string{"s", "o"}

	t.Run("Stable", func(t *testing.T) {
		a := graphity.Fingerprint(sparql.NewResultSet(vars, rows()...))
		b := graphity.Fingerprint(sparql.NewResultSet(vars, rows()...))
		require.Equal(t, a, b)
		require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), string(a))
		require.Equal(t, `"`+string(a)+`"`, a.ETag())
	})

	t.Run("RowOrder", func(t *testing.T) {
		r := rows()
		r[0], r[1] = r[1], r[0]
		a := graphity.Fingerprint(sparql.NewResultSet(vars, rows()...))
		b := graphity.Fingerprint(sparql.NewResultSet(vars, r...))
		require.NotEqual(t, a, b)
	})

	t.Run("Content", func(t *testing.T) {
		r := rows()
		r[2]["o"] = rdf.Literal("3")
		a := graphity.Fingerprint(sparql.NewResultSet(vars, rows()...))
		b := graphity.Fingerprint(sparql.NewResultSet(vars, r...))
		require.NotEqual(t, a, b)
	})

	t.Run("Vars", func(t *testing.T) {
		a := graphity.Fingerprint(sparql.NewResultSet(vars))
		b := graphity.Fingerprint(sparql.NewResultSet([]string{"o", "s"}))
		require.NotEqual(t, a, b)
	})

	t.Run("Rewound", func(t *testing.T) {
		rs := sparql.NewResultSet(vars, rows()...)
		rs.Next()
		graphity.Fingerprint(rs)
		require.Len(t, rs.Rows(), 3)
	})

	t.Run("Boolean", func(t *testing.T) {
		yes := graphity.Fingerprint(sparql.NewBooleanResult(true))
		no := graphity.Fingerprint(sparql.NewBooleanResult(false))
		require.NotEqual(t, yes, no)
		require.Equal(t, yes, graphity.Fingerprint(sparql.NewBooleanResult(true)))
	})
}

func TestFingerprintGraph(t *testing.T) {
	t1 := rdf.Triple{Subject: rdf.IRI("http://example.com/a"), Predicate: rdf.IRI("http://example.com/p"), Object: rdf.Literal("1")}
	t2 := rdf.Triple{Subject: rdf.IRI("http://example.com/b"), Predicate: rdf.IRI("http://example.com/p"), Object: rdf.Literal("2")}

	require.Equal(t, graphity.FingerprintGraph(rdf.NewGraph(t1, t2)), graphity.FingerprintGraph(rdf.NewGraph(t2, t1)))
	require.NotEqual(t, graphity.FingerprintGraph(rdf.NewGraph(t1)), graphity.FingerprintGraph(rdf.NewGraph(t1, t2)))
}

func TestValidatorMatches(t *testing.T) {
	v := graphity.Validator("abc")
	require.True(t, v.Matches(`"abc"`, false))
	require.True(t, v.Matches(`"x", "abc"`, false))
	require.True(t, v.Matches(`*`, false))
	require.True(t, v.Matches(`W/"abc"`, true))
	require.False(t, v.Matches(`W/"abc"`, false))
	require.False(t, v.Matches(`"abd"`, true))
	require.False(t, graphity.Validator("").Matches("*", true))
}
