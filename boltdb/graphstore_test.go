// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/boltdb"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/test"
	"github.com/stretchr/testify/require"
)

func mustOpenGraphStore(t *testing.T, path string) *boltdb.GraphStore {
	t.Helper()
	s, err := boltdb.OpenGraphStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGraphStore(t *testing.T) {
	test.RunGraphStoreTests(t, func(t *testing.T) graphity.GraphStore {
		return mustOpenGraphStore(t, filepath.Join(t.TempDir(), "graphs.db"))
	})
}

func TestGraphStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "graphs.db")
	name := test.MustNamedGraph(t, "http://example.com/g")

	s := mustOpenGraphStore(t, path)
	_, err := s.Put(ctx, name, test.Graph(3))
	require.NoError(t, err)
	_, err = s.Put(ctx, graphity.DefaultGraph, test.Graph(1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, test.MustNamedGraph(t, "http://example.com/uncached"))
	require.True(t, errors.Is(err, boltdb.ErrGraphStoreClosed))

	s = mustOpenGraphStore(t, path)
	g, ok, err := s.Get(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, test.Graph(3).String(), g.String())

	names, err := s.Graphs(ctx)
	require.NoError(t, err)
	require.Equal(t, []graphity.GraphName{graphity.DefaultGraph, name}, names)
}

func TestGraphStoreCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	s := mustOpenGraphStore(t, filepath.Join(t.TempDir(), "graphs.db"))
	name := test.MustNamedGraph(t, "http://example.com/g")

	_, err := s.Put(ctx, name, test.Graph(1))
	require.NoError(t, err)
	first, _, err := s.Get(ctx, name)
	require.NoError(t, err)
	again, _, err := s.Get(ctx, name)
	require.NoError(t, err)
	require.Same(t, first, again)

	_, err = s.Post(ctx, name, test.Graph(2))
	require.NoError(t, err)
	after, _, err := s.Get(ctx, name)
	require.NoError(t, err)
	require.Equal(t, 2, after.Len())
	require.Equal(t, 1, first.Len())
}
