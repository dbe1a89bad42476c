// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package inmem_test

import (
	"context"
	"sync"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/inmem"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/test"
	"github.com/stretchr/testify/require"
)

func TestGraphStore(t *testing.T) {
	test.RunGraphStoreTests(t, func(t *testing.T) graphity.GraphStore {
		return inmem.NewGraphStore()
	})
}

func TestGraphStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	s := inmem.NewGraphStore()
	name := test.MustNamedGraph(t, "http://example.com/g")

	src := test.Graph(2)
	_, err := s.Put(ctx, name, src)
	require.NoError(t, err)

	// Writes to the caller's graph after Put are not stored.
	require.NoError(t, src.Add(test.Triple("late", "p", rdf.Literal("x"))))
	g, _, err := s.Get(ctx, name)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
}

func TestGraphStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	s := inmem.NewGraphStore()
	name := test.MustNamedGraph(t, "http://example.com/g")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Post(ctx, name, test.Graph(4))
			_, _, _ = s.Get(ctx, name)
		}()
	}
	wg.Wait()

	g, ok, err := s.Get(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, g.Len())
	require.Equal(t, 1, s.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = s.Get(cancelled, name)
	require.ErrorIs(t, err, context.Canceled)
}
