// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/errors"
	"github.com/stretchr/testify/require"
)

func TestServiceContextRegistry(t *testing.T) {
	const uri = "http://example.com/sparql"

	t.Run("MergeKeepsCredentials", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		require.NoError(t, r.SetCredentials(uri, "u", "p"))
		require.NoError(t, r.AddEndpoint(uri))

		sc, ok := r.Lookup(uri)
		require.True(t, ok)
		require.Equal(t, &graphity.Credentials{Username: "u", Password: "p"}, sc.Credentials)
		require.True(t, sc.KnownEndpoint)
	})

	t.Run("CredentialsOverwrite", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		require.NoError(t, r.AddEndpoint(uri))
		require.NoError(t, r.Register(uri, &graphity.Credentials{Username: "a", Password: "1"}))
		require.NoError(t, r.Register(uri, &graphity.Credentials{Username: "b", Password: "2"}))

		sc, _ := r.Lookup(uri)
		require.Equal(t, "b", sc.Credentials.Username)
		require.True(t, sc.KnownEndpoint)
	})

	t.Run("LookupReturnsCopy", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		require.NoError(t, r.SetCredentials(uri, "u", "p"))
		sc, _ := r.Lookup(uri)
		sc.Credentials.Password = "changed"
		require.Equal(t, "p", r.Credentials(uri).Password)
	})

	t.Run("Missing", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		_, ok := r.Lookup(uri)
		require.False(t, ok)
		require.Nil(t, r.Credentials(uri))

		var nilRegistry *graphity.ServiceContextRegistry
		require.Nil(t, nilRegistry.Credentials(uri))
	})

	t.Run("Invalid", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		require.True(t, errors.Is(r.AddEndpoint(""), graphity.ErrBadRequest))
		require.True(t, errors.Is(r.SetCredentials(uri, "", "p"), graphity.ErrBadRequest))
	})

	t.Run("Endpoints", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		require.NoError(t, r.AddEndpoint("http://b.example.com/sparql"))
		require.NoError(t, r.AddEndpoint("http://a.example.com/sparql"))
		require.NoError(t, r.SetCredentials("http://c.example.com/store", "u", "p"))
		require.Equal(t, []string{"http://a.example.com/sparql", "http://b.example.com/sparql"}, r.Endpoints())
	})

	t.Run("Concurrent", func(t *testing.T) {
		r := graphity.NewServiceContextRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				u := fmt.Sprintf("http://example.com/%d", i%4)
				_ = r.SetCredentials(u, "u", "p")
				_ = r.AddEndpoint(u)
				r.Lookup(u)
				r.Endpoints()
			}(i)
		}
		wg.Wait()
		require.Len(t, r.Endpoints(), 4)
	})
}
