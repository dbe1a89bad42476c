// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package http_test

import (
	"bytes"
	"context"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/http"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/molecula/graphity/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveFunc starts a server answering with fn and counts the requests it
// receives.
func serveFunc(t *testing.T, fn gohttp.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		atomic.AddInt32(&hits, 1)
		fn(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func mustGraphStoreClient(t *testing.T, uri string, opts ...http.GraphStoreClientOption) *http.GraphStoreClient {
	t.Helper()
	c, err := http.NewGraphStoreClient(uri, opts...)
	require.NoError(t, err)
	return c
}

func TestNewGraphStoreClient(t *testing.T) {
	_, err := http.NewGraphStoreClient("relative/path")
	require.True(t, errors.Is(err, graphity.ErrBadRequest))

	_, err = http.NewGraphStoreClient("http://example.com/service", http.OptGraphStoreClientBasicAuth("", "pw"))
	require.True(t, errors.Is(err, graphity.ErrBadRequest))

	c := mustGraphStoreClient(t, "http://example.com/service")
	require.Equal(t, "http://example.com/service", c.URI())
}

func TestGraphStoreClient_Addressing(t *testing.T) {
	var queries []string
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.WriteHeader(gohttp.StatusNoContent)
	})
	ctx := context.Background()
	c := mustGraphStoreClient(t, srv.URL+"/service")

	_, err := c.Delete(ctx, graphity.DefaultGraph)
	require.NoError(t, err)
	_, err = c.Delete(ctx, test.MustNamedGraph(t, "http://example.com/g?x=1"))
	require.NoError(t, err)

	require.Equal(t, []string{"default=", "graph=http%3A%2F%2Fexample.com%2Fg%3Fx%3D1"}, queries)
}

func TestGraphStoreClient_NotFound(t *testing.T) {
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gohttp.NotFound(w, r)
	})
	ctx := context.Background()
	c := mustGraphStoreClient(t, srv.URL)
	name := test.MustNamedGraph(t, "http://example.com/g")

	g, ok, err := c.Get(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, g)

	ok, err = c.Head(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Delete(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)

	// A missing graph is an error for writes.
	_, err = c.Put(ctx, name, test.Graph(1))
	var re *graphity.RequestError
	require.True(t, errors.As(err, &re))
	require.True(t, re.IsNotFound())
}

func TestGraphStoreClient_ServerError(t *testing.T) {
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gohttp.Error(w, "boom", gohttp.StatusServiceUnavailable)
	})
	_, _, err := mustGraphStoreClient(t, srv.URL).Get(context.Background(), graphity.DefaultGraph)

	var re *graphity.RequestError
	require.True(t, errors.As(err, &re))
	require.True(t, re.IsServerError())
	require.Equal(t, gohttp.StatusServiceUnavailable, re.StatusCode)
	require.Equal(t, "Service Unavailable", re.Reason)
	require.Equal(t, gohttp.MethodGet, re.Method)
}

func TestGraphStoreClient_Redirect(t *testing.T) {
	target, targetHits := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusOK)
	})
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gohttp.Redirect(w, r, target.URL, gohttp.StatusFound)
	})

	_, _, err := mustGraphStoreClient(t, srv.URL).Get(context.Background(), graphity.DefaultGraph)
	var re *graphity.RequestError
	require.True(t, errors.As(err, &re))
	require.True(t, re.IsRedirect())
	require.Equal(t, int32(0), atomic.LoadInt32(targetHits))
}

func TestGraphStoreClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(gohttp.NotFoundHandler())
	uri := srv.URL
	srv.Close()

	c := mustGraphStoreClient(t, uri)
	g, ok, err := c.Get(context.Background(), graphity.DefaultGraph)
	require.Error(t, err)
	require.True(t, graphity.IsTransportError(err))
	require.False(t, ok)
	require.Nil(t, g)

	_, err = c.Delete(context.Background(), graphity.DefaultGraph)
	require.True(t, graphity.IsTransportError(err))
}

func TestGraphStoreClient_Canceled(t *testing.T) {
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mustGraphStoreClient(t, srv.URL).Head(ctx, graphity.DefaultGraph)
	require.True(t, graphity.IsTransportError(err))
	require.True(t, errors.IsError(err, context.Canceled))
}

func TestGraphStoreClient_Credentials(t *testing.T) {
	var user, pass string
	var hasAuth bool
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		user, pass, hasAuth = r.BasicAuth()
		w.WriteHeader(gohttp.StatusNoContent)
	})
	ctx := context.Background()
	registry := graphity.NewServiceContextRegistry()
	c := mustGraphStoreClient(t, srv.URL, http.OptGraphStoreClientRegistry(registry))

	_, err := c.Head(ctx, graphity.DefaultGraph)
	require.NoError(t, err)
	require.False(t, hasAuth)

	// Credentials registered after construction are used.
	require.NoError(t, registry.SetCredentials(srv.URL, "alice", "secret"))
	_, err = c.Head(ctx, graphity.DefaultGraph)
	require.NoError(t, err)
	require.True(t, hasAuth)
	require.Equal(t, "alice", user)
	require.Equal(t, "secret", pass)

	// Explicit credentials win over the registry.
	c = mustGraphStoreClient(t, srv.URL,
		http.OptGraphStoreClientRegistry(registry),
		http.OptGraphStoreClientBasicAuth("bob", "pw"))
	_, err = c.Head(ctx, graphity.DefaultGraph)
	require.NoError(t, err)
	require.Equal(t, "bob", user)
}

func TestGraphStoreClient_Write(t *testing.T) {
	var body []byte
	var contentType string
	status := gohttp.StatusCreated
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		contentType = r.Header.Get("Content-Type")
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		body = buf.Bytes()
		w.WriteHeader(status)
	})
	ctx := context.Background()
	c := mustGraphStoreClient(t, srv.URL)
	name := test.MustNamedGraph(t, "http://example.com/g")

	created, err := c.Put(ctx, name, test.Graph(2))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, encoding.MediaTypeNTriples, contentType)

	g, err := encoding.DecodeGraph(bytes.NewReader(body), contentType)
	require.NoError(t, err)
	require.True(t, g.Equal(test.Graph(2)))

	status = gohttp.StatusNoContent
	created, err = c.Post(ctx, name, test.Graph(1))
	require.NoError(t, err)
	require.False(t, created)

	status = gohttp.StatusOK
	created, err = c.Put(ctx, name, nil)
	require.NoError(t, err)
	require.False(t, created)
	require.Empty(t, body)
}

func TestGraphStoreClient_Get(t *testing.T) {
	t.Run("RDFXML", func(t *testing.T) {
		srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
			assert.Contains(t, r.Header.Get("Accept"), encoding.MediaTypeNTriples)
			w.Header().Set("Content-Type", encoding.MediaTypeRDFXML+"; charset=UTF-8")
			assert.NoError(t, encoding.EncodeGraph(w, encoding.MediaTypeRDFXML, test.Graph(3)))
		})
		g, ok, err := mustGraphStoreClient(t, srv.URL).Get(context.Background(), graphity.DefaultGraph)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, g.IsReadOnly())
		require.True(t, g.Equal(test.Graph(3)))
	})

	t.Run("NoContentType", func(t *testing.T) {
		srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte("ignored"))
		})
		g, ok, err := mustGraphStoreClient(t, srv.URL).Get(context.Background(), graphity.DefaultGraph)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 0, g.Len())
	})

	t.Run("UnknownContentType", func(t *testing.T) {
		srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte("a,b,c\n"))
		})
		_, _, err := mustGraphStoreClient(t, srv.URL).Get(context.Background(), graphity.DefaultGraph)
		require.True(t, errors.Is(err, graphity.ErrDecodingFailure))
	})
}

func TestGraphStoreClient_Patch(t *testing.T) {
	srv, hits := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusNoContent)
	})
	err := mustGraphStoreClient(t, srv.URL).Patch(context.Background(), graphity.DefaultGraph, test.Graph(1))
	require.True(t, errors.Is(err, graphity.ErrUnsupportedOperation))
	require.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestQueryClient(t *testing.T) {
	ctx := context.Background()
	var lastReq *gohttp.Request
	srv, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.NoError(t, r.ParseForm())
		lastReq = r
		q := sparql.MustParse(r.Form.Get("query"))
		if q.Kind().ReturnsGraph() {
			w.Header().Set("Content-Type", encoding.MediaTypeNTriples)
			assert.NoError(t, encoding.EncodeGraph(w, encoding.MediaTypeNTriples, test.Graph(2)))
			return
		}
		w.Header().Set("Content-Type", encoding.MediaTypeResultsJSON)
		rs := sparql.NewResultSet([]string{"x"}, sparql.Binding{"x": rdf.Literal("1")})
		assert.NoError(t, encoding.EncodeResults(w, encoding.MediaTypeResultsJSON, rs))
	})

	registry := graphity.NewServiceContextRegistry()
	require.NoError(t, registry.SetCredentials(srv.URL+"/sparql", "alice", "secret"))
	c, err := http.NewQueryClient(srv.URL+"/sparql", http.OptQueryClientRegistry(registry))
	require.NoError(t, err)

	t.Run("Select", func(t *testing.T) {
		ds := sparql.Dataset{DefaultGraphs: []string{"http://example.com/d"}, NamedGraphs: []string{"http://example.com/n"}}
		rs, err := c.Select(ctx, sparql.MustParse("SELECT ?x WHERE { ?x ?p ?o }"), ds)
		require.NoError(t, err)
		require.Equal(t, 1, rs.Len())

		require.Equal(t, gohttp.MethodGet, lastReq.Method)
		require.Equal(t, "/sparql", lastReq.URL.Path)
		require.Equal(t, "http://example.com/d", lastReq.Form.Get("default-graph-uri"))
		require.Equal(t, "http://example.com/n", lastReq.Form.Get("named-graph-uri"))
		require.True(t, strings.HasPrefix(lastReq.Header.Get("Accept"), encoding.MediaTypeResultsJSON))
		user, _, _ := lastReq.BasicAuth()
		require.Equal(t, "alice", user)
	})

	t.Run("Construct", func(t *testing.T) {
		g, err := c.Construct(ctx, sparql.MustParse("CONSTRUCT WHERE { ?s ?p ?o }"), sparql.Dataset{})
		require.NoError(t, err)
		require.True(t, g.Equal(test.Graph(2)))
		require.True(t, strings.HasPrefix(lastReq.Header.Get("Accept"), encoding.MediaTypeNTriples))
	})

	t.Run("LongQuery", func(t *testing.T) {
		long := "SELECT ?x WHERE { ?x ?p ?o } # " + strings.Repeat("x", 5000)
		_, err := c.Select(ctx, sparql.MustParse(long), sparql.Dataset{})
		require.NoError(t, err)
		require.Equal(t, gohttp.MethodPost, lastReq.Method)
		require.Equal(t, long, lastReq.PostForm.Get("query"))
	})
}

// A failing remote endpoint behind the handler is reported as a bad gateway.
func TestQueryClient_Federated(t *testing.T) {
	remote, _ := serveFunc(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		gohttp.Error(w, "down", gohttp.StatusServiceUnavailable)
	})
	c, err := http.NewQueryClient(remote.URL)
	require.NoError(t, err)

	_, err = c.Select(context.Background(), sparql.MustParse("ASK {}"), sparql.Dataset{})
	var re *graphity.RequestError
	require.True(t, errors.As(err, &re))
	require.Equal(t, gohttp.StatusServiceUnavailable, re.StatusCode)

	base := mustServe(t, c)
	resp, _ := do(t, "GET", queryURL(base, "SELECT * WHERE { ?s ?p ?o }"), nil, nil)
	require.Equal(t, gohttp.StatusBadGateway, resp.StatusCode)
}
