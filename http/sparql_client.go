// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/logger"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/molecula/graphity/tracing"
)

const acceptResults = encoding.MediaTypeResultsJSON + ", " + encoding.MediaTypeResultsXML + ";q=0.9"

// maxGetURLLength is the longest request URL sent with GET. Longer queries
// are sent as a form POST.
const maxGetURLLength = 4096

// Ensure type implements interface.
var _ sparql.Engine = (*QueryClient)(nil)

// QueryClient evaluates queries on a remote SPARQL protocol endpoint.
type QueryClient struct {
	*remote
}

// QueryClientOption is a functional option type for QueryClient.
type QueryClientOption func(c *QueryClient) error

func OptQueryClientRegistry(r *graphity.ServiceContextRegistry) QueryClientOption {
	return func(c *QueryClient) error {
		c.registry = r
		return nil
	}
}

func OptQueryClientHTTPClient(hc *http.Client) QueryClientOption {
	return func(c *QueryClient) error {
		if hc == nil {
			return errors.New(graphity.ErrBadRequest, "nil HTTP client")
		}
		c.setHTTPClient(hc)
		return nil
	}
}

func OptQueryClientLogger(l logger.Logger) QueryClientOption {
	return func(c *QueryClient) error {
		c.logger = l
		return nil
	}
}

// NewQueryClient returns a client for the SPARQL endpoint at endpointURI.
// Requests carry the credentials the registry holds for endpointURI.
func NewQueryClient(endpointURI string, opts ...QueryClientOption) (*QueryClient, error) {
	r, err := newRemote(endpointURI, serviceSPARQL)
	if err != nil {
		return nil, err
	}
	c := &QueryClient{remote: r}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return c, nil
}

// Select evaluates a SELECT or ASK query.
func (c *QueryClient) Select(ctx context.Context, q *sparql.Query, ds sparql.Dataset) (*sparql.ResultSet, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "QueryClient.Select")
	defer span.Finish()

	resp, err := c.query(ctx, q, ds, acceptResults)
	if err != nil {
		return nil, err
	}
	defer drain(resp.Body)

	if !hasBody(resp) {
		return sparql.NewResultSet(nil), nil
	}
	rs, err := encoding.DecodeResults(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Wrap(err, "reading results")
	}
	return rs, nil
}

// Construct evaluates a CONSTRUCT or DESCRIBE query.
func (c *QueryClient) Construct(ctx context.Context, q *sparql.Query, ds sparql.Dataset) (*rdf.Graph, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "QueryClient.Construct")
	defer span.Finish()

	resp, err := c.query(ctx, q, ds, acceptGraph)
	if err != nil {
		return nil, err
	}
	defer drain(resp.Body)

	if !hasBody(resp) {
		return rdf.NewGraph().ReadOnly(), nil
	}
	g, err := encoding.DecodeGraph(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Wrap(err, "reading graph")
	}
	return g.ReadOnly(), nil
}

func (c *QueryClient) query(ctx context.Context, q *sparql.Query, ds sparql.Dataset, accept string) (*http.Response, error) {
	if q == nil {
		return nil, errors.New(graphity.ErrBadRequest, "no query given")
	}
	params := url.Values{"query": {q.String()}}
	if len(ds.DefaultGraphs) > 0 {
		params["default-graph-uri"] = ds.DefaultGraphs
	}
	if len(ds.NamedGraphs) > 0 {
		params["named-graph-uri"] = ds.NamedGraphs
	}

	var req *http.Request
	var err error
	if u := c.url(params); len(u) <= maxGetURLLength {
		req, err = c.newRequest(ctx, http.MethodGet, u, nil)
	} else {
		req, err = c.newRequest(ctx, http.MethodPost, c.URI(), strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", encoding.MediaTypeForm)
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	return c.executeRequest(req)
}
