// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/logger"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/tracing"
)

// Metric labels for the remote services a client talks to.
const (
	serviceGraphStore = "graph_store"
	serviceSPARQL     = "sparql"
)

// acceptGraph lists the graph syntaxes the clients can decode.
const acceptGraph = encoding.MediaTypeNTriples + ", " + encoding.MediaTypeRDFXML + ";q=0.9"

// remote issues requests against one service URI. Credentials are looked up
// in the registry on every request, so credentials registered after the
// client was built are used.
type remote struct {
	rawURI  string
	uri     *url.URL
	service string

	httpClient *http.Client
	registry   *graphity.ServiceContextRegistry
	basicAuth  *graphity.Credentials
	logger     logger.Logger
}

func newRemote(uri, service string) (*remote, error) {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() {
		return nil, errors.Newf(graphity.ErrBadRequest, "invalid service URI %q", uri)
	}
	r := &remote{
		rawURI:  uri,
		uri:     u,
		service: service,
		logger:  logger.NopLogger,
	}
	r.setHTTPClient(&http.Client{})
	return r, nil
}

// setHTTPClient uses a copy of c which never follows redirects.
func (r *remote) setHTTPClient(c *http.Client) {
	cp := *c
	cp.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	r.httpClient = &cp
}

// URI returns the service URI.
func (r *remote) URI() string { return r.rawURI }

// url returns the service URI with params merged into its query string.
func (r *remote) url(params url.Values) string {
	u := *r.uri
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *remote) credentials() *graphity.Credentials {
	if r.basicAuth != nil {
		return r.basicAuth
	}
	return r.registry.Credentials(r.rawURI)
}

func (r *remote) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("User-Agent", "graphity/"+graphity.Version)
	if c := r.credentials(); c != nil {
		req.SetBasicAuth(c.Username, c.Password)
	}
	return req, nil
}

// executeRequest sends req. A response outside 2xx is drained, closed and
// returned as a *graphity.RequestError. A failure to exchange the request
// at all is a *graphity.TransportError. The caller closes the body of a
// successful response.
func (r *remote) executeRequest(req *http.Request) (*http.Response, error) {
	tracing.GlobalTracer.InjectHTTPHeaders(req)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	graphity.HistogramRemoteRequestDuration.WithLabelValues(r.service, req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		graphity.CounterRemoteRequests.WithLabelValues(r.service, req.Method, "transport_error").Inc()
		r.logger.Debugf("%s %s: %v", req.Method, req.URL, err)
		return nil, &graphity.TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	graphity.CounterRemoteRequests.WithLabelValues(r.service, req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return nil, graphity.NewRequestError(resp)
	}
	return resp, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

// hasBody reports whether a successful response carries a representation.
func hasBody(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusNoContent:
		return false
	}
	return resp.Header.Get("Content-Type") != ""
}

// Ensure type implements interface.
var _ graphity.GraphStore = (*GraphStoreClient)(nil)

// GraphStoreClient accesses a remote SPARQL graph store over HTTP.
type GraphStoreClient struct {
	*remote
}

// GraphStoreClientOption is a functional option type for GraphStoreClient.
type GraphStoreClientOption func(c *GraphStoreClient) error

// OptGraphStoreClientRegistry sets the registry credentials are resolved
// from. Without one, requests are only authenticated by explicit
// credentials.
func OptGraphStoreClientRegistry(r *graphity.ServiceContextRegistry) GraphStoreClientOption {
	return func(c *GraphStoreClient) error {
		c.registry = r
		return nil
	}
}

func OptGraphStoreClientHTTPClient(hc *http.Client) GraphStoreClientOption {
	return func(c *GraphStoreClient) error {
		if hc == nil {
			return errors.New(graphity.ErrBadRequest, "nil HTTP client")
		}
		c.setHTTPClient(hc)
		return nil
	}
}

// OptGraphStoreClientBasicAuth sets credentials which take precedence over
// the registry's.
func OptGraphStoreClientBasicAuth(username, password string) GraphStoreClientOption {
	return func(c *GraphStoreClient) error {
		if username == "" {
			return errors.New(graphity.ErrBadRequest, "username is required")
		}
		c.basicAuth = &graphity.Credentials{Username: username, Password: password}
		return nil
	}
}

func OptGraphStoreClientLogger(l logger.Logger) GraphStoreClientOption {
	return func(c *GraphStoreClient) error {
		c.logger = l
		return nil
	}
}

// NewGraphStoreClient returns a client for the graph store at baseURI.
func NewGraphStoreClient(baseURI string, opts ...GraphStoreClientOption) (*GraphStoreClient, error) {
	r, err := newRemote(baseURI, serviceGraphStore)
	if err != nil {
		return nil, err
	}
	c := &GraphStoreClient{remote: r}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return c, nil
}

// Get fetches the named graph. A graph the store does not have is reported
// as (nil, false, nil).
func (c *GraphStoreClient) Get(ctx context.Context, name graphity.GraphName) (*rdf.Graph, bool, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "GraphStoreClient.Get")
	defer span.Finish()

	req, err := c.newRequest(ctx, http.MethodGet, c.url(name.Values()), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", acceptGraph)

	resp, err := c.executeRequest(req)
	if isNotFound(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	defer drain(resp.Body)

	if !hasBody(resp) {
		return rdf.NewGraph().ReadOnly(), true, nil
	}
	g, err := encoding.DecodeGraph(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", name)
	}
	return g.ReadOnly(), true, nil
}

// Head reports whether the store has the named graph.
func (c *GraphStoreClient) Head(ctx context.Context, name graphity.GraphName) (bool, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "GraphStoreClient.Head")
	defer span.Finish()

	req, err := c.newRequest(ctx, http.MethodHead, c.url(name.Values()), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", acceptGraph)

	resp, err := c.executeRequest(req)
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	drain(resp.Body)
	return true, nil
}

// Put replaces the named graph with g. It reports whether the store created
// the graph.
func (c *GraphStoreClient) Put(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (bool, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "GraphStoreClient.Put")
	defer span.Finish()
	return c.write(ctx, http.MethodPut, name, g)
}

// Post merges g into the named graph. It reports whether the store created
// the graph.
func (c *GraphStoreClient) Post(ctx context.Context, name graphity.GraphName, g *rdf.Graph) (bool, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "GraphStoreClient.Post")
	defer span.Finish()
	return c.write(ctx, http.MethodPost, name, g)
}

func (c *GraphStoreClient) write(ctx context.Context, method string, name graphity.GraphName, g *rdf.Graph) (bool, error) {
	if g == nil {
		g = rdf.NewGraph()
	}
	var buf bytes.Buffer
	if err := encoding.EncodeGraph(&buf, encoding.MediaTypeNTriples, g); err != nil {
		return false, errors.Wrap(err, "encoding graph")
	}

	req, err := c.newRequest(ctx, method, c.url(name.Values()), &buf)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", encoding.MediaTypeNTriples)

	resp, err := c.executeRequest(req)
	if err != nil {
		return false, err
	}
	drain(resp.Body)
	return resp.StatusCode == http.StatusCreated, nil
}

// Delete removes the named graph. It reports false when the store did not
// have it.
func (c *GraphStoreClient) Delete(ctx context.Context, name graphity.GraphName) (bool, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "GraphStoreClient.Delete")
	defer span.Finish()

	req, err := c.newRequest(ctx, http.MethodDelete, c.url(name.Values()), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.executeRequest(req)
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	drain(resp.Body)
	return true, nil
}

// Patch is not supported; it fails without contacting the store.
func (c *GraphStoreClient) Patch(ctx context.Context, name graphity.GraphName, g *rdf.Graph) error {
	return graphity.UnsupportedPatchError(name)
}

func isNotFound(err error) bool {
	var re *graphity.RequestError
	return errors.As(err, &re) && re.IsNotFound()
}
