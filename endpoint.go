// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/logger"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/molecula/graphity/tracing"
)

// QueryRequest is a protocol request for one query.
type QueryRequest struct {
	// Method is the HTTP method the query arrived with.
	Method  string
	Query   *sparql.Query
	Dataset sparql.Dataset

	// Header values which drive negotiation and preconditions.
	Accept      string
	IfMatch     string
	IfNoneMatch string
}

// QueryResponse is the outcome of a query. Only a 200 response carries a
// body; Encode writes it.
type QueryResponse struct {
	Status    int
	Kind      sparql.Kind
	Variant   Variant
	Validator Validator

	Results *sparql.ResultSet
	Graph   *rdf.Graph
}

// HasBody reports whether the response carries a representation.
func (r *QueryResponse) HasBody() bool {
	return r.Status == http.StatusOK && !r.Variant.IsZero()
}

// Encode writes the response body in the negotiated variant.
func (r *QueryResponse) Encode(w io.Writer) error {
	switch {
	case !r.HasBody():
		return nil
	case r.Results != nil:
		r.Results.Reset()
		return encoding.EncodeResults(w, r.Variant.MediaType, r.Results)
	case r.Graph != nil:
		return encoding.EncodeGraph(w, r.Variant.MediaType, r.Graph)
	}
	return errors.New(errors.ErrUncoded, "response has neither results nor graph")
}

// QueryEndpoint executes queries against an Engine on behalf of the SPARQL
// protocol handler. It clamps result sizes, computes validators and applies
// conditional request and content negotiation rules.
type QueryEndpoint struct {
	uri    string
	engine sparql.Engine

	registry           *ServiceContextRegistry
	resultLimit        int64
	conditionalResults bool
	conditionalGraphs  bool
	logger             logger.Logger
}

// QueryEndpointOption is a functional option type for QueryEndpoint.
type QueryEndpointOption func(e *QueryEndpoint) error

// OptQueryEndpointRegistry registers the endpoint URI in r as a known
// endpoint.
func OptQueryEndpointRegistry(r *ServiceContextRegistry) QueryEndpointOption {
	return func(e *QueryEndpoint) error {
		e.registry = r
		return nil
	}
}

// OptQueryEndpointResultLimit caps the LIMIT of SELECT and ASK queries. Zero
// disables the cap.
func OptQueryEndpointResultLimit(max int64) QueryEndpointOption {
	return func(e *QueryEndpoint) error {
		if max < 0 {
			return errors.Newf(ErrBadRequest, "result limit must not be negative: %d", max)
		}
		e.resultLimit = max
		return nil
	}
}

// OptQueryEndpointConditionalResults enables validators and conditional
// requests for SELECT and ASK responses.
func OptQueryEndpointConditionalResults(enabled bool) QueryEndpointOption {
	return func(e *QueryEndpoint) error {
		e.conditionalResults = enabled
		return nil
	}
}

// OptQueryEndpointConditionalGraphs enables validators and conditional
// requests for CONSTRUCT and DESCRIBE responses.
func OptQueryEndpointConditionalGraphs(enabled bool) QueryEndpointOption {
	return func(e *QueryEndpoint) error {
		e.conditionalGraphs = enabled
		return nil
	}
}

func OptQueryEndpointLogger(l logger.Logger) QueryEndpointOption {
	return func(e *QueryEndpoint) error {
		e.logger = l
		return nil
	}
}

// NewQueryEndpoint returns an endpoint serving uri from engine.
func NewQueryEndpoint(uri string, engine sparql.Engine, opts ...QueryEndpointOption) (*QueryEndpoint, error) {
	if engine == nil {
		return nil, errors.New(ErrBadRequest, "query engine is required")
	}
	e := &QueryEndpoint{
		uri:                uri,
		engine:             engine,
		conditionalResults: true,
		logger:             logger.NopLogger,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	if e.registry != nil {
		if err := e.registry.AddEndpoint(uri); err != nil {
			return nil, errors.Wrap(err, "registering endpoint")
		}
	}
	return e, nil
}

// URI returns the URI the endpoint was registered under.
func (e *QueryEndpoint) URI() string { return e.uri }

// Query executes req.
func (e *QueryEndpoint) Query(ctx context.Context, req *QueryRequest) (resp *QueryResponse, err error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "QueryEndpoint.Query")
	defer span.Finish()
	defer func() {
		var status int
		switch {
		case err != nil:
			status = StatusFromError(err)
		case resp != nil:
			status = resp.Status
		default:
			return
		}
		CounterQueryResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	}()

	if req == nil || req.Query == nil {
		return nil, errors.New(ErrBadRequest, "no query given")
	}
	kind := req.Query.Kind()
	span.LogKV("kind", kind.String())
	CounterQueries.WithLabelValues(kind.String()).Inc()

	switch kind {
	case sparql.Select, sparql.Ask:
		return e.queryResults(ctx, req)
	case sparql.Construct, sparql.Describe:
		return e.queryGraph(ctx, req)
	}
	return nil, errors.New(ErrBadRequest, "query is not a SELECT, ASK, CONSTRUCT or DESCRIBE query")
}

func (e *QueryEndpoint) queryResults(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	q := req.Query.ClampLimit(e.resultLimit)
	if q != req.Query {
		e.logger.Debugf("limited query to %d results", e.resultLimit)
	}

	rs, err := e.engine.Select(ctx, q, req.Dataset)
	if err != nil {
		return nil, errors.Wrap(err, "executing query")
	} else if rs == nil {
		rs = sparql.NewResultSet(nil)
	}

	resp := &QueryResponse{Kind: q.Kind(), Results: rs}
	if e.conditionalResults {
		resp.Validator = Fingerprint(rs)
		if status := evaluatePreconditions(req, resp.Validator); status != 0 {
			resp.Status = status
			return resp, nil
		}
	}

	if resp.Variant, err = Negotiate(ResultSetVariants, req.Accept); err != nil {
		return nil, err
	}
	resp.Status = http.StatusOK
	return resp, nil
}

func (e *QueryEndpoint) queryGraph(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	g, err := e.engine.Construct(ctx, req.Query, req.Dataset)
	if err != nil {
		return nil, errors.Wrap(err, "executing query")
	} else if g == nil {
		g = rdf.NewGraph()
	}

	resp := &QueryResponse{Kind: req.Query.Kind(), Graph: g.ReadOnly()}
	if e.conditionalGraphs {
		resp.Validator = FingerprintGraph(g)
		if status := evaluatePreconditions(req, resp.Validator); status != 0 {
			resp.Status = status
			return resp, nil
		}
	}

	if resp.Variant, err = Negotiate(GraphVariants, req.Accept); err != nil {
		return nil, err
	}
	resp.Status = http.StatusOK
	return resp, nil
}

// evaluatePreconditions returns 304 or 412 when the request's conditional
// headers short-circuit it, and zero otherwise. Every query method is a
// retrieval, so a matching If-None-Match yields 304.
func evaluatePreconditions(req *QueryRequest, v Validator) int {
	if req.IfMatch != "" && !v.Matches(req.IfMatch, false) {
		return http.StatusPreconditionFailed
	}
	if req.IfNoneMatch != "" && v.Matches(req.IfNoneMatch, true) {
		switch req.Method {
		case "", http.MethodGet, http.MethodHead, http.MethodPost:
			return http.StatusNotModified
		}
		return http.StatusPreconditionFailed
	}
	return 0
}
