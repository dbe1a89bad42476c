// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/logger"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/molecula/graphity/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxQueryBytes bounds a query sent as an application/sparql-query body.
const maxQueryBytes = 1 << 20

// Handler represents an HTTP handler.
type Handler struct {
	Handler http.Handler

	logger logger.Logger

	// Keeps the query argument validators for each handler
	validators map[string]*queryValidationSpec

	endpoint *graphity.QueryEndpoint
	store    graphity.GraphStore
	registry *graphity.ServiceContextRegistry

	ln net.Listener

	closeTimeout time.Duration
	startedAt    time.Time

	server *http.Server
}

// handlerOption is a functional option type for Handler
type handlerOption func(h *Handler) error

func OptHandlerAllowedOrigins(origins []string) handlerOption {
	return func(h *Handler) error {
		if len(origins) == 0 {
			return nil
		}
		h.Handler = handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "DELETE", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Accept", "If-Match", "If-None-Match"}),
			handlers.ExposedHeaders([]string{"ETag", "X-Request-Id"}),
		)(h.Handler)
		return nil
	}
}

// OptHandlerQueryEndpoint sets the endpoint /sparql requests are served by.
func OptHandlerQueryEndpoint(e *graphity.QueryEndpoint) handlerOption {
	return func(h *Handler) error {
		h.endpoint = e
		return nil
	}
}

// OptHandlerGraphStore sets the store behind /service. Without one the
// graph store protocol answers 405.
func OptHandlerGraphStore(s graphity.GraphStore) handlerOption {
	return func(h *Handler) error {
		h.store = s
		return nil
	}
}

func OptHandlerRegistry(r *graphity.ServiceContextRegistry) handlerOption {
	return func(h *Handler) error {
		h.registry = r
		return nil
	}
}

func OptHandlerLogger(logger logger.Logger) handlerOption {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

func OptHandlerListener(ln net.Listener) handlerOption {
	return func(h *Handler) error {
		h.ln = ln
		return nil
	}
}

// OptHandlerCloseTimeout controls how long to wait for the http Server to
// shutdown cleanly before forcibly destroying it. Default is 30 seconds.
func OptHandlerCloseTimeout(d time.Duration) handlerOption {
	return func(h *Handler) error {
		h.closeTimeout = d
		return nil
	}
}

// NewHandler returns a new instance of Handler with a default logger.
func NewHandler(opts ...handlerOption) (*Handler, error) {
	handler := &Handler{
		logger:       logger.NopLogger,
		closeTimeout: time.Second * 30,
		startedAt:    time.Now(),
	}
	handler.Handler = newRouter(handler)
	handler.populateValidators()

	for _, opt := range opts {
		err := opt(handler)
		if err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}

	if handler.endpoint == nil {
		return nil, errors.New(graphity.ErrBadRequest, "must pass OptHandlerQueryEndpoint")
	}

	if handler.ln == nil {
		return nil, errors.New(graphity.ErrBadRequest, "must pass OptHandlerListener")
	}

	handler.server = &http.Server{Handler: handler}

	return handler, nil
}

func (h *Handler) Serve() error {
	err := h.server.Serve(h.ln)
	if err != nil && err != http.ErrServerClosed {
		h.logger.Errorf("HTTP handler terminated with error: %s", err)
		return errors.Wrap(err, "serve http")
	}
	return nil
}

// Close tries to cleanly shutdown the HTTP server, and failing that, after a
// timeout, calls Server.Close.
func (h *Handler) Close() error {
	deadlineCtx, cancelFunc := context.WithDeadline(context.Background(), time.Now().Add(h.closeTimeout))
	defer cancelFunc()
	err := h.server.Shutdown(deadlineCtx)
	if err != nil {
		err = h.server.Close()
	}
	return errors.Wrap(err, "shutdown/close http server")
}

func (h *Handler) populateValidators() {
	graphArgs := []string{"default", "graph"}

	h.validators = map[string]*queryValidationSpec{}
	h.validators["Home"] = queryValidationSpecRequired()
	h.validators["GetQuery"] = queryValidationSpecRequired("query").Optional("default-graph-uri", "named-graph-uri")
	h.validators["PostQuery"] = queryValidationSpecRequired().Optional("default-graph-uri", "named-graph-uri")
	h.validators["GetGraph"] = queryValidationSpecRequired().Optional(graphArgs...)
	h.validators["PutGraph"] = queryValidationSpecRequired().Optional(graphArgs...)
	h.validators["PostGraph"] = queryValidationSpecRequired().Optional(graphArgs...)
	h.validators["DeleteGraph"] = queryValidationSpecRequired().Optional(graphArgs...)
	h.validators["PatchGraph"] = queryValidationSpecRequired().Optional(graphArgs...)
	h.validators["GetStatus"] = queryValidationSpecRequired()
	h.validators["GetVersion"] = queryValidationSpecRequired()
}

type contextKeyRequest int

const contextKeyRequestID contextKeyRequest = iota

// requestID returns the ID assigned to r by the request ID middleware.
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyRequestID).(string)
	return id
}

func (h *Handler) queryArgValidator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := mux.CurrentRoute(r).GetName()

		if validator, ok := h.validators[key]; ok {
			if err := validator.validate(r.URL.Query()); err != nil {
				h.writeError(w, r, errors.New(graphity.ErrBadRequest, err.Error()))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// assignRequestID takes the caller's X-Request-Id or generates one.
func (h *Handler) assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, id)))
	})
}

func (h *Handler) extractTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span, ctx := tracing.GlobalTracer.ExtractHTTPHeaders(r)
		defer span.Finish()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

func (h *Handler) collectStats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		t := time.Now()
		next.ServeHTTP(rec, r)
		dur := time.Since(t)

		path, err := mux.CurrentRoute(r).GetPathTemplate()
		if err != nil {
			path = "unknown"
		}
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		graphity.HistogramHTTPRequestDuration.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Observe(dur.Seconds())
		h.logger.Debugf("%s %s %d %v id=%s", r.Method, r.URL.String(), rec.status, dur, requestID(r))
	})
}

// newRouter creates a new mux http router.
func newRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", handler.handleHome).Methods("GET").Name("Home")
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/sparql", handler.handleGetQuery).Methods("GET", "HEAD").Name("GetQuery")
	router.HandleFunc("/sparql", handler.handlePostQuery).Methods("POST").Name("PostQuery")
	router.HandleFunc("/service", handler.handleGetGraph).Methods("GET", "HEAD").Name("GetGraph")
	router.HandleFunc("/service", handler.handlePutGraph).Methods("PUT").Name("PutGraph")
	router.HandleFunc("/service", handler.handlePostGraph).Methods("POST").Name("PostGraph")
	router.HandleFunc("/service", handler.handleDeleteGraph).Methods("DELETE").Name("DeleteGraph")
	router.HandleFunc("/service", handler.handlePatchGraph).Methods("PATCH").Name("PatchGraph")
	router.HandleFunc("/status", handler.handleGetStatus).Methods("GET").Name("GetStatus")
	router.HandleFunc("/version", handler.handleGetVersion).Methods("GET").Name("GetVersion")

	router.Use(handler.assignRequestID)
	router.Use(handler.queryArgValidator)
	router.Use(handler.extractTracing)
	router.Use(handler.collectStats)
	return router
}

// ServeHTTP handles an HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			h.logger.Errorf("PANIC: %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}()

	h.Handler.ServeHTTP(w, r)
}

// writeError reports err to the client, as a JSON error object when the
// client accepts JSON.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := graphity.StatusFromError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s id=%s: %v", r.Method, r.URL.Path, requestID(r), err)
	} else {
		h.logger.Debugf("%s %s id=%s: %v", r.Method, r.URL.Path, requestID(r), err)
	}

	var notAcceptable *graphity.NotAcceptableError
	if errors.As(err, &notAcceptable) {
		w.Header().Set("Vary", "Accept")
	}

	if !validHeaderAcceptJSON(r.Header) {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", encoding.MediaTypeJSON)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, errors.MarshalJSON(err)+"\n"); err != nil {
		h.logger.Printf("error writing error response: %v", err)
	}
}

// writeBody writes a buffered representation. Nothing is sent until the body
// has been fully encoded, so an encoding failure can still be reported.
func (h *Handler) writeBody(w http.ResponseWriter, r *http.Request, contentType string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := body.WriteTo(w); err != nil {
		h.logger.Printf("error writing response: %v", err)
	}
}

func (h *Handler) handleHome(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Welcome. Graphity is running. Queries are served at /sparql and graphs at /service.", http.StatusNotFound)
}

// validHeaderAcceptJSON returns false if an Accept header is present but
// does not accept "application/json". Otherwise returns true.
func validHeaderAcceptJSON(header http.Header) bool {
	if _, found := header["Accept"]; !found {
		return true
	}
	_, ok := graphity.SelectVariant(
		[]graphity.Variant{{MediaType: encoding.MediaTypeJSON}},
		graphity.ParseAccept(header.Get("Accept")),
	)
	return ok
}

// handleGetQuery handles GET and HEAD /sparql requests.
func (h *Handler) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serveQuery(w, r, q.Get("query"), datasetFromValues(q))
}

// handlePostQuery handles POST /sparql requests. The query is either the
// "query" form field or the whole body.
func (h *Handler) handlePostQuery(w http.ResponseWriter, r *http.Request) {
	switch encoding.MediaType(r.Header.Get("Content-Type")) {
	case encoding.MediaTypeForm:
		if err := r.ParseForm(); err != nil {
			h.writeError(w, r, errors.Newf(graphity.ErrBadRequest, "parsing form: %v", err))
			return
		}
		h.serveQuery(w, r, r.PostForm.Get("query"), datasetFromValues(r.Form))
	case encoding.MediaTypeSPARQLQuery:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes+1))
		if err != nil {
			h.writeError(w, r, errors.Newf(graphity.ErrBadRequest, "reading query: %v", err))
			return
		} else if len(body) > maxQueryBytes {
			http.Error(w, "query too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.serveQuery(w, r, string(body), datasetFromValues(r.URL.Query()))
	default:
		http.Error(w, "Unsupported media type; send "+encoding.MediaTypeForm+" or "+encoding.MediaTypeSPARQLQuery, http.StatusUnsupportedMediaType)
	}
}

func datasetFromValues(v url.Values) sparql.Dataset {
	return sparql.Dataset{
		DefaultGraphs: v["default-graph-uri"],
		NamedGraphs:   v["named-graph-uri"],
	}
}

func (h *Handler) serveQuery(w http.ResponseWriter, r *http.Request, text string, ds sparql.Dataset) {
	q, err := sparql.Parse(text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.endpoint.Query(r.Context(), &graphity.QueryRequest{
		Method:      r.Method,
		Query:       q,
		Dataset:     ds,
		Accept:      r.Header.Get("Accept"),
		IfMatch:     r.Header.Get("If-Match"),
		IfNoneMatch: r.Header.Get("If-None-Match"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Vary", "Accept")
	if !resp.Validator.IsZero() {
		w.Header().Set("ETag", resp.Validator.ETag())
	}
	if !resp.HasBody() {
		w.WriteHeader(resp.Status)
		return
	}

	var buf bytes.Buffer
	if err := resp.Encode(&buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeBody(w, r, resp.Variant.ContentType(), &buf)
}

// graphStore returns the store and the graph a /service request addresses.
// It reports false after writing an error response.
func (h *Handler) graphStore(w http.ResponseWriter, r *http.Request) (graphity.GraphStore, graphity.GraphName, bool) {
	if h.store == nil {
		http.Error(w, "graph store is read-only", http.StatusMethodNotAllowed)
		return nil, graphity.GraphName{}, false
	}
	name, err := graphity.GraphNameFromValues(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return nil, graphity.GraphName{}, false
	}
	return h.store, name, true
}

// handleGetGraph handles GET and HEAD /service requests.
func (h *Handler) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	store, name, ok := h.graphStore(w, r)
	if !ok {
		return
	}

	g, ok, err := store.Get(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	} else if !ok {
		http.Error(w, fmt.Sprintf("%s not found", name), http.StatusNotFound)
		return
	}

	variant, err := graphity.Negotiate(graphity.GraphVariants, r.Header.Get("Accept"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	validator := graphity.FingerprintGraph(g)
	w.Header().Set("Vary", "Accept")
	w.Header().Set("ETag", validator.ETag())
	if inm := r.Header.Get("If-None-Match"); inm != "" && validator.Matches(inm, true) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := encoding.EncodeGraph(&buf, variant.MediaType, g); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeBody(w, r, variant.ContentType(), &buf)
}

// handlePutGraph handles PUT /service requests.
func (h *Handler) handlePutGraph(w http.ResponseWriter, r *http.Request) {
	h.writeGraph(w, r, graphity.GraphStore.Put)
}

// handlePostGraph handles POST /service requests.
func (h *Handler) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	h.writeGraph(w, r, graphity.GraphStore.Post)
}

type graphWriteFunc func(s graphity.GraphStore, ctx context.Context, name graphity.GraphName, g *rdf.Graph) (bool, error)

func (h *Handler) writeGraph(w http.ResponseWriter, r *http.Request, write graphWriteFunc) {
	store, name, ok := h.graphStore(w, r)
	if !ok {
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !encoding.CanDecodeGraph(contentType) {
		http.Error(w, fmt.Sprintf("Unsupported media type %q", contentType), http.StatusUnsupportedMediaType)
		return
	}
	g, err := encoding.DecodeGraph(r.Body, contentType)
	if err != nil {
		http.Error(w, fmt.Sprintf("decoding graph: %v", err), http.StatusBadRequest)
		return
	}

	created, err := write(store, r.Context(), name, g)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteGraph handles DELETE /service requests.
func (h *Handler) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	store, name, ok := h.graphStore(w, r)
	if !ok {
		return
	}
	ok, err := store.Delete(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	} else if !ok {
		http.Error(w, fmt.Sprintf("%s not found", name), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePatchGraph handles PATCH /service requests.
func (h *Handler) handlePatchGraph(w http.ResponseWriter, r *http.Request) {
	store, name, ok := h.graphStore(w, r)
	if !ok {
		return
	}
	if err := store.Patch(r.Context(), name, nil); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type getStatusResponse struct {
	State      string   `json:"state"`
	Endpoint   string   `json:"endpoint"`
	Endpoints  []string `json:"endpoints"`
	GraphStore bool     `json:"graphStore"`
	Uptime     string   `json:"uptime"`
}

// handleGetStatus handles GET /status requests.
func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if !validHeaderAcceptJSON(r.Header) {
		http.Error(w, "JSON only acceptable response", http.StatusNotAcceptable)
		return
	}
	status := getStatusResponse{
		State:      "NORMAL",
		Endpoint:   h.endpoint.URI(),
		Endpoints:  h.registry.Endpoints(),
		GraphStore: h.store != nil,
		Uptime:     time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if status.Endpoints == nil {
		status.Endpoints = []string{}
	}
	w.Header().Set("Content-Type", encoding.MediaTypeJSON)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Printf("write status response error: %s", err)
	}
}

// handleGetVersion handles GET /version requests.
func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if !validHeaderAcceptJSON(r.Header) {
		http.Error(w, "JSON only acceptable response", http.StatusNotAcceptable)
		return
	}
	w.Header().Set("Content-Type", encoding.MediaTypeJSON)
	err := json.NewEncoder(w).Encode(struct {
		Version string `json:"version"`
	}{
		Version: graphity.VersionInfo(),
	})
	if err != nil {
		h.logger.Printf("write version response error: %s", err)
	}
}

type queryValidationSpec struct {
	required []string
	args     map[string]struct{}
}

func queryValidationSpecRequired(requiredArgs ...string) *queryValidationSpec {
	args := map[string]struct{}{}
	for _, arg := range requiredArgs {
		args[arg] = struct{}{}
	}

	return &queryValidationSpec{
		required: requiredArgs,
		args:     args,
	}
}

func (s *queryValidationSpec) Optional(args ...string) *queryValidationSpec {
	for _, arg := range args {
		s.args[arg] = struct{}{}
	}
	return s
}

func (s queryValidationSpec) validate(query url.Values) error {
	for _, req := range s.required {
		if query.Get(req) == "" {
			return errors.Errorf("%s is required", req)
		}
	}
	for k := range query {
		if _, ok := s.args[k]; !ok {
			return errors.Errorf("%s is not a valid argument", k)
		}
	}
	return nil
}
