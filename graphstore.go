// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"context"
	"net/url"
	"strings"

	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
)

// GraphName addresses a graph of a dataset. The zero value is the default
// graph.
type GraphName struct {
	iri string
}

// DefaultGraph is the unnamed graph of a dataset.
var DefaultGraph = GraphName{}

// NamedGraph returns the name of the graph identified by iri, which must be
// an absolute IRI.
func NamedGraph(iri string) (GraphName, error) {
	if iri == "" || strings.ContainsAny(iri, " <>\"{}|\\^`\n\t") {
		return GraphName{}, errors.Newf(ErrBadRequest, "invalid graph IRI %q", iri)
	}
	u, err := url.Parse(iri)
	if err != nil || !u.IsAbs() {
		return GraphName{}, errors.Newf(ErrBadRequest, "graph name must be an absolute IRI: %q", iri)
	}
	return GraphName{iri: iri}, nil
}

// GraphNameFromTerm returns the graph named by t. Blank nodes and literals
// cannot name a graph.
func GraphNameFromTerm(t rdf.Term) (GraphName, error) {
	if !t.IsIRI() {
		return GraphName{}, errors.Newf(ErrBadRequest, "graph name must be an IRI, got %s %s", t.Kind(), t)
	}
	return NamedGraph(t.Value())
}

// IsDefault reports whether n is the default graph.
func (n GraphName) IsDefault() bool { return n.iri == "" }

// IRI returns the graph IRI, empty for the default graph.
func (n GraphName) IRI() string { return n.iri }

func (n GraphName) String() string {
	if n.IsDefault() {
		return "default graph"
	}
	return "<" + n.iri + ">"
}

// Values returns the graph store protocol query parameters addressing n.
func (n GraphName) Values() url.Values {
	if n.IsDefault() {
		return url.Values{"default": {""}}
	}
	return url.Values{"graph": {n.iri}}
}

// GraphNameFromValues reads the graph store protocol query parameters.
func GraphNameFromValues(v url.Values) (GraphName, error) {
	_, isDefault := v["default"]
	graph, isNamed := v["graph"]
	switch {
	case isDefault && isNamed:
		return GraphName{}, errors.New(ErrBadRequest, "both default and graph parameters given")
	case isNamed:
		if len(graph) != 1 {
			return GraphName{}, errors.New(ErrBadRequest, "graph parameter must be given once")
		}
		return NamedGraph(graph[0])
	case isDefault:
		return DefaultGraph, nil
	}
	return GraphName{}, errors.New(ErrBadRequest, "one of default or graph parameters is required")
}

// GraphStore reads and writes the graphs of a dataset.
//
// Get, Head and Delete report a missing graph with false and a nil error.
// Put and Post report whether the graph was created. Graphs returned by Get
// are read-only.
type GraphStore interface {
	Get(ctx context.Context, name GraphName) (*rdf.Graph, bool, error)
	Head(ctx context.Context, name GraphName) (bool, error)
	Put(ctx context.Context, name GraphName, g *rdf.Graph) (bool, error)
	Post(ctx context.Context, name GraphName, g *rdf.Graph) (bool, error)
	Delete(ctx context.Context, name GraphName) (bool, error)
	Patch(ctx context.Context, name GraphName, g *rdf.Graph) error
}

// UnsupportedPatchError is returned by every graph store's Patch.
func UnsupportedPatchError(name GraphName) error {
	return errors.Newf(ErrUnsupportedOperation, "patch of %s is not supported", name)
}
