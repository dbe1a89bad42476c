// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package sparql

import (
	"context"

	"github.com/molecula/graphity/rdf"
)

// Dataset is the RDF dataset named in a protocol request through
// default-graph-uri and named-graph-uri. A zero Dataset means the service
// default.
type Dataset struct {
	DefaultGraphs []string
	NamedGraphs   []string
}

// IsZero reports whether no graphs were named.
func (d Dataset) IsZero() bool {
	return len(d.DefaultGraphs) == 0 && len(d.NamedGraphs) == 0
}

// Engine executes queries.
type Engine interface {
	// Select evaluates a SELECT or ASK query.
	Select(ctx context.Context, q *Query, ds Dataset) (*ResultSet, error)

	// Construct evaluates a CONSTRUCT or DESCRIBE query.
	Construct(ctx context.Context, q *Query, ds Dataset) (*rdf.Graph, error)
}
