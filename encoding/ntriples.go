// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package encoding

import (
	"bufio"
	"io"

	"github.com/cayleygraph/quad/nquads"
	"github.com/molecula/graphity/rdf"
)

func writeNTriples(w io.Writer, g *rdf.Graph) error {
	bw := bufio.NewWriter(w)
	qw := nquads.NewWriter(bw)

	var err error
	g.Each(func(t rdf.Triple) bool {
		err = qw.WriteQuad(t.Quad())
		return err == nil
	})
	if err != nil {
		return err
	}
	if err := qw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func readNTriples(r io.Reader) (*rdf.Graph, error) {
	// Raw mode keeps typed literals as written instead of converting them to
	// native values.
	qr := nquads.NewReader(r, true)

	g := rdf.NewGraph()
	for {
		q, err := qr.ReadQuad()
		if err == io.EOF {
			return g, nil
		} else if err != nil {
			return nil, decodingError(err, "n-triples")
		}
		t, err := rdf.TripleFromQuad(q)
		if err != nil {
			return nil, decodingError(err, "n-triples")
		}
		if err := g.Add(t); err != nil {
			return nil, decodingError(err, "n-triples")
		}
	}
}
