// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/http"
	"github.com/molecula/graphity/rdf"
	"golang.org/x/sync/errgroup"
)

// GraphCommand fetches graphs from a graph store service and prints their
// union.
type GraphCommand struct {
	// URI of the graph store service.
	Service string

	// IRIs of the graphs to fetch. Empty means the default graph.
	Graphs []string

	// Media type to print the graph in.
	Format string

	Remote RemoteConfig

	// Standard input/output
	*graphity.CmdIO
}

// NewGraphCommand returns a new instance of GraphCommand.
func NewGraphCommand(stdin io.Reader, stdout, stderr io.Writer) *GraphCommand {
	return &GraphCommand{
		Format: encoding.MediaTypeNTriples,
		CmdIO:  graphity.NewCmdIO(stdin, stdout, stderr),
	}
}

// Run fetches every graph concurrently and writes the merged result.
func (cmd *GraphCommand) Run(ctx context.Context) error {
	if cmd.Service == "" {
		return fmt.Errorf("%w: service URI required", UsageError)
	}

	names := []graphity.GraphName{graphity.DefaultGraph}
	if len(cmd.Graphs) > 0 {
		names = names[:0]
		for _, iri := range cmd.Graphs {
			name, err := graphity.NamedGraph(iri)
			if err != nil {
				return fmt.Errorf("%w: %v", UsageError, err)
			}
			names = append(names, name)
		}
	}

	registry, err := cmd.Remote.registry(cmd.Service)
	if err != nil {
		return fmt.Errorf("%w: %v", UsageError, err)
	}
	client, err := http.NewGraphStoreClient(cmd.Service,
		http.OptGraphStoreClientRegistry(registry),
		http.OptGraphStoreClientLogger(cmd.Logger()),
	)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}

	graphs := make([]*rdf.Graph, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			g, ok, err := client.Get(ctx, name)
			if err != nil {
				return errors.Wrapf(err, "fetching %s", name)
			} else if !ok {
				return errors.Newf(graphity.ErrNotFound, "graph not found: %s", name)
			}
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	out := rdf.NewGraph()
	for _, g := range graphs {
		if err := out.Merge(g); err != nil {
			return errors.Wrap(err, "merging graphs")
		}
	}
	cmd.Logger().Debugf("fetched %d triples from %d graphs", out.Len(), len(graphs))

	return errors.Wrap(encoding.EncodeGraph(cmd.Stdout, cmd.Format, out), "writing graph")
}
