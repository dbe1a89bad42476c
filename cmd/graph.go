// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/molecula/graphity/ctl"
	"github.com/molecula/graphity/encoding"
	"github.com/spf13/cobra"
)

var Grapher *ctl.GraphCommand

func newGraphCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Grapher = ctl.NewGraphCommand(stdin, stdout, stderr)
	graphCmd := &cobra.Command{
		Use:   "graph [GRAPH-IRI...]",
		Short: "Fetch graphs from a graph store.",
		Long: `
Fetches graphs from a graph store protocol service and writes their union
to stdout. Without arguments the default graph is fetched.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			Grapher.Graphs = args
			return considerUsageError(cmd, Grapher.Run(cmd.Context()))
		},
	}
	flags := graphCmd.Flags()

	flags.StringVarP(&Grapher.Service, "service", "s", "http://localhost:10109/service", "URI of the graph store service.")
	flags.StringVarP(&Grapher.Format, "format", "f", encoding.MediaTypeNTriples, "Media type to write the graph in.")
	ctl.SetRemoteFlags(flags, &Grapher.Remote)

	return graphCmd
}
