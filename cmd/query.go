// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/molecula/graphity/ctl"
	"github.com/molecula/graphity/encoding"
	"github.com/spf13/cobra"
)

var Querier *ctl.QueryCommand

func newQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	Querier = ctl.NewQueryCommand(stdin, stdout, stderr)
	queryCmd := &cobra.Command{
		Use:   "query [QUERY]",
		Short: "Run a SPARQL query.",
		Long: `
Sends a query to a SPARQL protocol endpoint and writes the answer to
stdout. The query is given as an argument or read from --file; "-" reads
it from stdin.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				Querier.Query = args[0]
			}
			return considerUsageError(cmd, Querier.Run(cmd.Context()))
		},
	}
	flags := queryCmd.Flags()

	flags.StringVarP(&Querier.Endpoint, "endpoint", "e", "http://localhost:10109/sparql", "URI of the SPARQL endpoint.")
	flags.StringVarP(&Querier.Path, "file", "f", "", "File to read the query from.")
	flags.StringSliceVar(&Querier.DefaultGraphs, "default-graph-uri", nil, "Default graph IRIs of the query dataset.")
	flags.StringSliceVar(&Querier.NamedGraphs, "named-graph-uri", nil, "Named graph IRIs of the query dataset.")
	flags.StringVar(&Querier.ResultsFormat, "results-format", encoding.MediaTypeResultsJSON, "Media type to write SELECT and ASK results in.")
	flags.StringVar(&Querier.GraphFormat, "graph-format", encoding.MediaTypeNTriples, "Media type to write CONSTRUCT and DESCRIBE results in.")
	ctl.SetRemoteFlags(flags, &Querier.Remote)

	return queryCmd
}
