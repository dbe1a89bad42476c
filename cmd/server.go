// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"io"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/ctl"
	"github.com/molecula/graphity/server"
	"github.com/spf13/cobra"
)

// Server is global so that tests can control and verify it.
var Server *server.Command

// newServeCmd creates a graphity server and runs it with command line flags.
func newServeCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	Server, err = server.NewCommand(stdin, stdout, stderr)
	if err != nil {
		panic(err)
	}
	serveCmd := &cobra.Command{
		Use:   "server",
		Short: "Run Graphity.",
		Long: `graphity server runs Graphity.

It answers SPARQL protocol requests from the configured endpoint and,
unless the graph store backend is "none", serves the graph store
protocol from the configured store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(Server.Stderr, graphity.VersionInfo())

			// Start & run the server.
			if err := Server.Start(); err != nil {
				return considerUsageError(cmd, fmt.Errorf("running server: %w", err))
			}
			return Server.Wait()
		},
	}

	// Attach flags to the command.
	ctl.BuildServerFlags(serveCmd, Server)
	return serveCmd
}
