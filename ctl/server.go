// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"time"

	"github.com/molecula/graphity/server"
	"github.com/spf13/cobra"
)

// BuildServerFlags attaches a set of flags to the command for a server instance.
func BuildServerFlags(cmd *cobra.Command, srv *server.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&srv.Config.Bind, "bind", "b", srv.Config.Bind, "Default URI on which Graphity should listen.")
	flags.StringVar(&srv.Config.Advertise, "advertise", srv.Config.Advertise, "Address to advertise externally.")
	flags.StringVar(&srv.Config.LogPath, "log-path", srv.Config.LogPath, "Log path")
	flags.BoolVar(&srv.Config.Verbose, "verbose", srv.Config.Verbose, "Enable verbose logging")

	// Handler
	flags.StringSliceVar(&srv.Config.Handler.AllowedOrigins, "handler.allowed-origins", []string{}, "Comma separated list of allowed origin URIs (for CORS).")
	flags.DurationVar((*time.Duration)(&srv.Config.Handler.CloseTimeout), "handler.close-timeout", time.Duration(srv.Config.Handler.CloseTimeout), "Time to wait for requests to finish on shutdown.")

	// SPARQL
	flags.StringVar(&srv.Config.SPARQL.URI, "sparql.uri", srv.Config.SPARQL.URI, "URI of the SPARQL endpoint queries are answered from.")
	flags.StringVar(&srv.Config.SPARQL.Username, "sparql.username", srv.Config.SPARQL.Username, "Username for the SPARQL endpoint.")
	flags.StringVar(&srv.Config.SPARQL.Password, "sparql.password", srv.Config.SPARQL.Password, "Password for the SPARQL endpoint.")
	flags.Int64Var(&srv.Config.SPARQL.ResultLimit, "sparql.result-limit", srv.Config.SPARQL.ResultLimit, "Maximum number of solutions per SELECT query. Zero to disable.")
	flags.BoolVar(&srv.Config.SPARQL.ConditionalResults, "sparql.conditional-results", srv.Config.SPARQL.ConditionalResults, "Send ETags with query results and honour conditional requests.")
	flags.BoolVar(&srv.Config.SPARQL.ConditionalGraphs, "sparql.conditional-graphs", srv.Config.SPARQL.ConditionalGraphs, "Send ETags with CONSTRUCT and DESCRIBE results and honour conditional requests.")
	flags.DurationVar((*time.Duration)(&srv.Config.SPARQL.Timeout), "sparql.timeout", time.Duration(srv.Config.SPARQL.Timeout), "Timeout for requests to remote services.")

	// Graph store
	flags.StringVar(&srv.Config.GraphStore.Backend, "graph-store.backend", srv.Config.GraphStore.Backend, "Graph store backend: none, memory, bolt or remote.")
	flags.StringVar(&srv.Config.GraphStore.URI, "graph-store.uri", srv.Config.GraphStore.URI, "URI of the remote graph store service.")
	flags.StringVar(&srv.Config.GraphStore.Username, "graph-store.username", srv.Config.GraphStore.Username, "Username for the remote graph store. Defaults to the SPARQL endpoint's.")
	flags.StringVar(&srv.Config.GraphStore.Password, "graph-store.password", srv.Config.GraphStore.Password, "Password for the remote graph store.")
	flags.StringVarP(&srv.Config.GraphStore.DataDir, "graph-store.data-dir", "d", srv.Config.GraphStore.DataDir, "Directory to store bolt graph data in.")

	// Tracing
	flags.StringVar(&srv.Config.Tracing.AgentHostPort, "tracing.agent-host-port", srv.Config.Tracing.AgentHostPort, "Jaeger agent host:port.")
	flags.StringVar(&srv.Config.Tracing.SamplerType, "tracing.sampler-type", srv.Config.Tracing.SamplerType, "Jaeger sampler type (remote, const, probabilistic, ratelimiting) or 'off' to disable tracing completely.")
	flags.Float64Var(&srv.Config.Tracing.SamplerParam, "tracing.sampler-param", srv.Config.Tracing.SamplerParam, "Jaeger sampler parameter.")
}
