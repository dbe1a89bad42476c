// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/http"
	"github.com/molecula/graphity/sparql"
)

// QueryCommand sends a query to a SPARQL endpoint and prints the answer.
type QueryCommand struct {
	// URI of the SPARQL endpoint.
	Endpoint string

	// Query text. Read from Path when empty; "-" reads standard input.
	Query string
	Path  string

	DefaultGraphs []string
	NamedGraphs   []string

	// Media types to print results and graphs in.
	ResultsFormat string
	GraphFormat   string

	Remote RemoteConfig

	// Standard input/output
	*graphity.CmdIO
}

// NewQueryCommand returns a new instance of QueryCommand.
func NewQueryCommand(stdin io.Reader, stdout, stderr io.Writer) *QueryCommand {
	return &QueryCommand{
		ResultsFormat: encoding.MediaTypeResultsJSON,
		GraphFormat:   encoding.MediaTypeNTriples,
		CmdIO:         graphity.NewCmdIO(stdin, stdout, stderr),
	}
}

// Run executes the query.
func (cmd *QueryCommand) Run(ctx context.Context) error {
	if cmd.Endpoint == "" {
		return fmt.Errorf("%w: endpoint URI required", UsageError)
	}
	text, err := cmd.queryText()
	if err != nil {
		return err
	}
	q, err := sparql.Parse(text)
	if err != nil {
		return fmt.Errorf("%w: %v", UsageError, err)
	}

	registry, err := cmd.Remote.registry(cmd.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", UsageError, err)
	}
	client, err := http.NewQueryClient(cmd.Endpoint,
		http.OptQueryClientRegistry(registry),
		http.OptQueryClientLogger(cmd.Logger()),
	)
	if err != nil {
		return errors.Wrap(err, "creating client")
	}

	ds := sparql.Dataset{DefaultGraphs: cmd.DefaultGraphs, NamedGraphs: cmd.NamedGraphs}
	switch {
	case q.Kind().ReturnsResultSet():
		rs, err := client.Select(ctx, q, ds)
		if err != nil {
			return errors.Wrap(err, "querying")
		}
		return errors.Wrap(encoding.EncodeResults(cmd.Stdout, cmd.ResultsFormat, rs), "writing results")
	case q.Kind().ReturnsGraph():
		g, err := client.Construct(ctx, q, ds)
		if err != nil {
			return errors.Wrap(err, "querying")
		}
		return errors.Wrap(encoding.EncodeGraph(cmd.Stdout, cmd.GraphFormat, g), "writing graph")
	default:
		return fmt.Errorf("%w: unsupported query kind %s", UsageError, q.Kind())
	}
}

func (cmd *QueryCommand) queryText() (string, error) {
	switch {
	case cmd.Query != "" && cmd.Path != "":
		return "", fmt.Errorf("%w: pass either a query or a query file, not both", UsageError)
	case cmd.Query != "":
		return cmd.Query, nil
	case cmd.Path == "":
		return "", fmt.Errorf("%w: query required", UsageError)
	}

	var buf []byte
	var err error
	if cmd.Path == "-" {
		buf, err = io.ReadAll(cmd.Stdin)
	} else {
		buf, err = os.ReadFile(cmd.Path)
	}
	if err != nil {
		return "", errors.Wrap(err, "reading query")
	}
	if strings.TrimSpace(string(buf)) == "" {
		return "", fmt.Errorf("%w: query required", UsageError)
	}
	return string(buf), nil
}
