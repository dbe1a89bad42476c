// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/molecula/graphity/cmd"
	"github.com/molecula/graphity/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRoot runs the root command with args and returns its combined output.
func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rc := cmd.NewRootCommand(&bytes.Buffer{}, out, out)
	rc.SetArgs(args)
	err := rc.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	out, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "Available Commands:")
	for _, sub := range []string{"server", "generate-config", "graph", "query"} {
		assert.Contains(t, out, sub)
	}
}

func TestServerHelp(t *testing.T) {
	out, err := execRoot(t, "server", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--sparql.uri")
	assert.Contains(t, out, "--graph-store.backend")
}

func TestGenerateConfig(t *testing.T) {
	out, err := execRoot(t, "generate-config")
	require.NoError(t, err)
	c, err := server.ParseConfig(out)
	require.NoError(t, err)
	assert.Equal(t, server.NewConfig().Bind, c.Bind)
}

func TestServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphity.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bind = "localhost:20109"
verbose = true

[handler]
allowed-origins = ["http://a.example.com", "http://b.example.com"]

[sparql]
uri = "http://file.example.com/sparql"
result-limit = 300
timeout = "45s"

[graph-store]
backend = "bolt"
data-dir = "/tmp/graphity-file"
`), 0600))

	t.Run("File", func(t *testing.T) {
		_, err := execRoot(t, "server", "--dry-run", "--config", path)
		require.EqualError(t, err, "dry run")

		c := cmd.Server.Config
		assert.Equal(t, "localhost:20109", c.Bind)
		assert.True(t, c.Verbose)
		assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, c.Handler.AllowedOrigins)
		assert.Equal(t, "http://file.example.com/sparql", c.SPARQL.URI)
		assert.Equal(t, int64(300), c.SPARQL.ResultLimit)
		assert.Equal(t, 45*time.Second, c.SPARQL.Timeout.Duration())
		assert.Equal(t, server.BackendBolt, c.GraphStore.Backend)
		assert.Equal(t, "/tmp/graphity-file", c.GraphStore.DataDir)
		// Unset keys keep their defaults.
		assert.True(t, c.SPARQL.ConditionalResults)
	})

	t.Run("Precedence", func(t *testing.T) {
		t.Setenv("GRAPHITY_SPARQL_URI", "http://env.example.com/sparql")
		t.Setenv("GRAPHITY_SPARQL_RESULT_LIMIT", "20")
		_, err := execRoot(t, "server", "--dry-run", "--config", path, "--sparql.result-limit", "10")
		require.EqualError(t, err, "dry run")

		c := cmd.Server.Config
		assert.Equal(t, "http://env.example.com/sparql", c.SPARQL.URI)
		assert.Equal(t, int64(10), c.SPARQL.ResultLimit)
		assert.Equal(t, "localhost:20109", c.Bind)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("[sparql]\nendpoint = \"http://example.com\"\n"), 0600))
		_, err := execRoot(t, "server", "--dry-run", "--config", bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid option in configuration file: sparql.endpoint")
	})
}

func TestQueryUsage(t *testing.T) {
	out, err := execRoot(t, "query", "--endpoint", "http://localhost:1/sparql")
	require.Error(t, err)
	assert.Contains(t, out, "query required")
	assert.Contains(t, out, "Usage:")
}
