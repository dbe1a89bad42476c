// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package server contains the `graphity server` subcommand which runs the
// query endpoint and graph store. The purpose of this package is to define an
// easily tested Command object which handles interpreting configuration and
// setting up all the objects that Graphity needs.
package server

import (
	"encoding/json"
	"io"
	"net"
	gohttp "net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/molecula/graphity"
	"github.com/molecula/graphity/boltdb"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/http"
	"github.com/molecula/graphity/inmem"
	"github.com/molecula/graphity/logger"
	"github.com/molecula/graphity/tracing"
	"github.com/molecula/graphity/tracing/opentracing"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"golang.org/x/sync/errgroup"
)

// Command represents the state of the graphity server command.
type Command struct {
	// Configuration.
	Config *Config

	// Standard input/output
	*graphity.CmdIO

	Handler    *http.Handler
	Registry   *graphity.ServiceContextRegistry
	Endpoint   *graphity.QueryEndpoint
	GraphStore graphity.GraphStore

	ln        net.Listener
	ownLn     bool
	logger    logger.Logger
	logOutput io.Writer

	// closers are closed in reverse order by Close.
	closers []io.Closer

	eg errgroup.Group

	// Started will be closed once Command.Start is finished.
	Started chan struct{}
	// Done will be closed when Command.Close() is called
	Done chan struct{}
}

type CommandOption func(c *Command) error

func OptCommandConfig(config *Config) CommandOption {
	return func(c *Command) error {
		c.Config = config
		return nil
	}
}

// OptCommandListener serves on ln instead of listening on Config.Bind.
func OptCommandListener(ln net.Listener) CommandOption {
	return func(c *Command) error {
		c.ln = ln
		return nil
	}
}

// NewCommand returns a new instance of Command.
func NewCommand(stdin io.Reader, stdout, stderr io.Writer, opts ...CommandOption) (*Command, error) {
	c := &Command{
		Config: NewConfig(),

		CmdIO: graphity.NewCmdIO(stdin, stdout, stderr),

		Started: make(chan struct{}),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return c, nil
}

// Start sets the server up and starts serving HTTP in the background.
func (m *Command) Start() (err error) {
	defer close(m.Started)
	defer func() {
		if err != nil {
			m.teardown()
		}
	}()

	if err := m.setupServer(); err != nil {
		return errors.Wrap(err, "setting up server")
	}

	m.eg.Go(m.Handler.Serve)
	m.logger.Printf("listening as http://%s", m.ln.Addr())
	return nil
}

// Wait waits for the server to be closed or interrupted.
func (m *Command) Wait() error {
	// First SIGKILL causes server to shut down gracefully.
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		m.logger.Infof("received signal '%s', gracefully shutting down...", sig.String())

		// Second signal causes a hard shutdown.
		go func() { <-c; os.Exit(1) }()
		return errors.Wrap(m.Close(), "closing command")
	case <-m.Done:
		m.logger.Infof("server closed externally")
		return nil
	}
}

// Close shuts down the server.
func (m *Command) Close() error {
	select {
	case <-m.Done:
		return nil
	default:
	}
	defer close(m.Done)

	var err error
	if m.Handler != nil {
		err = m.Handler.Close()
	}
	if serveErr := m.eg.Wait(); err == nil {
		err = serveErr
	}
	if cerr := m.closeAll(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "closing everything")
}

// teardown releases what a failed Start acquired. The command counts as
// closed afterwards.
func (m *Command) teardown() {
	if m.Handler == nil && m.ownLn {
		m.ln.Close()
	}
	if err := m.Close(); err != nil && m.logger != nil {
		m.logger.Errorf("cleaning up after failed start: %v", err)
	}
}

// closeAll closes the closers in reverse order and forgets them.
func (m *Command) closeAll() error {
	var err error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if cerr := m.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	m.closers = nil
	return err
}

// setupServer uses the configuration to set up this server.
func (m *Command) setupServer() error {
	if err := m.setupLogger(); err != nil {
		return errors.Wrap(err, "setting up logger")
	}
	if err := m.Config.Validate(); err != nil {
		return errors.Wrap(err, "validating config")
	}
	if conf, err := json.MarshalIndent(m.redactedConfig(), "", "\t"); err == nil {
		m.logger.Debugf("Config: %s", conf)
	}

	if err := m.setupTracing(); err != nil {
		return errors.Wrap(err, "setting up tracing")
	}

	if err := m.setupRegistry(); err != nil {
		return errors.Wrap(err, "setting up service contexts")
	}

	httpClient := &gohttp.Client{Timeout: m.Config.SPARQL.Timeout.Duration()}
	if err := m.setupGraphStore(httpClient); err != nil {
		return errors.Wrap(err, "setting up graph store")
	}

	if m.ln == nil {
		var err error
		if m.ln, err = net.Listen("tcp", m.Config.Bind); err != nil {
			return errors.Wrap(err, "net.Listen")
		}
		m.ownLn = true
	}
	uri, err := endpointURI(m.Config.Advertise, m.ln.Addr())
	if err != nil {
		return errors.Wrap(err, "building endpoint URI")
	}

	engine, err := http.NewQueryClient(m.Config.SPARQL.URI,
		http.OptQueryClientRegistry(m.Registry),
		http.OptQueryClientHTTPClient(httpClient),
		http.OptQueryClientLogger(m.logger),
	)
	if err != nil {
		return errors.Wrap(err, "creating query client")
	}

	m.Endpoint, err = graphity.NewQueryEndpoint(uri, engine,
		graphity.OptQueryEndpointRegistry(m.Registry),
		graphity.OptQueryEndpointResultLimit(m.Config.SPARQL.ResultLimit),
		graphity.OptQueryEndpointConditionalResults(m.Config.SPARQL.ConditionalResults),
		graphity.OptQueryEndpointConditionalGraphs(m.Config.SPARQL.ConditionalGraphs),
		graphity.OptQueryEndpointLogger(m.logger),
	)
	if err != nil {
		return errors.Wrap(err, "creating query endpoint")
	}

	m.Handler, err = http.NewHandler(
		http.OptHandlerAllowedOrigins(m.Config.Handler.AllowedOrigins),
		http.OptHandlerQueryEndpoint(m.Endpoint),
		http.OptHandlerGraphStore(m.GraphStore),
		http.OptHandlerRegistry(m.Registry),
		http.OptHandlerLogger(m.logger),
		http.OptHandlerListener(m.ln),
		http.OptHandlerCloseTimeout(m.Config.Handler.CloseTimeout.Duration()),
	)
	return errors.Wrap(err, "new handler")
}

// endpointURI returns the absolute URI of the /sparql route as clients
// reach it.
func endpointURI(advertise string, listen net.Addr) (string, error) {
	_, listenPort, err := net.SplitHostPort(listen.String())
	if err != nil {
		return "", err
	}
	addr := advertise
	if addr == "" {
		addr = listen.String()
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	if port == "" || port == "0" {
		port = listenPort
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/sparql"}
	return u.String(), nil
}

// setupRegistry registers the configured credentials. A remote graph store
// without credentials of its own uses the SPARQL endpoint's.
func (m *Command) setupRegistry() error {
	m.Registry = graphity.NewServiceContextRegistry()

	sparqlConf := m.Config.SPARQL
	if sparqlConf.Username != "" {
		if err := m.Registry.SetCredentials(sparqlConf.URI, sparqlConf.Username, sparqlConf.Password); err != nil {
			return err
		}
	}

	gsConf := m.Config.GraphStore
	if gsConf.Backend != BackendRemote {
		return nil
	}
	switch {
	case gsConf.Username != "":
		return m.Registry.SetCredentials(gsConf.URI, gsConf.Username, gsConf.Password)
	case sparqlConf.Username != "":
		return m.Registry.SetCredentials(gsConf.URI, sparqlConf.Username, sparqlConf.Password)
	}
	return nil
}

func (m *Command) setupGraphStore(httpClient *gohttp.Client) error {
	conf := m.Config.GraphStore
	switch conf.Backend {
	case BackendMemory:
		m.GraphStore = inmem.NewGraphStore()
	case BackendBolt:
		dir, err := expandDirName(conf.DataDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrap(err, "creating data directory")
		}
		store, err := boltdb.OpenGraphStore(filepath.Join(dir, "graphs.db"))
		if err != nil {
			return err
		}
		m.closers = append(m.closers, store)
		m.GraphStore = store
	case BackendRemote:
		store, err := http.NewGraphStoreClient(conf.URI,
			http.OptGraphStoreClientRegistry(m.Registry),
			http.OptGraphStoreClientHTTPClient(httpClient),
			http.OptGraphStoreClientLogger(m.logger),
		)
		if err != nil {
			return err
		}
		m.GraphStore = store
	default:
		m.logger.Warnf("no graph store configured; the graph store protocol is read-only")
	}
	if m.GraphStore != nil {
		m.logger.Infof("graph store backend: %s", conf.Backend)
	}
	return nil
}

// setupTracing installs a Jaeger tracer as the global tracer unless tracing
// is off.
func (m *Command) setupTracing() error {
	conf := m.Config.Tracing
	if conf.SamplerType == "off" {
		return nil
	}
	cfg := jaegercfg.Configuration{
		ServiceName: "graphity",
		Sampler: &jaegercfg.SamplerConfig{
			Type:  conf.SamplerType,
			Param: conf.SamplerParam,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: conf.AgentHostPort,
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return errors.Wrap(err, "initializing jaeger tracer")
	}
	m.closers = append(m.closers, closer)
	tracing.GlobalTracer = opentracing.NewTracer(tracer, m.logger)
	return nil
}

// setupLogger sets up the logger based on the configuration.
func (m *Command) setupLogger() error {
	if m.Config.LogPath == "" {
		m.logOutput = m.Stderr
	} else {
		f, err := logger.NewFileWriter(m.Config.LogPath)
		if err != nil {
			return errors.Wrap(err, "opening file")
		}
		m.logOutput = f
		m.closers = append(m.closers, f)

		sighup := make(chan os.Signal, 1)
		signal.Notify(sighup, syscall.SIGHUP)
		go func() {
			for {
				select {
				case <-sighup:
					// reopen log file on SIGHUP
					if err := f.Reopen(); err != nil {
						m.logger.Infof("reopen: %s", err.Error())
					}
				case <-m.Done:
					signal.Stop(sighup)
					return
				}
			}
		}()
	}
	if m.Config.Verbose {
		m.logger = logger.NewVerboseLogger(m.logOutput)
	} else {
		m.logger = logger.NewStandardLogger(m.logOutput)
	}
	m.SetLogger(m.logger)
	return nil
}

// redactedConfig returns a copy of the config without passwords.
func (m *Command) redactedConfig() Config {
	c := *m.Config
	if c.SPARQL.Password != "" {
		c.SPARQL.Password = "********"
	}
	if c.GraphStore.Password != "" {
		c.GraphStore.Password = "********"
	}
	return c
}

// expandDirName expands a leading "~/" to the home directory.
func expandDirName(path string) (string, error) {
	prefix := "~" + string(filepath.Separator)
	if strings.HasPrefix(path, prefix) {
		HomeDir := os.Getenv("HOME")
		if HomeDir == "" {
			return "", errors.New(ErrInvalidConfig, "data directory not specified and no home dir available")
		}
		return filepath.Join(HomeDir, strings.TrimPrefix(path, prefix)), nil
	}
	return path, nil
}
