// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"sort"
	"sync"

	"github.com/molecula/graphity/errors"
)

// Credentials are HTTP Basic credentials for a remote service.
type Credentials struct {
	Username string
	Password string
}

// ServiceContext is what the registry knows about one endpoint URI.
type ServiceContext struct {
	EndpointURI string
	Credentials *Credentials

	// KnownEndpoint is set for URIs registered as federation endpoints.
	KnownEndpoint bool
}

// ServiceContextRegistry maps endpoint URIs to credentials and marks the
// endpoints known to this service. It is safe for concurrent use. Entries are
// never removed.
type ServiceContextRegistry struct {
	mu       sync.RWMutex
	contexts map[string]ServiceContext
}

// NewServiceContextRegistry returns an empty registry.
func NewServiceContextRegistry() *ServiceContextRegistry {
	return &ServiceContextRegistry{contexts: make(map[string]ServiceContext)}
}

// Register records creds for endpointURI, replacing earlier credentials. A
// nil creds marks endpointURI as a known endpoint and keeps any credentials
// already registered for it.
func (r *ServiceContextRegistry) Register(endpointURI string, creds *Credentials) error {
	if endpointURI == "" {
		return errors.New(ErrBadRequest, "endpoint URI is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sc, ok := r.contexts[endpointURI]
	if !ok {
		sc = ServiceContext{EndpointURI: endpointURI}
	}
	if creds == nil {
		sc.KnownEndpoint = true
	} else {
		c := *creds
		sc.Credentials = &c
	}
	r.contexts[endpointURI] = sc
	return nil
}

// SetCredentials registers username and password for endpointURI.
func (r *ServiceContextRegistry) SetCredentials(endpointURI, username, password string) error {
	if username == "" {
		return errors.Newf(ErrBadRequest, "username is required for %s", endpointURI)
	}
	return r.Register(endpointURI, &Credentials{Username: username, Password: password})
}

// AddEndpoint marks endpointURI as a known endpoint. It is idempotent.
func (r *ServiceContextRegistry) AddEndpoint(endpointURI string) error {
	return r.Register(endpointURI, nil)
}

// Lookup returns the entry for endpointURI.
func (r *ServiceContextRegistry) Lookup(endpointURI string) (ServiceContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc, ok := r.contexts[endpointURI]
	if ok && sc.Credentials != nil {
		c := *sc.Credentials
		sc.Credentials = &c
	}
	return sc, ok
}

// Credentials returns the credentials registered for endpointURI, or nil.
func (r *ServiceContextRegistry) Credentials(endpointURI string) *Credentials {
	if r == nil {
		return nil
	}
	sc, _ := r.Lookup(endpointURI)
	return sc.Credentials
}

// Endpoints returns the known endpoints in sorted order.
func (r *ServiceContextRegistry) Endpoints() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for uri, sc := range r.contexts {
		if sc.KnownEndpoint {
			out = append(out, uri)
		}
	}
	sort.Strings(out)
	return out
}
