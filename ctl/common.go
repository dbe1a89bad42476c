// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"errors"

	"github.com/molecula/graphity"
	"github.com/spf13/pflag"
)

// UsageError is wrapped by errors caused by missing or invalid arguments.
var UsageError = errors.New("usage error")

// RemoteConfig holds what a command needs to reach a remote service.
type RemoteConfig struct {
	Username string
	Password string
}

// SetRemoteFlags creates the common credential flags.
func SetRemoteFlags(flags *pflag.FlagSet, conf *RemoteConfig) {
	flags.StringVarP(&conf.Username, "username", "u", "", "Username for HTTP basic authentication.")
	flags.StringVar(&conf.Password, "password", "", "Password for HTTP basic authentication.")
}

// registry returns a registry holding conf's credentials for uri, if any.
func (conf RemoteConfig) registry(uri string) (*graphity.ServiceContextRegistry, error) {
	r := graphity.NewServiceContextRegistry()
	if conf.Username == "" {
		return r, nil
	}
	if err := r.SetCredentials(uri, conf.Username, conf.Password); err != nil {
		return nil, err
	}
	return r, nil
}
