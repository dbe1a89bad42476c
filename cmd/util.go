// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"errors"

	"github.com/molecula/graphity/ctl"
	"github.com/spf13/cobra"
)

// considerUsageError prints cmd's usage when err was caused by bad
// arguments, and returns err either way.
func considerUsageError(cmd *cobra.Command, err error) error {
	if errors.Is(err, ctl.UsageError) {
		cmd.PrintErrln(err)
		_ = cmd.Usage()
	}
	return err
}
