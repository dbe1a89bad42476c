// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package errors_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/molecula/graphity/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("Is", func(t *testing.T) {
		uncoded := newUncoded("uncoded error")
		gnf := newErrGraphNotFound("http://example.org/g")
		bad := newErrBadQuery("SELEKT")
		gnfCustom := errors.New(errGraphNotFound, "custom graph message")

		tests := []struct {
			err    error
			target errors.Code
			exp    bool
		}{
			{err: uncoded, target: errUncoded, exp: true},
			{err: uncoded, target: errGraphNotFound, exp: false},
			{err: gnf, target: errGraphNotFound, exp: true},
			{err: gnf, target: errBadQuery, exp: false},
			{err: errors.Wrap(bad, "with message"), target: errBadQuery, exp: true},
			{err: gnfCustom, target: errGraphNotFound, exp: true},
		}

		for i, test := range tests {
			t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
				got := errors.Is(test.err, test.target)
				assert.Equal(t, test.exp, got)
			})
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		code, ok := errors.CodeOf(errors.Wrap(newErrBadQuery("x"), "parsing"))
		require.True(t, ok)
		assert.Equal(t, errBadQuery, code)

		_, ok = errors.CodeOf(fmt.Errorf("plain"))
		assert.False(t, ok)
	})

	t.Run("IsError", func(t *testing.T) {
		err := errors.Wrap(context.Canceled, "executing request")
		assert.True(t, errors.IsError(err, context.Canceled))
		assert.False(t, errors.IsError(err, context.DeadlineExceeded))
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		out := errors.MarshalJSON(errors.Wrap(newErrBadQuery("x"), "parsing"))
		assert.Contains(t, out, `"code":"BadQuery"`)
		assert.Contains(t, out, `parsing: query is not valid: x`)

		back := errors.UnmarshalJSON(strings.NewReader(out))
		assert.True(t, errors.Is(back, errBadQuery))

		plain := errors.UnmarshalJSON(strings.NewReader("not json"))
		assert.Equal(t, "not json", plain.Error())
	})
}

// Test error codes.

const (
	errUncoded       errors.Code = "Uncoded"
	errGraphNotFound errors.Code = "GraphNotFound"
	errBadQuery      errors.Code = "BadQuery"
)

func newUncoded(message string) error {
	return errors.New(
		errUncoded,
		message,
	)
}

func newErrGraphNotFound(graph string) error {
	return errors.New(
		errGraphNotFound,
		"graph not found: "+graph,
	)
}

func newErrBadQuery(q string) error {
	return errors.New(
		errBadQuery,
		"query is not valid: "+q,
	)
}
