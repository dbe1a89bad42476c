// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package sparql

import (
	"github.com/molecula/graphity/rdf"
)

// Binding maps variable names (without the leading '?') to values. Unbound
// variables are absent.
type Binding map[string]rdf.Term

// ResultSet is a buffered, rewindable solution sequence, or the boolean
// result of an ASK query.
//
// A ResultSet is consumed with Next and rewound with Reset. It is not safe
// for concurrent use.
type ResultSet struct {
	vars    []string
	rows    []Binding
	pos     int
	boolean *bool
}

// NewResultSet returns a solution sequence projecting vars.
func NewResultSet(vars []string, rows ...Binding) *ResultSet {
	return &ResultSet{vars: vars, rows: rows}
}

// NewBooleanResult returns the result of an ASK query.
func NewBooleanResult(b bool) *ResultSet {
	return &ResultSet{boolean: &b}
}

// Vars returns the projected variables in order.
func (rs *ResultSet) Vars() []string { return rs.vars }

// IsBoolean reports whether rs holds an ASK result.
func (rs *ResultSet) IsBoolean() bool { return rs.boolean != nil }

// Boolean returns the ASK result; false for solution sequences.
func (rs *ResultSet) Boolean() bool { return rs.boolean != nil && *rs.boolean }

// Append adds a solution at the end of the sequence.
func (rs *ResultSet) Append(b Binding) { rs.rows = append(rs.rows, b) }

// Len returns the total number of solutions.
func (rs *ResultSet) Len() int { return len(rs.rows) }

// Next returns the next solution.
func (rs *ResultSet) Next() (Binding, bool) {
	if rs.pos >= len(rs.rows) {
		return nil, false
	}
	b := rs.rows[rs.pos]
	rs.pos++
	return b, true
}

// Reset rewinds the sequence to its first solution.
func (rs *ResultSet) Reset() { rs.pos = 0 }

// Rows returns the remaining solutions and exhausts the sequence.
func (rs *ResultSet) Rows() []Binding {
	out := rs.rows[rs.pos:]
	rs.pos = len(rs.rows)
	return out
}
