// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package sparql contains the query model used by the endpoint: parsed
// queries, datasets, result sets and the Engine which executes them.
package sparql

import (
	"strconv"
	"strings"

	"github.com/molecula/graphity/errors"
)

const (
	ErrEmptyQuery   errors.Code = "EmptyQuery"
	ErrInvalidLimit errors.Code = "InvalidLimit"
)

// Kind is the query form.
type Kind int

const (
	Unknown Kind = iota
	Select
	Construct
	Describe
	Ask
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case Construct:
		return "CONSTRUCT"
	case Describe:
		return "DESCRIBE"
	case Ask:
		return "ASK"
	}
	return "UNKNOWN"
}

// ReturnsGraph reports whether results of this kind are RDF graphs.
func (k Kind) ReturnsGraph() bool { return k == Construct || k == Describe }

// ReturnsResultSet reports whether results of this kind are solution
// sequences or booleans.
func (k Kind) ReturnsResultSet() bool { return k == Select || k == Ask }

// Query is an immutable query. Its kind and top-level LIMIT are computed once
// by Parse.
type Query struct {
	text string
	kind Kind

	limit    int64
	limitPos [2]int // byte span of the LIMIT value, zero if absent
	tailPos  int    // where a new LIMIT clause is inserted
}

// Parse classifies text. It does not validate the full grammar; a query with
// no recognizable form parses with kind Unknown.
func Parse(text string) (*Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(ErrEmptyQuery, "query is empty")
	}
	q := &Query{text: text, limit: -1, tailPos: len(strings.TrimRightFunc(text, isTrailing))}

	s := newScanner(text)
	var (
		prev         token
		groupsClosed bool
	)
	for tok := s.next(); tok.typ != tokenEOF; prev, tok = tok, s.next() {
		switch {
		case tok.typ == tokenRBrace && tok.depth == 0:
			groupsClosed = true
		case tok.typ == tokenWord && tok.depth == 0:
			switch strings.ToUpper(tok.text) {
			case "SELECT":
				q.setKind(Select)
			case "CONSTRUCT":
				q.setKind(Construct)
			case "DESCRIBE":
				q.setKind(Describe)
			case "ASK":
				q.setKind(Ask)
			case "VALUES":
				// A trailing VALUES block must stay after the solution modifiers.
				if groupsClosed && q.tailPos == len(strings.TrimRightFunc(text, isTrailing)) {
					q.tailPos = tok.pos
				}
			}
		case tok.typ == tokenInteger && tok.depth == 0 && prev.typ == tokenWord && strings.EqualFold(prev.text, "LIMIT"):
			n, err := strconv.ParseInt(tok.text, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.New(ErrInvalidLimit, err.Error()), "parsing LIMIT %q", tok.text)
			}
			q.limit = n
			q.limitPos = [2]int{tok.pos, tok.pos + len(tok.text)}
		}
	}
	return q, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) setKind(k Kind) {
	if q.kind == Unknown {
		q.kind = k
	}
}

func isTrailing(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Kind returns the query form.
func (q *Query) Kind() Kind { return q.kind }

// String returns the query text.
func (q *Query) String() string { return q.text }

// Limit returns the top-level LIMIT, if the query has one.
func (q *Query) Limit() (int64, bool) {
	return q.limit, q.limit >= 0
}

// WithLimit returns a copy of q with its top-level LIMIT set to n.
func (q *Query) WithLimit(n int64) *Query {
	if n < 0 {
		n = 0
	}
	v := strconv.FormatInt(n, 10)

	var text string
	if _, ok := q.Limit(); ok {
		text = q.text[:q.limitPos[0]] + v + q.text[q.limitPos[1]:]
	} else {
		head, tail := q.text[:q.tailPos], q.text[q.tailPos:]
		text = strings.TrimRightFunc(head, isTrailing) + "\nLIMIT " + v
		if strings.TrimSpace(tail) != "" {
			text += "\n" + strings.TrimLeftFunc(tail, isTrailing)
		}
	}

	out, err := Parse(text)
	if err != nil {
		// q parsed, so splicing in a non-negative integer cannot fail.
		panic(err)
	}
	return out
}

// ClampLimit returns q unchanged when its LIMIT is already at most max, and
// otherwise a copy limited to max. A max of zero or less disables clamping.
func (q *Query) ClampLimit(max int64) *Query {
	if max <= 0 {
		return q
	}
	if n, ok := q.Limit(); ok && n <= max {
		return q
	}
	return q.WithLimit(max)
}
