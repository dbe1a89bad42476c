// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package rdf holds the graph data model shared by the query endpoint, the
// codecs and the graph stores: terms, triples and sets of triples.
package rdf

import (
	"fmt"

	"github.com/cayleygraph/quad"
	"github.com/molecula/graphity/errors"
)

// Frequently used vocabulary.
const (
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	RDFType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

const (
	ErrInvalidTerm   errors.Code = "InvalidTerm"
	ErrInvalidTriple errors.Code = "InvalidTriple"
	ErrReadOnlyGraph errors.Code = "ReadOnlyGraph"
)

// Kind distinguishes the three sorts of term.
type Kind int

const (
	KindNone Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "bnode"
	case KindLiteral:
		return "literal"
	}
	return "none"
}

// Term is an IRI, a blank node or a literal. The zero value is not a valid
// term and is used for unbound values.
type Term struct {
	kind     Kind
	value    string
	datatype string // empty for simple and language-tagged literals
	lang     string
}

// IRI returns an IRI term.
func IRI(iri string) Term { return Term{kind: KindIRI, value: iri} }

// Blank returns a blank node with the given label.
func Blank(id string) Term { return Term{kind: KindBlank, value: id} }

// Literal returns a simple (xsd:string) literal.
func Literal(lexical string) Term { return Term{kind: KindLiteral, value: lexical} }

// TypedLiteral returns a literal with an explicit datatype.
func TypedLiteral(lexical, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{kind: KindLiteral, value: lexical, datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(lexical, lang string) Term {
	return Term{kind: KindLiteral, value: lexical, lang: lang}
}

func (t Term) Kind() Kind      { return t.kind }
func (t Term) IsZero() bool    { return t.kind == KindNone }
func (t Term) IsIRI() bool     { return t.kind == KindIRI }
func (t Term) IsBlank() bool   { return t.kind == KindBlank }
func (t Term) IsLiteral() bool { return t.kind == KindLiteral }

// Value returns the IRI, the blank node label or the lexical form.
func (t Term) Value() string { return t.value }

// Lang returns the language tag of a literal.
func (t Term) Lang() string { return t.lang }

// Datatype returns the datatype IRI of a literal.
func (t Term) Datatype() string {
	switch {
	case t.kind != KindLiteral:
		return ""
	case t.lang != "":
		return RDFLangString
	case t.datatype == "":
		return XSDString
	}
	return t.datatype
}

// Quad converts t into its cayley quad value.
func (t Term) Quad() quad.Value {
	switch t.kind {
	case KindIRI:
		return quad.IRI(t.value)
	case KindBlank:
		return quad.BNode(t.value)
	case KindLiteral:
		switch {
		case t.lang != "":
			return quad.LangString{Value: quad.String(t.value), Lang: t.lang}
		case t.datatype != "":
			return quad.TypedString{Value: quad.String(t.value), Type: quad.IRI(t.datatype)}
		}
		return quad.String(t.value)
	}
	return nil
}

// String returns the N-Triples form of the term.
func (t Term) String() string {
	if v := t.Quad(); v != nil {
		return v.String()
	}
	return ""
}

// TermFromQuad converts a cayley quad value into a term.
func TermFromQuad(v quad.Value) (Term, error) {
	switch v := v.(type) {
	case quad.IRI:
		return IRI(string(v)), nil
	case quad.BNode:
		return Blank(string(v)), nil
	case quad.String:
		return Literal(string(v)), nil
	case quad.TypedString:
		return TypedLiteral(string(v.Value), string(v.Type)), nil
	case quad.LangString:
		return LangLiteral(string(v.Value), v.Lang), nil
	case nil:
		return Term{}, errors.New(ErrInvalidTerm, "missing term")
	}
	// Native values (quad.Int, quad.Time, ...) only show up outside raw mode.
	if ts, ok := v.(quad.TypedStringer); ok {
		typed := ts.TypedString()
		return TypedLiteral(string(typed.Value), string(typed.Type)), nil
	}
	return Term{}, errors.New(ErrInvalidTerm, fmt.Sprintf("unsupported term %T", v))
}
