// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package sparql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenType is the lexical class of a token. The scanner only recognizes
// enough of the grammar to find keywords at a given nesting depth.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenWord
	tokenInteger
	tokenVar
	tokenIRI
	tokenString
	tokenLBrace
	tokenRBrace
	tokenOther
)

type token struct {
	typ   tokenType
	text  string
	pos   int // byte offset of the first character
	depth int // brace depth the token was read at
}

type scanner struct {
	src   string
	pos   int
	depth int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) peekRune(off int) rune {
	if s.pos+off >= len(s.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos+off:])
	return r
}

// next returns the next significant token, skipping whitespace and comments.
func (s *scanner) next() token {
	s.skip()
	if s.pos >= len(s.src) {
		return token{typ: tokenEOF, pos: s.pos, depth: s.depth}
	}
	start := s.pos
	tok := token{pos: start, depth: s.depth}
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])

	switch {
	case r == '{':
		s.pos += size
		s.depth++
		tok.typ = tokenLBrace
	case r == '}':
		s.pos += size
		if s.depth > 0 {
			s.depth--
		}
		tok.typ, tok.depth = tokenRBrace, s.depth
	case r == '"' || r == '\'':
		s.scanString(r)
		tok.typ = tokenString
	case r == '<' && s.isIRIRef():
		s.pos = strings.IndexByte(s.src[s.pos:], '>') + s.pos + 1
		tok.typ = tokenIRI
	case (r == '?' || r == '$') && isNameRune(s.peekRune(1)):
		s.pos += size
		s.scanName()
		tok.typ = tokenVar
	case r >= '0' && r <= '9':
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.pos++
		}
		tok.typ = tokenInteger
		// Decimals and doubles are not integers.
		if s.pos < len(s.src) && (s.src[s.pos] == '.' || s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
			s.scanName()
			tok.typ = tokenOther
		}
	case isNameRune(r) || r == ':':
		s.scanName()
		tok.typ = tokenWord
	default:
		s.pos += size
		tok.typ = tokenOther
	}
	tok.text = s.src[start:s.pos]
	return tok
}

func (s *scanner) skip() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		switch {
		case unicode.IsSpace(r):
			s.pos += size
		case r == '#':
			if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
				s.pos += i + 1
			} else {
				s.pos = len(s.src)
			}
		default:
			return
		}
	}
}

// isIRIRef distinguishes an IRI reference from the less-than operator.
func (s *scanner) isIRIRef() bool {
	for i := s.pos + 1; i < len(s.src); i++ {
		switch c := s.src[i]; c {
		case '>':
			return true
		case '<', '"', '{', '}', '|', '^', '`', '\\', ' ', '\t', '\n', '\r':
			return false
		}
	}
	return false
}

func (s *scanner) scanString(quote rune) {
	delim := string(quote)
	if strings.HasPrefix(s.src[s.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	s.pos += len(delim)
	for s.pos < len(s.src) {
		if s.src[s.pos] == '\\' {
			s.pos += 2
			continue
		}
		if strings.HasPrefix(s.src[s.pos:], delim) {
			s.pos += len(delim)
			return
		}
		s.pos++
	}
	s.pos = len(s.src)
}

// scanName consumes a keyword, prefixed name or variable name.
func (s *scanner) scanName() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if isNameRune(r) || r == ':' || r == '-' {
			s.pos += size
			continue
		}
		// A dot is part of a prefixed name only when followed by a name character.
		if r == '.' && isNameRune(s.peekRune(size)) {
			s.pos += size
			continue
		}
		return
	}
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
