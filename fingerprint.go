// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
	"github.com/zeebo/blake3"
)

// validatorSize is the number of digest bytes kept in a Validator.
const validatorSize = 16

// Validator is an opaque digest of a response body's content.
type Validator string

// ETag returns v as a strong entity tag.
func (v Validator) ETag() string { return `"` + string(v) + `"` }

// IsZero reports whether v is empty.
func (v Validator) IsZero() bool { return v == "" }

// Matches reports whether v matches an If-Match or If-None-Match header
// value. Weak comparison ignores the W/ prefix of listed tags.
func (v Validator) Matches(header string, weak bool) bool {
	if v.IsZero() {
		return false
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		switch {
		case tag == "*":
			return true
		case strings.HasPrefix(tag, "W/"):
			if weak && tag[2:] == v.ETag() {
				return true
			}
		case tag == v.ETag():
			return true
		}
	}
	return false
}

// Fingerprint returns a validator for rs. The sequence is rewound before and
// after hashing, so the caller can still serialize every solution.
//
// Solutions are hashed in order, so reordering them changes the validator.
// Within a solution the bindings are combined by summing per-binding
// hashes, which makes the result independent of map iteration order.
func Fingerprint(rs *sparql.ResultSet) Validator {
	rs.Reset()
	defer rs.Reset()

	h := blake3.New()
	if rs.IsBoolean() {
		if rs.Boolean() {
			_, _ = h.Write([]byte("boolean:true"))
		} else {
			_, _ = h.Write([]byte("boolean:false"))
		}
		return digest(h)
	}

	for _, v := range rs.Vars() {
		_, _ = h.Write([]byte(v))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0xff})

	var buf [8]byte
	for row, ok := rs.Next(); ok; row, ok = rs.Next() {
		var sum uint64
		for name, term := range row {
			if term.IsZero() {
				continue
			}
			sum += xxhash.Sum64String(name + "\x00" + term.String())
		}
		binary.BigEndian.PutUint64(buf[:], sum)
		_, _ = h.Write(buf[:])
	}
	return digest(h)
}

// FingerprintGraph returns a validator for g. Graphs holding the same triples
// have the same validator.
func FingerprintGraph(g *rdf.Graph) Validator {
	h := blake3.New()
	g.Each(func(t rdf.Triple) bool {
		_, _ = h.Write([]byte(t.String() + "\n"))
		return true
	})
	return digest(h)
}

func digest(h *blake3.Hasher) Validator {
	var buf [validatorSize]byte
	_, _ = h.Digest().Read(buf[:])
	return Validator(hex.EncodeToString(buf[:]))
}
