// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package encoding

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	knakk "github.com/knakk/rdf"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
)

// writeRDFXML writes g in the striped RDF/XML syntax, one rdf:Description
// per subject.
func writeRDFXML(w io.Writer, g *rdf.Graph) error {
	// Assign a prefix to every predicate namespace up front.
	prefixes := map[string]string{rdf.RDFNamespace: "rdf"}
	var namespaces []string
	var err error
	g.Each(func(t rdf.Triple) bool {
		ns, _, ok := splitIRI(t.Predicate.Value())
		if !ok {
			err = errors.Newf(ErrUnsupportedMediaType, "predicate %s cannot be written as RDF/XML", t.Predicate)
			return false
		}
		if _, ok := prefixes[ns]; !ok {
			prefixes[ns] = "ns" + strconv.Itoa(len(namespaces))
			namespaces = append(namespaces, ns)
		}
		return true
	})
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString(`<rdf:RDF xmlns:rdf="` + rdf.RDFNamespace + `"`)
	for _, ns := range namespaces {
		fmt.Fprintf(bw, "\n    xmlns:%s=\"%s\"", prefixes[ns], escapeAttr(ns))
	}
	bw.WriteString(">\n")

	var subject rdf.Term
	g.Each(func(t rdf.Triple) bool {
		if t.Subject != subject {
			if !subject.IsZero() {
				bw.WriteString("  </rdf:Description>\n")
			}
			subject = t.Subject
			if subject.IsBlank() {
				fmt.Fprintf(bw, "  <rdf:Description rdf:nodeID=\"%s\">\n", escapeAttr(subject.Value()))
			} else {
				fmt.Fprintf(bw, "  <rdf:Description rdf:about=\"%s\">\n", escapeAttr(subject.Value()))
			}
		}

		ns, local, _ := splitIRI(t.Predicate.Value())
		name := prefixes[ns] + ":" + local
		o := t.Object
		switch {
		case o.IsIRI():
			fmt.Fprintf(bw, "    <%s rdf:resource=\"%s\"/>\n", name, escapeAttr(o.Value()))
		case o.IsBlank():
			fmt.Fprintf(bw, "    <%s rdf:nodeID=\"%s\"/>\n", name, escapeAttr(o.Value()))
		case o.Lang() != "":
			fmt.Fprintf(bw, "    <%s xml:lang=\"%s\">%s</%s>\n", name, escapeAttr(o.Lang()), escapeText(o.Value()), name)
		case o.Datatype() != rdf.XSDString:
			fmt.Fprintf(bw, "    <%s rdf:datatype=\"%s\">%s</%s>\n", name, escapeAttr(o.Datatype()), escapeText(o.Value()), name)
		default:
			fmt.Fprintf(bw, "    <%s>%s</%s>\n", name, escapeText(o.Value()), name)
		}
		return true
	})
	if !subject.IsZero() {
		bw.WriteString("  </rdf:Description>\n")
	}
	bw.WriteString("</rdf:RDF>\n")
	return bw.Flush()
}

// splitIRI splits iri into a namespace and an XML local name.
func splitIRI(iri string) (ns, local string, ok bool) {
	i := len(iri)
	for i > 0 {
		r := rune(iri[i-1])
		if r >= 0x80 || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.') {
			break
		}
		i--
	}
	// A local name must start with a letter or underscore.
	for i < len(iri) && !(unicode.IsLetter(rune(iri[i])) || iri[i] == '_') {
		i++
	}
	if i == 0 || i == len(iri) {
		return "", "", false
	}
	return iri[:i], iri[i:], true
}

func escapeAttr(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func escapeText(s string) string { return escapeAttr(s) }

// readRDFXML reads an RDF/XML document. Node IDs written in the document are
// renamed first, so they keep apart from the labels given to anonymous nodes.
func readRDFXML(r io.Reader) (*rdf.Graph, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, decodingError(err, "rdf/xml")
	}
	doc, err = prefixNodeIDs(doc)
	if err != nil {
		return nil, decodingError(err, "rdf/xml")
	}
	return decodeTriples(knakk.NewTripleDecoder(bytes.NewReader(doc), knakk.RDFXML), "rdf/xml")
}

// prefixNodeIDs returns doc with docBlankPrefix put in front of every
// rdf:nodeID value. Everything else is copied byte for byte.
func prefixNodeIDs(doc []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var out bytes.Buffer
	var copied int64
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		elem, ok := tok.(xml.StartElement)
		if !ok || !hasNodeID(elem) {
			continue
		}

		tag := doc[start:dec.InputOffset()]
		spans := attrValueSpans(tag)
		if len(spans) != len(elem.Attr) {
			return nil, errors.Errorf("cannot locate attributes of <%s> at offset %d", elem.Name.Local, start)
		}
		for i, a := range elem.Attr {
			if !isRDF(a.Name, "nodeID") {
				continue
			}
			out.Write(doc[copied : start+spans[i][0]])
			if err := xml.EscapeText(&out, []byte(docBlankPrefix+a.Value)); err != nil {
				return nil, err
			}
			copied = start + spans[i][1]
		}
	}
	out.Write(doc[copied:])
	return out.Bytes(), nil
}

func hasNodeID(elem xml.StartElement) bool {
	for _, a := range elem.Attr {
		if isRDF(a.Name, "nodeID") {
			return true
		}
	}
	return false
}

// attrValueSpans returns the offsets of each attribute value in a raw start
// tag, excluding the quotes, in document order.
func attrValueSpans(tag []byte) [][2]int64 {
	var spans [][2]int64
	i := bytes.IndexFunc(tag, isXMLSpace)
	if i < 0 {
		return nil
	}
	for {
		for i < len(tag) && isXMLSpace(rune(tag[i])) {
			i++
		}
		if i >= len(tag) || tag[i] == '/' || tag[i] == '>' {
			return spans
		}
		eq := bytes.IndexByte(tag[i:], '=')
		if eq < 0 {
			return spans
		}
		i += eq + 1
		for i < len(tag) && isXMLSpace(rune(tag[i])) {
			i++
		}
		if i >= len(tag) || (tag[i] != '"' && tag[i] != '\'') {
			return spans
		}
		end := bytes.IndexByte(tag[i+1:], tag[i])
		if end < 0 {
			return spans
		}
		spans = append(spans, [2]int64{int64(i + 1), int64(i + 1 + end)})
		i += end + 2
	}
}

func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isRDF(name xml.Name, local string) bool {
	return name.Space == rdf.RDFNamespace && name.Local == local
}
