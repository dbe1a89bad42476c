// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package encoding

import (
	"encoding/json"
	"encoding/xml"
	"io"

	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
)

const resultsNamespace = "http://www.w3.org/2005/sparql-results#"

// jsonResults is the SPARQL 1.1 query results JSON document.
type jsonResults struct {
	Head struct {
		Vars []string `json:"vars,omitempty"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]jsonTerm `json:"bindings"`
	} `json:"results,omitempty"`
	Boolean *bool `json:"boolean,omitempty"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func writeResultsJSON(w io.Writer, rs *sparql.ResultSet) error {
	var doc jsonResults
	if rs.IsBoolean() {
		b := rs.Boolean()
		doc.Boolean = &b
	} else {
		doc.Head.Vars = rs.Vars()
		if doc.Head.Vars == nil {
			doc.Head.Vars = []string{}
		}
		doc.Results = &struct {
			Bindings []map[string]jsonTerm `json:"bindings"`
		}{Bindings: []map[string]jsonTerm{}}
		for row, ok := rs.Next(); ok; row, ok = rs.Next() {
			m := make(map[string]jsonTerm, len(row))
			for name, term := range row {
				if term.IsZero() {
					continue
				}
				m[name] = toJSONTerm(term)
			}
			doc.Results.Bindings = append(doc.Results.Bindings, m)
		}
	}
	return json.NewEncoder(w).Encode(doc)
}

func toJSONTerm(t rdf.Term) jsonTerm {
	switch {
	case t.IsIRI():
		return jsonTerm{Type: "uri", Value: t.Value()}
	case t.IsBlank():
		return jsonTerm{Type: "bnode", Value: t.Value()}
	case t.Lang() != "":
		return jsonTerm{Type: "literal", Value: t.Value(), Lang: t.Lang()}
	case t.Datatype() != rdf.XSDString:
		return jsonTerm{Type: "literal", Value: t.Value(), Datatype: t.Datatype()}
	}
	return jsonTerm{Type: "literal", Value: t.Value()}
}

func (jt jsonTerm) term() (rdf.Term, error) {
	switch jt.Type {
	case "uri":
		return rdf.IRI(jt.Value), nil
	case "bnode":
		return rdf.Blank(jt.Value), nil
	case "literal", "typed-literal":
		switch {
		case jt.Lang != "":
			return rdf.LangLiteral(jt.Value, jt.Lang), nil
		case jt.Datatype != "":
			return rdf.TypedLiteral(jt.Value, jt.Datatype), nil
		}
		return rdf.Literal(jt.Value), nil
	}
	return rdf.Term{}, errors.Errorf("unknown term type %q", jt.Type)
}

func readResultsJSON(r io.Reader) (*sparql.ResultSet, error) {
	var doc jsonResults
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, decodingError(err, "sparql results json")
	}
	if doc.Boolean != nil {
		return sparql.NewBooleanResult(*doc.Boolean), nil
	}
	if doc.Results == nil {
		return nil, decodingError(errors.New(ErrDecodingFailure, "missing results"), "sparql results json")
	}

	rs := sparql.NewResultSet(doc.Head.Vars)
	for _, b := range doc.Results.Bindings {
		row := make(sparql.Binding, len(b))
		for name, jt := range b {
			t, err := jt.term()
			if err != nil {
				return nil, decodingError(err, "sparql results json")
			}
			row[name] = t
		}
		rs.Append(row)
	}
	return rs, nil
}

// xmlResults is the SPARQL query results XML document.
type xmlResults struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/sparql-results# sparql"`
	Head    struct {
		Variables []struct {
			Name string `xml:"name,attr"`
		} `xml:"variable"`
	} `xml:"head"`
	Results *struct {
		Results []xmlResult `xml:"result"`
	} `xml:"results,omitempty"`
	Boolean *bool `xml:"boolean,omitempty"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri,omitempty"`
	BNode   *string     `xml:"bnode,omitempty"`
	Literal *xmlLiteral `xml:"literal,omitempty"`
}

type xmlLiteral struct {
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
	Value    string `xml:",chardata"`
}

func writeResultsXML(w io.Writer, rs *sparql.ResultSet) error {
	var doc xmlResults
	if rs.IsBoolean() {
		b := rs.Boolean()
		doc.Boolean = &b
	} else {
		for _, v := range rs.Vars() {
			doc.Head.Variables = append(doc.Head.Variables, struct {
				Name string `xml:"name,attr"`
			}{Name: v})
		}
		doc.Results = &struct {
			Results []xmlResult `xml:"result"`
		}{}
		for row, ok := rs.Next(); ok; row, ok = rs.Next() {
			var res xmlResult
			// Bindings follow the projection order.
			for _, name := range rs.Vars() {
				t, ok := row[name]
				if !ok || t.IsZero() {
					continue
				}
				res.Bindings = append(res.Bindings, toXMLBinding(name, t))
			}
			doc.Results.Results = append(doc.Results.Results, res)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLBinding(name string, t rdf.Term) xmlBinding {
	b := xmlBinding{Name: name}
	v := t.Value()
	switch {
	case t.IsIRI():
		b.URI = &v
	case t.IsBlank():
		b.BNode = &v
	default:
		lit := &xmlLiteral{Value: v, Lang: t.Lang()}
		if t.Lang() == "" && t.Datatype() != rdf.XSDString {
			lit.Datatype = t.Datatype()
		}
		b.Literal = lit
	}
	return b
}

func readResultsXML(r io.Reader) (*sparql.ResultSet, error) {
	var doc xmlResults
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, decodingError(err, "sparql results xml")
	}
	if doc.Boolean != nil {
		return sparql.NewBooleanResult(*doc.Boolean), nil
	}

	vars := make([]string, 0, len(doc.Head.Variables))
	for _, v := range doc.Head.Variables {
		vars = append(vars, v.Name)
	}
	rs := sparql.NewResultSet(vars)
	if doc.Results == nil {
		return rs, nil
	}
	for _, res := range doc.Results.Results {
		row := make(sparql.Binding, len(res.Bindings))
		for _, b := range res.Bindings {
			switch {
			case b.URI != nil:
				row[b.Name] = rdf.IRI(*b.URI)
			case b.BNode != nil:
				row[b.Name] = rdf.Blank(*b.BNode)
			case b.Literal != nil && b.Literal.Lang != "":
				row[b.Name] = rdf.LangLiteral(b.Literal.Value, b.Literal.Lang)
			case b.Literal != nil:
				row[b.Name] = rdf.TypedLiteral(b.Literal.Value, b.Literal.Datatype)
			default:
				return nil, decodingError(errors.Errorf("binding %q has no value", b.Name), "sparql results xml")
			}
		}
		rs.Append(row)
	}
	return rs, nil
}
