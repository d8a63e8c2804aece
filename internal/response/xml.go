// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package response

import (
	"encoding/xml"
	"errors"
	"io"
)

// Element is one node of a parsed RETS reply document. RETS payloads mix
// meaningful element order (COLUMNS before DATA, MAXROWS last) with text
// bodies holding delimited data, so replies are kept as an ordered tree
// rather than unmarshaled into fixed structs.
type Element struct {
	Tag      string
	Attr     map[string]string
	Text     string
	Children []*Element
}

// ParseDocument reads an XML document and returns its root element.
// Malformed XML is reported as-is; it means the reply arrived but is
// structurally broken, which callers must not retry.
func ParseDocument(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var root *Element
	var stack []*Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local, Attr: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.Attr[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, errors.New("empty XML document")
	}
	return root, nil
}
