// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jvxml writes XML fragments token by token.
//
// Unlike the encoder in encoding/xml, names are written exactly as given:
// a name like "openbadges:credential" is emitted verbatim, and no namespace
// prefixes are invented.  This makes it possible to produce elements whose
// textual form is fixed by an external specification.
package jvxml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

// Token is one of xml.StartElement, xml.EndElement, xml.CharData or
// EmptyElement.
type Token interface{}

// EmptyElement represents a self-closing XML element, written as <name .../>.
type EmptyElement xml.StartElement

// An Encoder writes XML data to an output stream.
type Encoder struct {
	p printer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{printer{w: bufio.NewWriter(w)}}
}

// EncodeToken writes the given XML token to the stream.
// It returns an error if StartElement and EndElement tokens are not properly
// matched.
//
// EncodeToken does not call [Encoder.Flush].
func (enc *Encoder) EncodeToken(t Token) error {
	p := &enc.p
	switch t := t.(type) {
	case xml.StartElement:
		if err := p.writeStart(t.Name, t.Attr, false); err != nil {
			return err
		}
	case EmptyElement:
		if err := p.writeStart(t.Name, t.Attr, true); err != nil {
			return err
		}
	case xml.EndElement:
		if err := p.writeEnd(t.Name); err != nil {
			return err
		}
	case xml.CharData:
		p.escape(t)
	default:
		return fmt.Errorf("xml: EncodeToken of invalid token type")
	}
	return p.cachedWriteError()
}

// Flush flushes any buffered XML to the underlying writer.
func (enc *Encoder) Flush() error {
	return enc.p.w.Flush()
}

// Close the Encoder, indicating that no more data will be written. It flushes
// any buffered XML to the underlying writer and returns an error if the
// written XML is invalid (e.g. by containing unclosed elements).
func (enc *Encoder) Close() error {
	return enc.p.Close()
}

type printer struct {
	w      *bufio.Writer
	tags   []xml.Name
	closed bool
	err    error
}

func (p *printer) writeStart(name xml.Name, attr []xml.Attr, empty bool) error {
	if name.Space != "" {
		return fmt.Errorf("xml: unexpected namespace %q for <%s>", name.Space, name.Local)
	}
	if !IsName(name.Local) {
		return fmt.Errorf("xml: invalid element name %q", name.Local)
	}

	p.WriteString("<")
	p.WriteString(name.Local)
	for _, a := range attr {
		if a.Name.Space != "" || !IsName(a.Name.Local) {
			return fmt.Errorf("xml: invalid attribute name %q", a.Name.Local)
		}
		p.WriteString(" ")
		p.WriteString(a.Name.Local)
		p.WriteString(`="`)
		p.escape([]byte(a.Value))
		p.WriteString(`"`)
	}
	if empty {
		p.WriteString("/>")
	} else {
		p.WriteString(">")
		p.tags = append(p.tags, name)
	}
	return nil
}

func (p *printer) writeEnd(name xml.Name) error {
	if name.Local == "" {
		return fmt.Errorf("xml: end tag with no name")
	}
	if len(p.tags) == 0 {
		return fmt.Errorf("xml: end tag </%s> without start tag", name.Local)
	}
	if top := p.tags[len(p.tags)-1]; top != name {
		return fmt.Errorf("xml: end tag </%s> does not match start tag <%s>", name.Local, top.Local)
	}
	p.tags = p.tags[:len(p.tags)-1]

	p.WriteString("</")
	p.WriteString(name.Local)
	p.WriteString(">")
	return nil
}

func (p *printer) escape(b []byte) {
	if p.err != nil {
		return
	}
	p.err = xml.EscapeText(p, b)
}

// Write implements io.Writer
func (p *printer) Write(b []byte) (n int, err error) {
	if p.closed && p.err == nil {
		p.err = errors.New("use of closed Encoder")
	}
	if p.err == nil {
		n, p.err = p.w.Write(b)
	}
	return n, p.err
}

// WriteString implements io.StringWriter
func (p *printer) WriteString(s string) (n int, err error) {
	if p.closed && p.err == nil {
		p.err = errors.New("use of closed Encoder")
	}
	if p.err == nil {
		n, p.err = p.w.WriteString(s)
	}
	return n, p.err
}

// Close the Encoder, indicating that no more data will be written.
func (p *printer) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.w.Flush(); err != nil {
		return err
	}
	if len(p.tags) > 0 {
		return fmt.Errorf("unclosed tag <%s>", p.tags[len(p.tags)-1].Local)
	}
	return nil
}

// return the bufio Writer's cached write error
func (p *printer) cachedWriteError() error {
	_, err := p.Write(nil)
	return err
}

// IsName reports whether s is a valid XML name.  Colons are allowed, so
// that qualified names like "openbadges:credential" are accepted.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	c, n := utf8.DecodeRuneInString(s)
	if c == utf8.RuneError && n == 1 {
		return false
	}
	if !unicode.Is(first, c) {
		return false
	}
	for n < len(s) {
		s = s[n:]
		c, n = utf8.DecodeRuneInString(s)
		if c == utf8.RuneError && n == 1 {
			return false
		}
		if !unicode.Is(first, c) && !unicode.Is(second, c) {
			return false
		}
	}
	return true
}

// The tables follow the NameStartChar and NameChar productions of the XML 1.0
// specification, fifth edition.
var first = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x003A, 0x003A, 1},
		{0x0041, 0x005A, 1},
		{0x005F, 0x005F, 1},
		{0x0061, 0x007A, 1},
		{0x00C0, 0x00D6, 1},
		{0x00D8, 0x00F6, 1},
		{0x00F8, 0x02FF, 1},
		{0x0370, 0x037D, 1},
		{0x037F, 0x1FFF, 1},
		{0x200C, 0x200D, 1},
		{0x2070, 0x218F, 1},
		{0x2C00, 0x2FEF, 1},
		{0x3001, 0xD7FF, 1},
		{0xF900, 0xFDCF, 1},
		{0xFDF0, 0xFFFD, 1},
	},
	R32: []unicode.Range32{
		{0x10000, 0xEFFFF, 1},
	},
}

var second = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x002D, 0x002E, 1},
		{0x0030, 0x0039, 1},
		{0x00B7, 0x00B7, 1},
		{0x0300, 0x036F, 1},
		{0x203F, 0x2040, 1},
	},
}
