// seehuhn.de/go/badge - Open Badges baking in Go
// Copyright (C) 2024  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package badge

import (
	"encoding/base64"
	"encoding/xml"
	"strings"
	"unicode/utf8"

	"seehuhn.de/go/badge/jvxml"
)

// BakeSVG embeds a credential into an SVG document.
//
// The credential must be valid JSON.  It is base64-encoded and stored in the
// verify attribute of an <openbadges:credential> element, which is inserted
// on a new line immediately before the last </svg> tag.
//
// Credential elements are located by plain substring search for
// [SVGTagStart]; the document is not parsed.  If overwrite is true, all
// existing credential elements are removed first.  A credential element ends
// either with "/>" or with [SVGTagEnd]; an element with neither makes the
// document malformed.
func BakeSVG(doc, credential string, overwrite bool) (string, error) {
	if err := checkCredential(credential); err != nil {
		return "", err
	}

	if strings.Contains(doc, SVGTagStart) {
		if !overwrite {
			return "", &Error{
				Kind: KindCredentialExists,
				Msg:  "credential already exists in SVG; use overwrite to replace",
			}
		}
		var err error
		doc, err = removeCredentials(doc)
		if err != nil {
			return "", err
		}
	}

	elem, err := credentialElement(credential)
	if err != nil {
		return "", err
	}

	pos := strings.LastIndex(doc, svgRootEnd)
	if pos < 0 {
		return "", &Error{
			Kind: KindMalformedDocument,
			Msg:  "could not find closing " + svgRootEnd + " tag",
		}
	}

	b := &strings.Builder{}
	b.Grow(len(doc) + len(elem) + 1)
	b.WriteString(doc[:pos])
	b.WriteByte('\n')
	b.WriteString(elem)
	b.WriteString(doc[pos:])
	return b.String(), nil
}

// removeCredentials deletes all credential elements from doc.
func removeCredentials(doc string) (string, error) {
	for {
		start := strings.Index(doc, SVGTagStart)
		if start < 0 {
			return doc, nil
		}
		end, ok := credentialEnd(doc, start)
		if !ok {
			return "", &Error{
				Kind: KindMalformedDocument,
				Msg:  "unterminated " + elementName + " element",
			}
		}
		doc = doc[:start] + doc[end:]
	}
}

// credentialEnd returns the offset just after the credential element which
// starts at doc[start:].
func credentialEnd(doc string, start int) (int, bool) {
	var quote byte
	for i := start + len(SVGTagStart); i < len(doc); i++ {
		c := doc[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			if doc[i-1] == '/' {
				return i + 1, true
			}
			k := strings.Index(doc[i+1:], SVGTagEnd)
			if k < 0 {
				return 0, false
			}
			return i + 1 + k + len(SVGTagEnd), true
		}
	}
	return 0, false
}

// credentialElement returns the textual form of the credential element:
//
//	<openbadges:credential xmlns:openbadges="..." verify="..."/>
func credentialElement(credential string) (string, error) {
	b := &strings.Builder{}
	enc := jvxml.NewEncoder(b)
	err := enc.EncodeToken(jvxml.EmptyElement{
		Name: xml.Name{Local: elementName},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: xmlnsAttrLocal}, Value: Namespace},
			{Name: xml.Name{Local: verifyAttr}, Value: base64.StdEncoding.EncodeToString([]byte(credential))},
		},
	})
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return "", &Error{Kind: KindEncode, Msg: "cannot write credential element", Err: err}
	}
	return b.String(), nil
}

// UnbakeSVG extracts a credential from an SVG document.
//
// The first credential element is located by substring search, and the
// value of the first verify attribute following it is base64-decoded.  If no
// credential is present, ok is false and err is nil.  The returned text is
// not checked for JSON validity.
func UnbakeSVG(doc string) (credential string, ok bool, err error) {
	start := strings.Index(doc, SVGTagStart)
	if start < 0 {
		return "", false, nil
	}
	rest := doc[start:]
	k := strings.Index(rest, verifyMarker)
	if k < 0 {
		return "", false, nil
	}
	rest = rest[k+len(verifyMarker):]
	k = strings.IndexByte(rest, '"')
	if k < 0 {
		return "", false, nil
	}

	data, err := decodeBase64(rest[:k])
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(data) {
		return "", false, &Error{Kind: KindInvalidUTF8, Msg: "credential is not valid UTF-8"}
	}
	return string(data), true, nil
}

// EmbedSVG embeds a credential into an SVG document.
// This is the same as [BakeSVG].
func EmbedSVG(doc, credential string, overwrite bool) (string, error) {
	return BakeSVG(doc, credential, overwrite)
}

// ExtractSVG extracts a credential from an SVG document.
// This is the same as [UnbakeSVG].
func ExtractSVG(doc string) (string, bool, error) {
	return UnbakeSVG(doc)
}
