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
	"bytes"
	"unicode/utf8"

	"seehuhn.de/go/badge/pngtext"
)

// Format is an image format which can carry a baked credential.
type Format int

// These are the supported image formats.
const (
	Unknown Format = iota
	PNG
	SVG
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "PNG"
	case SVG:
		return "SVG"
	default:
		return "unknown"
	}
}

// DetectFormat guesses the format of an image file.
// PNG files are recognised by their signature, SVG files by the presence of
// an <svg element.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte(pngtext.Signature)):
		return PNG
	case bytes.Contains(data, []byte(svgRootStart)):
		return SVG
	default:
		return Unknown
	}
}

// Bake embeds a credential into a PNG or SVG image.
// The format is determined using [DetectFormat].  The credential is
// validated before the image is inspected.
func Bake(data []byte, credential string, overwrite bool) ([]byte, error) {
	if err := checkCredential(credential); err != nil {
		return nil, err
	}
	switch DetectFormat(data) {
	case PNG:
		return BakePNG(data, credential, &PNGOptions{Overwrite: overwrite})
	case SVG:
		if !utf8.Valid(data) {
			return nil, errSVGNotUTF8
		}
		doc, err := BakeSVG(string(data), credential, overwrite)
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

var errSVGNotUTF8 = &Error{Kind: KindMalformedDocument, Msg: "SVG document is not valid UTF-8"}

// Unbake extracts a credential from a PNG or SVG image.
// If the image carries no credential, ok is false and err is nil.
func Unbake(data []byte) (credential string, ok bool, err error) {
	switch DetectFormat(data) {
	case PNG:
		return UnbakePNG(data)
	case SVG:
		if !utf8.Valid(data) {
			return "", false, errSVGNotUTF8
		}
		return UnbakeSVG(string(data))
	default:
		return "", false, ErrUnsupportedFormat
	}
}
