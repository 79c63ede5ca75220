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

// The following strings are fixed by the Open Badges 3.0 baking
// specification and must not be changed.
const (
	// Keyword is the keyword of the PNG text chunk which holds the credential.
	Keyword = "openbadgecredential"

	// Namespace is the XML namespace of the SVG credential element.
	Namespace = "https://purl.imsglobal.org/ob/v3p0"

	// SVGTagStart is the prefix which identifies a credential element in an
	// SVG document.
	SVGTagStart = "<openbadges:credential"

	// SVGTagEnd is the closing tag of a non-empty credential element.
	SVGTagEnd = "</openbadges:credential>"
)

const (
	nsPrefix       = "openbadges"
	elementName    = nsPrefix + ":credential"
	verifyAttr     = "verify"
	verifyMarker   = verifyAttr + `="`
	svgRootEnd     = "</svg>"
	svgRootStart   = "<svg"
	xmlnsAttrLocal = "xmlns:" + nsPrefix
)
