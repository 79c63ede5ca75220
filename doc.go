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

// Package badge bakes Open Badges 3.0 credentials into PNG and SVG images,
// and extracts them again.
//
// # Baking
//
// "Baking" a badge stores a JSON credential inside the image file, without
// changing how the image looks.  The way this is done is fixed by the Open
// Badges specification:
//
//   - In PNG files, the credential is stored as the text of an iTXt chunk
//     with keyword "openbadgecredential" (see [Keyword]).
//   - In SVG files, the credential is base64-encoded and stored in the
//     verify attribute of an <openbadges:credential> element, placed just
//     before the closing </svg> tag.
//
// Use [BakePNG] and [BakeSVG] to embed a credential, and [UnbakePNG] and
// [UnbakeSVG] to extract it.  [Bake] and [Unbake] detect the image format
// automatically.  The functions [EmbedPNG], [ExtractPNG], [EmbedSVG] and
// [ExtractSVG] operate on base64-encoded PNG data and are intended for use
// by language bindings.
//
// The credential is only checked for JSON syntax (see [IsValidJSON]); its
// contents are not interpreted.
//
// # Errors
//
// Errors caused by the image data or by the credential are of type [*Error].
// I/O errors from [ReadFile], [Read], [Write] and [BakeFile] are returned
// unchanged.  The [Kind] of an error can be tested using errors.Is with one
// of the Err... values, for example [ErrCredentialExists], or using [KindOf].
//
// # Concurrency
//
// All functions are safe for concurrent use.  No function keeps references to
// its arguments after it returns.
package badge
