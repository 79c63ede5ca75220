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
	"encoding/base64"

	"github.com/klauspost/compress/zlib"

	"seehuhn.de/go/badge/pngtext"
)

// PNGOptions control how a credential is baked into a PNG image.
// A nil *PNGOptions is equivalent to the zero value.
type PNGOptions struct {
	// Overwrite allows to replace an existing credential.  If Overwrite is
	// false, baking fails with [ErrCredentialExists] when the image already
	// carries a credential.
	Overwrite bool

	// Recompress causes the pixel data to be re-compressed into a single
	// stream of IDAT chunks.  By default, the IDAT chunks of the input are
	// copied unchanged.
	Recompress bool

	// CompressionLevel is the zlib level used when Recompress is set.
	// Zero selects the default level.
	CompressionLevel int

	// CompressText stores the credential in a compressed iTXt chunk.
	CompressText bool

	// Language is an optional BCP 47 tag recorded in the iTXt chunk.
	Language string
}

// extractOrder is the order in which text chunk kinds are searched for a
// credential.
var extractOrder = []pngtext.TextKind{
	pngtext.International,
	pngtext.Latin1,
	pngtext.CompressedLatin1,
}

// BakePNG embeds a credential into a PNG image.
//
// The credential must be valid JSON; it is stored verbatim in an iTXt chunk
// with keyword [Keyword].  All other chunks are copied unchanged, so that the
// result differs from the input only by the credential chunk.
func BakePNG(data []byte, credential string, opt *PNGOptions) ([]byte, error) {
	if opt == nil {
		opt = &PNGOptions{}
	}
	if err := checkCredential(credential); err != nil {
		return nil, err
	}

	img, err := pngtext.Decode(data)
	if err != nil {
		return nil, wrapError(KindDecode, "PNG decoding error", err)
	}

	if !opt.Overwrite {
		for _, kind := range extractOrder {
			if _, found := img.FindText(Keyword, kind); found {
				return nil, ErrCredentialExists
			}
		}
	}

	// Decompress the complete image data, so that corrupt files are
	// rejected instead of being passed on.
	pixels, err := img.Pixels()
	if err != nil {
		return nil, wrapError(KindDecode, "PNG decoding error", err)
	}

	img.RemoveText(Keyword)
	if opt.Recompress {
		level := opt.CompressionLevel
		if level == 0 {
			level = zlib.DefaultCompression
		}
		err = img.SetPixels(pixels, level)
		if err != nil {
			return nil, wrapError(KindEncode, "PNG encoding error", err)
		}
	}

	chunk, err := pngtext.NewInternationalText(Keyword, credential, opt.CompressText, opt.Language)
	if err != nil {
		return nil, wrapError(KindEncode, "PNG encoding error", err)
	}
	err = img.InsertText(chunk)
	if err != nil {
		return nil, wrapError(KindEncode, "PNG encoding error", err)
	}

	buf := &bytes.Buffer{}
	buf.Grow(len(data) + len(chunk.Data) + 12)
	err = img.Encode(buf)
	if err != nil {
		return nil, wrapError(KindEncode, "PNG encoding error", err)
	}
	return buf.Bytes(), nil
}

// UnbakePNG extracts a credential from a PNG image.
//
// The text chunks are searched for the keyword [Keyword], first the iTXt
// chunks, then tEXt, then zTXt.  The text of the first match is returned.
// If no credential is present, ok is false and err is nil.
func UnbakePNG(data []byte) (credential string, ok bool, err error) {
	img, err := pngtext.Decode(data)
	if err != nil {
		return "", false, wrapError(KindDecode, "PNG decoding error", err)
	}

	txt, found := img.FindText(Keyword, extractOrder...)
	if !found {
		return "", false, nil
	}
	credential, err = txt.Value()
	if err != nil {
		return "", false, wrapError(KindDecode, "PNG decoding error", err)
	}
	return credential, true, nil
}

// EmbedPNG is like [BakePNG], but the image is given and returned in base64
// encoding.
//
// The credential is validated before the image is decoded.
func EmbedPNG(imageB64, credential string, overwrite bool) (string, error) {
	if err := checkCredential(credential); err != nil {
		return "", err
	}
	data, err := decodeBase64(imageB64)
	if err != nil {
		return "", err
	}
	out, err := BakePNG(data, credential, &PNGOptions{Overwrite: overwrite})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// ExtractPNG is like [UnbakePNG], but the image is given in base64 encoding.
func ExtractPNG(imageB64 string) (string, bool, error) {
	data, err := decodeBase64(imageB64)
	if err != nil {
		return "", false, err
	}
	return UnbakePNG(data)
}
