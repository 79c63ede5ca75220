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
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zlib"

	"seehuhn.de/go/badge/pngtext"
)

// samplePNG is a 1x1 RGBA image.
const samplePNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

const testCredential = `{"id":"https://example.com/badge","type":["VerifiableCredential","OpenBadgeCredential"]}`

func mustDecodeBase64(t *testing.T, s string) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// pixelsOf decodes a PNG file with the standard library and returns its
// pixels in a representation which does not depend on the image type.
func pixelsOf(t *testing.T, data []byte) []color.NRGBA64 {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	var res []color.NRGBA64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			res = append(res, color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64))
		}
	}
	return res
}

func deflateForTest(t *testing.T, s string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// withText returns a copy of a PNG file with an additional text chunk.
func withText(t *testing.T, data []byte, c pngtext.Chunk) []byte {
	t.Helper()
	img, err := pngtext.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := img.InsertText(c); err != nil {
		t.Fatal(err)
	}
	buf := &bytes.Buffer{}
	if err := img.Encode(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPNGs(t *testing.T) map[string][]byte {
	rgba := image.NewNRGBA(image.Rect(0, 0, 6, 5))
	for i := range rgba.Pix {
		rgba.Pix[i] = uint8(31 * i)
	}
	pal := image.NewPaletted(image.Rect(0, 0, 7, 3), color.Palette{
		color.RGBA{0, 0, 255, 255}, color.RGBA{255, 255, 0, 128}, color.RGBA{0, 0, 0, 0},
	})
	for i := range pal.Pix {
		pal.Pix[i] = uint8(i % 3)
	}
	gray16 := image.NewGray16(image.Rect(0, 0, 4, 4))
	for i := range gray16.Pix {
		gray16.Pix[i] = uint8(i * 13)
	}
	return map[string][]byte{
		"sample":   mustDecodeBase64(t, samplePNG),
		"NRGBA":    encodePNG(t, rgba),
		"Paletted": encodePNG(t, pal),
		"Gray16":   encodePNG(t, gray16),
	}
}

func TestPNGRoundTrip(t *testing.T) {
	options := map[string]*PNGOptions{
		"default":    nil,
		"recompress": {Recompress: true, CompressionLevel: 9},
		"compressed": {CompressText: true, Language: "en"},
	}
	for name, in := range testPNGs(t) {
		for optName, opt := range options {
			t.Run(name+"/"+optName, func(t *testing.T) {
				orig := bytes.Clone(in)
				out, err := BakePNG(in, testCredential, opt)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(in, orig) {
					t.Error("input was modified")
				}

				cred, ok, err := UnbakePNG(out)
				if err != nil {
					t.Fatal(err)
				}
				if !ok || cred != testCredential {
					t.Errorf("got %q %t, want %q", cred, ok, testCredential)
				}

				if d := cmp.Diff(pixelsOf(t, in), pixelsOf(t, out)); d != "" {
					t.Errorf("pixels changed (-want +got):\n%s", d)
				}
			})
		}
	}
}

func TestEmbedPNGGolden(t *testing.T) {
	// The expected output was produced independently: the input file with an
	// iTXt chunk inserted between IHDR and IDAT.
	const want = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAAOmlUWHRvcGVuYmFkZ2VjcmVkZW50aWFsAAAAAAB7ImlkIjoiaHR0cHM6Ly9leGFtcGxlLmNvbS9iYWRnZSJ9FatO9AAAAA1JREFUeNpjZPjPUA8AA4YBgFo0fWsAAAAASUVORK5CYII="

	got, err := EmbedPNG(samplePNG, `{"id":"https://example.com/badge"}`, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}

	cred, ok, err := ExtractPNG(got)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || cred != `{"id":"https://example.com/badge"}` {
		t.Errorf("unexpected credential %q %t", cred, ok)
	}
}

func TestPNGOverwrite(t *testing.T) {
	baked, err := EmbedPNG(samplePNG, testCredential, false)
	if err != nil {
		t.Fatal(err)
	}

	_, err = EmbedPNG(baked, testCredential, false)
	if !errors.Is(err, ErrCredentialExists) {
		t.Fatalf("expected ErrCredentialExists, got %v", err)
	}

	newCredential := `{"id":"https://example.com/credentials/new"}`
	rebaked, err := EmbedPNG(baked, newCredential, true)
	if err != nil {
		t.Fatal(err)
	}
	rebaked, err = EmbedPNG(rebaked, newCredential, true)
	if err != nil {
		t.Fatal(err)
	}

	cred, ok, err := ExtractPNG(rebaked)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || cred != newCredential {
		t.Errorf("got %q %t, want %q", cred, ok, newCredential)
	}

	img, err := pngtext.Decode(mustDecodeBase64(t, rebaked))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, txt := range img.Text() {
		if txt.Keyword == Keyword {
			count++
		}
	}
	if count != 1 {
		t.Errorf("found %d credential chunks, want 1", count)
	}
}

func TestPNGLegacyTextChunks(t *testing.T) {
	base := mustDecodeBase64(t, samplePNG)
	latin1 := pngtext.Chunk{
		Type: "tEXt",
		Data: []byte(Keyword + "\x00{\"name\":\"Ren\xe9\"}"),
	}
	compressed := pngtext.Chunk{
		Type: "zTXt",
		Data: append([]byte(Keyword+"\x00\x00"), deflateForTest(t, "{\"zTXt\":true}")...),
	}

	cases := []struct {
		desc  string
		chunk pngtext.Chunk
		want  string
	}{
		{"tEXt", latin1, `{"name":"René"}`},
		{"zTXt", compressed, `{"zTXt":true}`},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			in := withText(t, base, c.chunk)

			cred, ok, err := UnbakePNG(in)
			if err != nil {
				t.Fatal(err)
			}
			if !ok || cred != c.want {
				t.Errorf("got %q %t, want %q", cred, ok, c.want)
			}

			_, err = BakePNG(in, testCredential, nil)
			if KindOf(err) != KindCredentialExists {
				t.Errorf("expected CredentialExists, got %v", err)
			}

			out, err := BakePNG(in, testCredential, &PNGOptions{Overwrite: true})
			if err != nil {
				t.Fatal(err)
			}
			cred, _, err = UnbakePNG(out)
			if err != nil {
				t.Fatal(err)
			}
			if cred != testCredential {
				t.Errorf("got %q after overwrite", cred)
			}
		})
	}
}

func TestPNGExtractOrder(t *testing.T) {
	in := mustDecodeBase64(t, samplePNG)
	in = withText(t, in, pngtext.Chunk{Type: "tEXt", Data: []byte(Keyword + "\x00\"tEXt\"")})
	itxt, err := pngtext.NewInternationalText(Keyword, `"iTXt"`, false, "")
	if err != nil {
		t.Fatal(err)
	}
	in = withText(t, in, itxt)

	cred, ok, err := UnbakePNG(in)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || cred != `"iTXt"` {
		t.Errorf("got %q %t, want the iTXt value", cred, ok)
	}
}

func TestPNGUnrelatedText(t *testing.T) {
	in := withText(t, mustDecodeBase64(t, samplePNG),
		pngtext.Chunk{Type: "tEXt", Data: []byte("Software\x00paint")})

	cred, ok, err := UnbakePNG(in)
	if err != nil || ok {
		t.Fatalf("unexpected result %q %t %v", cred, ok, err)
	}

	out, err := BakePNG(in, testCredential, nil)
	if err != nil {
		t.Fatal(err)
	}
	img, err := pngtext.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if !img.HasText("Software") {
		t.Error("unrelated text chunk was removed")
	}
}

func TestExtractPNGAbsent(t *testing.T) {
	cred, ok, err := ExtractPNG(samplePNG)
	if err != nil {
		t.Fatal(err)
	}
	if ok || cred != "" {
		t.Errorf("unexpected credential %q", cred)
	}
}

func TestEmbedPNGErrors(t *testing.T) {
	sample := mustDecodeBase64(t, samplePNG)
	truncated := base64.StdEncoding.EncodeToString(sample[:40])
	notPNG := base64.StdEncoding.EncodeToString([]byte("<svg></svg>"))

	cases := []struct {
		desc       string
		image      string
		credential string
		want       Kind
	}{
		{"invalid JSON first", "%%% not base64", "{not valid json", KindInvalidCredential},
		{"empty credential", samplePNG, "", KindInvalidCredential},
		{"trailing garbage", samplePNG, `{"a":1} x`, KindInvalidCredential},
		{"bad base64", "%%% not base64", testCredential, KindInvalidEncoding},
		{"not a PNG", notPNG, testCredential, KindDecode},
		{"truncated PNG", truncated, testCredential, KindDecode},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			out, err := EmbedPNG(c.image, c.credential, false)
			if KindOf(err) != c.want {
				t.Errorf("got %v, want %s", err, c.want)
			}
			if out != "" {
				t.Error("partial output returned")
			}
		})
	}
}

func TestExtractPNGErrors(t *testing.T) {
	if _, _, err := ExtractPNG("***"); KindOf(err) != KindInvalidEncoding {
		t.Errorf("expected InvalidEncoding, got %v", err)
	}
	notPNG := base64.StdEncoding.EncodeToString([]byte("GIF89a"))
	if _, _, err := ExtractPNG(notPNG); KindOf(err) != KindDecode {
		t.Errorf("expected DecodeError, got %v", err)
	}

	wrapped := samplePNG[:40] + "\r\n" + samplePNG[40:]
	if _, _, err := ExtractPNG(wrapped); KindOf(err) != KindInvalidEncoding {
		t.Errorf("line break: expected InvalidEncoding, got %v", err)
	}
	if _, err := EmbedPNG(wrapped, testCredential, false); KindOf(err) != KindInvalidEncoding {
		t.Errorf("line break: expected InvalidEncoding, got %v", err)
	}

	// "e30=" is the canonical encoding of "{}"; "e31=" sets a padding bit.
	if _, _, err := ExtractPNG("e31="); KindOf(err) != KindInvalidEncoding {
		t.Errorf("padding bits: expected InvalidEncoding, got %v", err)
	}
}

func TestPNGShortPixelData(t *testing.T) {
	img := &pngtext.Image{
		Header: pngtext.Header{Width: 3, Height: 3, BitDepth: 8, ColorType: pngtext.RGB},
		Chunks: []pngtext.Chunk{
			{Type: "IDAT", Data: deflateForTest(t, "\x00\x01\x02")},
		},
	}
	buf := &bytes.Buffer{}
	if err := img.Encode(buf); err != nil {
		t.Fatal(err)
	}

	_, err := BakePNG(buf.Bytes(), testCredential, nil)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if !errors.Is(err, pngtext.ErrTruncated) {
		t.Errorf("underlying error not wrapped: %v", err)
	}
}

func TestPNGInvalidLanguage(t *testing.T) {
	_, err := BakePNG(mustDecodeBase64(t, samplePNG), testCredential, &PNGOptions{Language: "??"})
	if KindOf(err) != KindEncode {
		t.Errorf("expected EncodeError, got %v", err)
	}
}
