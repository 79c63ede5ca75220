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

package pngtext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

// TextKind identifies one of the three PNG text chunk types.
type TextKind int

// These are the supported text chunk types.
const (
	International    TextKind = iota + 1 // iTXt, UTF-8 text, optionally compressed
	Latin1                               // tEXt, uncompressed Latin-1 text
	CompressedLatin1                     // zTXt, compressed Latin-1 text
)

// ChunkType returns the four-letter chunk type used for the text kind.
func (k TextKind) ChunkType() string {
	switch k {
	case International:
		return "iTXt"
	case Latin1:
		return "tEXt"
	case CompressedLatin1:
		return "zTXt"
	default:
		return ""
	}
}

func (k TextKind) String() string {
	if tp := k.ChunkType(); tp != "" {
		return tp
	}
	return fmt.Sprintf("TextKind(%d)", int(k))
}

func textKind(chunkType string) TextKind {
	switch chunkType {
	case "iTXt":
		return International
	case "tEXt":
		return Latin1
	case "zTXt":
		return CompressedLatin1
	default:
		return 0
	}
}

const (
	maxKeywordLen = 79
	maxTextSize   = 1 << 26
)

// Text is a keyword/value pair from a tEXt, zTXt or iTXt chunk.
type Text struct {
	Kind       TextKind
	Keyword    string
	Compressed bool

	// Language and TranslatedKeyword are only used for iTXt chunks.
	Language          string
	TranslatedKeyword string

	raw []byte
}

// Value returns the text, converted to UTF-8.
//
// Latin-1 text is converted exactly.  Malformed UTF-8 in iTXt chunks is
// replaced by U+FFFD.  An error is only returned if compressed text cannot
// be decompressed.
func (t *Text) Value() (string, error) {
	raw := t.raw
	if t.Compressed {
		var err error
		raw, err = inflate(raw)
		if err != nil {
			return "", fmt.Errorf("%s chunk %q: %w", t.Kind, t.Keyword, err)
		}
	}

	if t.Kind == International {
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
	}
	return latin1ToString(raw), nil
}

func latin1ToString(b []byte) string {
	// Every byte sequence is valid Latin-1, so this cannot fail.
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	res, err := io.ReadAll(io.LimitReader(zr, maxTextSize+1))
	if err != nil {
		return nil, err
	}
	if len(res) > maxTextSize {
		return nil, fmt.Errorf("%w: text exceeds %d bytes", ErrInvalid, maxTextSize)
	}
	return res, nil
}

func deflate(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	_, err := zw.Write(data)
	if err != nil {
		return nil, err
	}
	err = zw.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseText decodes the structure of a text chunk.  Compressed text is kept
// compressed.
func parseText(c Chunk) (*Text, error) {
	kind := textKind(c.Type)
	if kind == 0 {
		return nil, fmt.Errorf("%w: %s is not a text chunk", ErrInvalid, c.Type)
	}

	data := c.Data
	k := bytes.IndexByte(data, 0)
	if k < 1 || k > maxKeywordLen {
		return nil, fmt.Errorf("%w: malformed keyword in %s chunk", ErrInvalid, c.Type)
	}
	t := &Text{
		Kind:    kind,
		Keyword: latin1ToString(data[:k]),
	}
	data = data[k+1:]

	switch kind {
	case Latin1:
		t.raw = data
	case CompressedLatin1:
		if len(data) < 1 || data[0] != 0 {
			return nil, fmt.Errorf("%w: zTXt compression method", ErrInvalid)
		}
		t.Compressed = true
		t.raw = data[1:]
	case International:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: truncated iTXt chunk", ErrInvalid)
		}
		switch {
		case data[0] > 1:
			return nil, fmt.Errorf("%w: iTXt compression flag %d", ErrInvalid, data[0])
		case data[0] == 1 && data[1] != 0:
			return nil, fmt.Errorf("%w: iTXt compression method %d", ErrInvalid, data[1])
		}
		t.Compressed = data[0] == 1
		data = data[2:]

		fields := bytes.SplitN(data, []byte{0}, 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: truncated iTXt chunk", ErrInvalid)
		}
		t.Language = string(fields[0])
		t.TranslatedKeyword = strings.ToValidUTF8(string(fields[1]), "\uFFFD")
		t.raw = fields[2]
	}
	return t, nil
}

// NewInternationalText returns an iTXt chunk with the given keyword and text.
// If compressed is true, the text is stored zlib-compressed.  The language
// may be empty; otherwise it must be a well-formed BCP 47 language tag.
func NewInternationalText(keyword, text string, compressed bool, lang string) (Chunk, error) {
	kw, err := encodeKeyword(keyword)
	if err != nil {
		return Chunk{}, err
	}
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return Chunk{}, fmt.Errorf("invalid iTXt language tag %q: %w", lang, err)
		}
		lang = tag.String()
	}
	if !utf8.ValidString(text) {
		return Chunk{}, fmt.Errorf("%w: iTXt text is not valid UTF-8", ErrInvalid)
	}

	body := []byte(text)
	var flag byte
	if compressed {
		body, err = deflate(body)
		if err != nil {
			return Chunk{}, err
		}
		flag = 1
	}

	data := make([]byte, 0, len(kw)+len(lang)+len(body)+5)
	data = append(data, kw...)
	data = append(data, 0, flag, 0)
	data = append(data, lang...)
	data = append(data, 0, 0)
	data = append(data, body...)
	return Chunk{Type: "iTXt", Data: data}, nil
}

// encodeKeyword converts a keyword to Latin-1 and checks the rules from
// section 11.3.4.2 of the PNG specification.
func encodeKeyword(keyword string) ([]byte, error) {
	kw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(keyword))
	if err != nil {
		return nil, fmt.Errorf("%w: keyword %q is not Latin-1", ErrInvalid, keyword)
	}
	if len(kw) < 1 || len(kw) > maxKeywordLen {
		return nil, fmt.Errorf("%w: keyword %q has length %d", ErrInvalid, keyword, len(kw))
	}
	for i, c := range kw {
		printable := c >= 32 && c <= 126 || c >= 161
		if !printable {
			return nil, fmt.Errorf("%w: keyword %q contains byte 0x%02x", ErrInvalid, keyword, c)
		}
		if c == ' ' && (i == 0 || i == len(kw)-1 || kw[i-1] == ' ') {
			return nil, fmt.Errorf("%w: misplaced space in keyword %q", ErrInvalid, keyword)
		}
	}
	return kw, nil
}

// Text returns all text chunks of the image, in file order.
func (img *Image) Text() []*Text {
	var res []*Text
	for _, c := range img.Chunks {
		if textKind(c.Type) == 0 {
			continue
		}
		t, err := parseText(c)
		if err != nil {
			// Malformed chunks can only be present if the chunk list
			// was modified after decoding.
			continue
		}
		res = append(res, t)
	}
	return res
}

// FindText returns the first text chunk with the given keyword.
// The kinds are searched in the order given; within each kind the chunks are
// searched in file order.  If no kinds are given, all chunks are searched in
// file order.
func (img *Image) FindText(keyword string, kinds ...TextKind) (*Text, bool) {
	all := img.Text()
	if len(kinds) == 0 {
		for _, t := range all {
			if t.Keyword == keyword {
				return t, true
			}
		}
		return nil, false
	}
	for _, kind := range kinds {
		for _, t := range all {
			if t.Kind == kind && t.Keyword == keyword {
				return t, true
			}
		}
	}
	return nil, false
}

// HasText reports whether a tEXt, zTXt or iTXt chunk with the given keyword
// is present.
func (img *Image) HasText(keyword string) bool {
	_, found := img.FindText(keyword)
	return found
}

// RemoveText removes all text chunks with the given keyword and returns the
// number of chunks removed.
func (img *Image) RemoveText(keyword string) int {
	before := len(img.Chunks)
	img.Chunks = slices.DeleteFunc(img.Chunks, func(c Chunk) bool {
		if textKind(c.Type) == 0 {
			return false
		}
		t, err := parseText(c)
		return err == nil && t.Keyword == keyword
	})
	return before - len(img.Chunks)
}

// InsertText adds a text chunk immediately before the first IDAT chunk.
func (img *Image) InsertText(c Chunk) error {
	if _, err := parseText(c); err != nil {
		return err
	}
	pos := slices.IndexFunc(img.Chunks, isIDAT)
	if pos < 0 {
		pos = len(img.Chunks)
	}
	img.Chunks = slices.Insert(img.Chunks, pos, c)
	return nil
}
