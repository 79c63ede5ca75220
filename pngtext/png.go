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

// Package pngtext reads and writes the chunk structure of PNG files.
//
// The package gives access to the textual metadata of a PNG file (tEXt, zTXt
// and iTXt chunks) without decoding the image.  All other chunks are kept
// as opaque byte strings, so that a file can be modified and written back
// without changing anything except the chunks which were explicitly edited.
//
// See https://www.w3.org/TR/png/ for the file format.
package pngtext

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/exp/slices"
)

// Signature is the eight-byte magic number at the start of every PNG file.
const Signature = "\x89PNG\r\n\x1a\n"

var (
	// ErrInvalid indicates that the data does not follow the PNG format.
	ErrInvalid = errors.New("pngtext: invalid PNG data")

	// ErrTruncated indicates that the data ended prematurely.
	ErrTruncated = errors.New("pngtext: unexpected end of data")
)

const (
	maxChunkLen  = 1<<31 - 1
	maxDimension = 1<<31 - 1
	maxPixelData = 1 << 31
	idatSize     = 1 << 20
)

// Chunk is a single PNG chunk, without the length and CRC fields.
type Chunk struct {
	Type string
	Data []byte
}

// IsCritical reports whether a decoder must understand the chunk in order to
// display the image.
func (c Chunk) IsCritical() bool {
	return len(c.Type) == 4 && c.Type[0]&0x20 == 0
}

func isIDAT(c Chunk) bool {
	return c.Type == "IDAT"
}

// Image is a decoded PNG file.
type Image struct {
	Header Header

	// Chunks holds all chunks between IHDR and IEND, in file order.
	Chunks []Chunk
}

// Decode splits a PNG file into its chunks.
//
// The CRC of every chunk is verified, the IHDR chunk is validated, and the
// structure of all text chunks is checked.  Unknown critical chunks are
// rejected, since they cannot be copied safely.  The pixel data is not
// decompressed; use [Image.Pixels] for this.
// The returned image does not share memory with data.
func Decode(data []byte) (*Image, error) {
	if !bytes.HasPrefix(data, []byte(Signature)) {
		if len(data) < len(Signature) && bytes.HasPrefix([]byte(Signature), data) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("%w: missing PNG signature", ErrInvalid)
	}
	rest := data[len(Signature):]

	img := &Image{}
	first := true
	for {
		c, tail, err := readChunk(rest)
		if err != nil {
			return nil, err
		}
		rest = tail

		if first {
			if c.Type != "IHDR" {
				return nil, fmt.Errorf("%w: first chunk is %s, not IHDR", ErrInvalid, c.Type)
			}
			img.Header, err = parseHeader(c.Data)
			if err != nil {
				return nil, err
			}
			first = false
			continue
		}

		switch c.Type {
		case "IHDR":
			return nil, fmt.Errorf("%w: duplicate IHDR chunk", ErrInvalid)
		case "IEND":
			return img, img.check()
		case "tEXt", "zTXt", "iTXt":
			if _, err := parseText(c); err != nil {
				return nil, err
			}
		case "PLTE", "IDAT":
		default:
			if c.IsCritical() {
				return nil, fmt.Errorf("%w: unknown critical chunk %s", ErrInvalid, c.Type)
			}
		}
		c.Data = bytes.Clone(c.Data)
		img.Chunks = append(img.Chunks, c)
	}
}

// check verifies the presence of the chunks required by the image header.
func (img *Image) check() error {
	if !slices.ContainsFunc(img.Chunks, isIDAT) {
		return fmt.Errorf("%w: no IDAT chunk", ErrInvalid)
	}
	if img.Header.ColorType == Paletted {
		hasPalette := slices.ContainsFunc(img.Chunks, func(c Chunk) bool {
			return c.Type == "PLTE"
		})
		if !hasPalette {
			return fmt.Errorf("%w: palette image without PLTE chunk", ErrInvalid)
		}
	}
	return nil
}

func readChunk(b []byte) (Chunk, []byte, error) {
	if len(b) < 8 {
		return Chunk{}, nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(b[:4])
	if n > maxChunkLen {
		return Chunk{}, nil, fmt.Errorf("%w: chunk length %d", ErrInvalid, n)
	}
	tp := b[4:8]
	if !isChunkType(tp) {
		return Chunk{}, nil, fmt.Errorf("%w: chunk type %q", ErrInvalid, tp)
	}
	if uint64(len(b)) < 12+uint64(n) {
		return Chunk{}, nil, fmt.Errorf("%w in %s chunk", ErrTruncated, tp)
	}
	end := 8 + int(n)
	want := binary.BigEndian.Uint32(b[end : end+4])
	if got := crc32.ChecksumIEEE(b[4:end]); got != want {
		return Chunk{}, nil, fmt.Errorf("%w: CRC mismatch in %s chunk", ErrInvalid, tp)
	}
	return Chunk{Type: string(tp), Data: b[8:end]}, b[end+4:], nil
}

func isChunkType(tp []byte) bool {
	for _, c := range tp {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return len(tp) == 4
}

// Encode writes the image as a PNG file.
func (img *Image) Encode(w io.Writer) error {
	err := img.Header.Validate()
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, Signature)
	if err != nil {
		return err
	}
	err = writeChunk(w, "IHDR", img.Header.marshal())
	if err != nil {
		return err
	}
	for _, c := range img.Chunks {
		if c.Type == "IHDR" || c.Type == "IEND" {
			return fmt.Errorf("%w: %s in chunk list", ErrInvalid, c.Type)
		}
		err = writeChunk(w, c.Type, c.Data)
		if err != nil {
			return err
		}
	}
	return writeChunk(w, "IEND", nil)
}

func writeChunk(w io.Writer, tp string, data []byte) error {
	if !isChunkType([]byte(tp)) {
		return fmt.Errorf("%w: chunk type %q", ErrInvalid, tp)
	}
	if len(data) > maxChunkLen {
		return fmt.Errorf("%w: %s chunk too long", ErrInvalid, tp)
	}

	var head [8]byte
	binary.BigEndian.PutUint32(head[:4], uint32(len(data)))
	copy(head[4:], tp)
	crc := crc32.NewIEEE()
	crc.Write(head[4:])
	crc.Write(data)
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], crc.Sum32())

	for _, b := range [][]byte{head[:], data, tail[:]} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Pixels decompresses the image data.
//
// The result is the filtered scanline stream, exactly
// [Header.PixelDataSize] bytes long.  An error is returned if the IDAT
// chunks decompress to fewer bytes.
func (img *Image) Pixels() ([]byte, error) {
	size := img.Header.PixelDataSize()
	if size > maxPixelData {
		return nil, fmt.Errorf("%w: %d bytes of pixel data", ErrInvalid, size)
	}

	var parts []io.Reader
	for _, c := range img.Chunks {
		if isIDAT(c) {
			parts = append(parts, bytes.NewReader(c.Data))
		}
	}
	zr, err := zlib.NewReader(io.MultiReader(parts...))
	if err != nil {
		return nil, fmt.Errorf("pixel data: %w", err)
	}
	defer zr.Close()

	// The buffer grows with the decompressed data, so that a large header
	// with little data does not allocate the full image size.
	buf, err := io.ReadAll(io.LimitReader(zr, size))
	if err == io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %d of %d bytes of pixel data", ErrTruncated, len(buf), size)
	} else if err != nil {
		return nil, fmt.Errorf("pixel data: %w", err)
	}
	if int64(len(buf)) < size {
		return nil, fmt.Errorf("%w: %d of %d bytes of pixel data", ErrTruncated, len(buf), size)
	}
	return buf, nil
}

// SetPixels replaces the IDAT chunks of the image with a freshly compressed
// copy of raw.  The new chunks take the place of the first existing IDAT
// chunk.  The level is passed to the zlib compressor.
func (img *Image) SetPixels(raw []byte, level int) error {
	if size := img.Header.PixelDataSize(); int64(len(raw)) != size {
		return fmt.Errorf("%w: %d bytes of pixel data, need %d", ErrInvalid, len(raw), size)
	}

	buf := &bytes.Buffer{}
	zw, err := zlib.NewWriterLevel(buf, level)
	if err != nil {
		return err
	}
	_, err = zw.Write(raw)
	if err != nil {
		return err
	}
	err = zw.Close()
	if err != nil {
		return err
	}

	var idat []Chunk
	for data := buf.Bytes(); len(data) > 0; {
		n := min(len(data), idatSize)
		idat = append(idat, Chunk{Type: "IDAT", Data: data[:n]})
		data = data[n:]
	}

	pos := slices.IndexFunc(img.Chunks, isIDAT)
	if pos < 0 {
		pos = len(img.Chunks)
	}
	img.Chunks = slices.DeleteFunc(img.Chunks, isIDAT)
	img.Chunks = slices.Insert(img.Chunks, pos, idat...)
	return nil
}
