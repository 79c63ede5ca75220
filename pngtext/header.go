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
	"encoding/binary"
	"fmt"
)

// ColorType is the colour type field of the IHDR chunk.
type ColorType uint8

// These are the colour types allowed by the PNG specification.
const (
	Gray      ColorType = 0
	RGB       ColorType = 2
	Paletted  ColorType = 3
	GrayAlpha ColorType = 4
	RGBA      ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case Gray:
		return "gray"
	case RGB:
		return "RGB"
	case Paletted:
		return "paletted"
	case GrayAlpha:
		return "gray+alpha"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("ColorType(%d)", uint8(c))
	}
}

func (c ColorType) channels() int {
	switch c {
	case Gray, Paletted:
		return 1
	case GrayAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

// bitDepths lists the allowed bit depths for each colour type.
var bitDepths = map[ColorType][]uint8{
	Gray:      {1, 2, 4, 8, 16},
	RGB:       {8, 16},
	Paletted:  {1, 2, 4, 8},
	GrayAlpha: {8, 16},
	RGBA:      {8, 16},
}

// Header holds the fields of the IHDR chunk.
type Header struct {
	Width, Height uint32
	BitDepth      uint8
	ColorType     ColorType
	Compression   uint8
	Filter        uint8
	Interlace     uint8
}

// Validate checks that the header describes a valid PNG image.
func (h Header) Validate() error {
	if h.Width == 0 || h.Height == 0 || h.Width > maxDimension || h.Height > maxDimension {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalid, h.Width, h.Height)
	}
	depths, ok := bitDepths[h.ColorType]
	if !ok {
		return fmt.Errorf("%w: colour type %d", ErrInvalid, h.ColorType)
	}
	valid := false
	for _, d := range depths {
		if d == h.BitDepth {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: bit depth %d for %s image", ErrInvalid, h.BitDepth, h.ColorType)
	}
	if h.Compression != 0 {
		return fmt.Errorf("%w: compression method %d", ErrInvalid, h.Compression)
	}
	if h.Filter != 0 {
		return fmt.Errorf("%w: filter method %d", ErrInvalid, h.Filter)
	}
	if h.Interlace > 1 {
		return fmt.Errorf("%w: interlace method %d", ErrInvalid, h.Interlace)
	}
	return nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) != 13 {
		return Header{}, fmt.Errorf("%w: IHDR chunk has length %d", ErrInvalid, len(data))
	}
	h := Header{
		Width:       binary.BigEndian.Uint32(data[0:4]),
		Height:      binary.BigEndian.Uint32(data[4:8]),
		BitDepth:    data[8],
		ColorType:   ColorType(data[9]),
		Compression: data[10],
		Filter:      data[11],
		Interlace:   data[12],
	}
	err := h.Validate()
	if err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h Header) marshal() []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], h.Width)
	binary.BigEndian.PutUint32(data[4:8], h.Height)
	data[8] = h.BitDepth
	data[9] = byte(h.ColorType)
	data[10] = h.Compression
	data[11] = h.Filter
	data[12] = h.Interlace
	return data
}

// adam7 lists the origin and spacing of the seven interlacing passes.
var adam7 = [7]struct{ x0, y0, dx, dy int64 }{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// PixelDataSize returns the length of the decompressed IDAT stream.
// This includes the filter type byte at the start of every scanline, and
// takes interlacing into account.
func (h Header) PixelDataSize() int64 {
	bits := int64(h.ColorType.channels()) * int64(h.BitDepth)
	rowSize := func(width int64) int64 {
		return 1 + (width*bits+7)/8
	}

	w, ht := int64(h.Width), int64(h.Height)
	if h.Interlace == 0 {
		return ht * rowSize(w)
	}

	var total int64
	for _, p := range adam7 {
		pw := (w - p.x0 + p.dx - 1) / p.dx
		ph := (ht - p.y0 + p.dy - 1) / p.dy
		if pw <= 0 || ph <= 0 {
			continue
		}
		total += ph * rowSize(pw)
	}
	return total
}
