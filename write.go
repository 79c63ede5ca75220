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
	"io"
	"os"
)

// Write bakes a credential into the image data and writes the result to w.
func Write(w io.Writer, data []byte, credential string, overwrite bool) error {
	out, err := Bake(data, credential, overwrite)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// BakeFile reads an image from src, bakes the credential into it and writes
// the result to dst.  src and dst may be the same file.  Nothing is written
// if baking fails.
func BakeFile(src, dst string, credential string, overwrite bool) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out, err := Bake(data, credential, overwrite)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, out, 0o644)
}
