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

// ReadFile reads a baked badge from a file and returns the credential.
// If the file carries no credential, ok is false and err is nil.
func ReadFile(filename string) (credential string, ok bool, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", false, err
	}
	return Unbake(data)
}

// Read reads a baked badge from a reader and returns the credential.
func Read(r io.Reader) (credential string, ok bool, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, err
	}
	return Unbake(data)
}
