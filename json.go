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
	"encoding/base64"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IsValidJSON reports whether text is a syntactically valid JSON document.
// Trailing data after the document is not allowed.
// No schema validation is performed.
func IsValidJSON(text string) bool {
	var v interface{}
	return json.Unmarshal([]byte(text), &v) == nil
}

func checkCredential(credential string) error {
	if !IsValidJSON(credential) {
		return ErrInvalidCredential
	}
	return nil
}

var errLineBreak = errors.New("line break in base64 data")

// decodeBase64 decodes padded standard base64.  Line breaks and non-zero
// padding bits are rejected.
func decodeBase64(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, wrapError(KindInvalidEncoding, "invalid base64 encoding", errLineBreak)
	}
	data, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, wrapError(KindInvalidEncoding, "invalid base64 encoding", err)
	}
	return data, nil
}
