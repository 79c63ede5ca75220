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

import "errors"

// Kind classifies the errors returned by this package.
//
// Callers should branch on the Kind (using [KindOf] or errors.Is with one of
// the Err... values below) rather than on error strings.
type Kind int

// These are the error kinds used by the package.
const (
	KindInvalidEncoding   Kind = iota + 1 // malformed base64 input
	KindDecode                            // structurally invalid or truncated PNG
	KindEncode                            // PNG could not be written
	KindCredentialExists                  // credential present, overwrite not requested
	KindInvalidCredential                 // credential is not valid JSON
	KindMalformedDocument                 // SVG lacks an anchor for the credential
	KindInvalidUTF8                       // decoded credential is not valid UTF-8
	KindUnsupportedFormat                 // neither PNG nor SVG
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindDecode:
		return "DecodeError"
	case KindEncode:
		return "EncodeError"
	case KindCredentialExists:
		return "CredentialExists"
	case KindInvalidCredential:
		return "InvalidCredential"
	case KindMalformedDocument:
		return "MalformedDocument"
	case KindInvalidUTF8:
		return "InvalidUtf8"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by all operations of this package.
// Err, if set, is the underlying error reported by a codec.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This makes errors.Is(err, ErrCredentialExists) and similar tests work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Values for use with errors.Is.
var (
	ErrInvalidEncoding   = &Error{Kind: KindInvalidEncoding, Msg: "invalid base64 encoding"}
	ErrDecode            = &Error{Kind: KindDecode, Msg: "PNG decoding error"}
	ErrEncode            = &Error{Kind: KindEncode, Msg: "PNG encoding error"}
	ErrCredentialExists  = &Error{Kind: KindCredentialExists, Msg: "credential already exists in image; use overwrite to replace"}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential, Msg: "invalid credential JSON"}
	ErrMalformedDocument = &Error{Kind: KindMalformedDocument, Msg: "malformed SVG document"}
	ErrInvalidUTF8       = &Error{Kind: KindInvalidUTF8, Msg: "invalid UTF-8"}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat, Msg: "unsupported image format"}
)

// KindOf returns the kind of err, or 0 if err was not returned by this
// package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func wrapError(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
