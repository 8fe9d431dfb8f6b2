package projudi

import (
	"fmt"
	"net/http"
	"unicode"
)

// ProcessNumber is a validated CNJ unified process number. It is
// immutable once constructed; the zero value is invalid.
type ProcessNumber struct {
	digits string
}

// cnjDigits is the length of a CNJ unified number with the punctuation
// stripped (NNNNNNN-DD.AAAA.J.TR.OOOO).
const cnjDigits = 20

// ParseProcessNumber validates a raw process number. Punctuation and
// spacing are tolerated and stripped; anything that does not reduce to
// exactly twenty digits is rejected before any network call happens.
func ParseProcessNumber(raw string) (ProcessNumber, error) {
	var digits []rune
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, r)
		case r == '-' || r == '.' || r == '/' || r == ' ':
			// Separator characters used in the formatted CNJ notation.
		default:
			return ProcessNumber{}, fmt.Errorf("%w: unexpected character %q", ErrInvalidProcessNumber, r)
		}
	}
	if len(digits) != cnjDigits {
		return ProcessNumber{}, fmt.Errorf("%w: got %d digits, want %d", ErrInvalidProcessNumber, len(digits), cnjDigits)
	}
	return ProcessNumber{digits: string(digits)}, nil
}

// String returns the bare digit form the portal expects.
func (p ProcessNumber) String() string { return p.digits }

// IsZero reports whether the number was never parsed.
func (p ProcessNumber) IsZero() bool { return p.digits == "" }

// Form is the consultation form for one query attempt. It owns the
// per-query session and the one-time script tokens scraped from the
// page; it is consumed by a single Submit and then discarded.
type Form struct {
	// Captcha holds the challenge image bytes downloaded with the form.
	Captcha []byte

	session         *http.Client
	referer         string
	submitURL       string
	autocompleteURL string
	bytesReceived   int64
}

// BytesReceived reports the response payload bytes read through this
// form's session so far, for telemetry.
func (f *Form) BytesReceived() int64 { return f.bytesReceived }

// ResultPage is the rendered result fragment for a submitted query,
// ready for the movement parser. When the portal paginates old
// movements the fragments are concatenated in portal order.
type ResultPage struct {
	HTML string
}
