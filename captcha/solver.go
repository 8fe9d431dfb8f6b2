// Package captcha turns Projudi CAPTCHA images into text candidates.
//
// Recognition is probabilistic: a returned candidate may be wrong and
// only the portal's response reveals that. Callers retry with a freshly
// fetched challenge, never by resubmitting the same image. The package
// never talks to the portal itself; it only processes image bytes
// handed to it, which keeps it testable with fixed samples.
package captcha

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"
)

// Engine is the OCR provider contract: one image in, one candidate out.
type Engine interface {
	Name() string
	Solve(ctx context.Context, image []byte) (string, error)
}

// Tesseract implements Engine using the gosseract client. A fresh
// client is created per call; gosseract clients are not safe for
// concurrent use and queries run concurrently.
type Tesseract struct {
	clientFactory func() *gosseract.Client
	logger        zerolog.Logger
}

// NewTesseract constructs a Tesseract-backed CAPTCHA engine.
func NewTesseract(logger zerolog.Logger) *Tesseract {
	return &Tesseract{
		clientFactory: gosseract.NewClient,
		logger:        logger,
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Solve runs OCR over the challenge image and returns a normalized
// candidate. Projudi challenges are short lowercase alphanumeric
// strings, so recognition is constrained to a single line over that
// alphabet.
func (t *Tesseract) Solve(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty challenge image", ErrEngine)
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("%w: set image: %v", ErrEngine, err)
	}
	if err := c.SetWhitelist("abcdefghijklmnopqrstuvwxyz0123456789"); err != nil {
		return "", fmt.Errorf("%w: set whitelist: %v", ErrEngine, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("%w: set segmentation mode: %v", ErrEngine, err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngine, err)
	}

	candidate := Normalize(text)
	if candidate == "" {
		// Nothing recognizable came out; submitting an empty answer is
		// a wasted portal round trip.
		return "", fmt.Errorf("%w: empty recognition result", ErrEngine)
	}

	t.logger.Debug().Str("candidate", candidate).Msg("CAPTCHA candidate recognized")
	return candidate, nil
}

// Normalize lowercases a raw OCR result and strips everything outside
// the challenge alphabet.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
