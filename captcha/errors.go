package captcha

import "errors"

// ErrEngine indicates the OCR backend itself failed to process the
// image. This is retryable with a fresh challenge and counts against
// the CAPTCHA attempt budget, same as a wrong guess discovered after
// submission.
var ErrEngine = errors.New("ocr engine failure")
