// Package query orchestrates a full Projudi consultation: fetch the
// form, solve the CAPTCHA, submit, and parse the movement list, with
// two independent bounded retry budgets and a stable outcome taxonomy.
package query

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/jusbot/tjpr-consulta/movement"
	"github.com/jusbot/tjpr-consulta/projudi"
)

// Default attempt budgets (TENTATIVAS_MAXIMAS_CAPTCHA and
// TENTATIVAS_MAXIMAS_RECURSIVAS).
const (
	DefaultMaxCaptchaAttempts = 30
	DefaultMaxQueryAttempts   = 30
)

// Fetcher is the portal capability the engine depends on. Tests
// substitute deterministic fixtures; production wires *projudi.Client.
type Fetcher interface {
	FetchForm(ctx context.Context) (*projudi.Form, error)
	Submit(ctx context.Context, form *projudi.Form, processo projudi.ProcessNumber, answer string) (*projudi.ResultPage, error)
}

// Solver is the OCR capability. Production wires *captcha.Tesseract.
type Solver interface {
	Name() string
	Solve(ctx context.Context, image []byte) (string, error)
}

// ParseFunc turns a result page into ordered movement records.
type ParseFunc func(html string) ([]movement.Movement, error)

// Options bounds the two independent retry budgets of a query.
type Options struct {
	MaxCaptchaAttempts int
	MaxQueryAttempts   int
}

// Engine executes consultation queries. Every Run owns its session and
// shares nothing with concurrent runs, so one Engine serves any number
// of simultaneous queries.
type Engine struct {
	fetcher Fetcher
	solver  Solver
	parse   ParseFunc
	opts    Options
	logger  zerolog.Logger
}

// NewEngine assembles an engine from its capabilities. Zero or negative
// budgets fall back to the defaults.
func NewEngine(fetcher Fetcher, solver Solver, logger zerolog.Logger, opts Options) *Engine {
	if opts.MaxCaptchaAttempts <= 0 {
		opts.MaxCaptchaAttempts = DefaultMaxCaptchaAttempts
	}
	if opts.MaxQueryAttempts <= 0 {
		opts.MaxQueryAttempts = DefaultMaxQueryAttempts
	}
	return &Engine{
		fetcher: fetcher,
		solver:  solver,
		parse:   movement.Parse,
		opts:    opts,
		logger:  logger,
	}
}

// Run executes one stateless query for rawNumber and always returns a
// classified Result; it never panics and never returns a partial
// answer.
//
// Retry discipline: only the wrong-CAPTCHA condition loops, always with
// a freshly fetched form (a stale challenge image is never resubmitted).
// OCR backend failures consume the CAPTCHA budget without consuming a
// query attempt. Everything else is terminal on first occurrence.
//
// The per-call timeout applies to each portal call individually, so a
// pathological query may take up to MaxQueryAttempts times the portal
// timeout before exhausting its budget. Cancel ctx to abort early; no
// portal or solver call happens after cancellation.
func (e *Engine) Run(ctx context.Context, rawNumber string) *Result {
	start := time.Now()
	tel := Telemetry{}

	processo, err := projudi.ParseProcessNumber(rawNumber)
	if err != nil {
		e.logger.Warn().Str("processo", rawNumber).Err(err).Msg("rejected malformed process number")
		return e.fail(KindInvalidInput, err, tel, start)
	}

	log := e.logger.With().Str("processo", processo.String()).Logger()

	captchaAttempts := 0
	queryAttempts := 0

	for {
		// Budgets are checked before any work so attempt max+1 can
		// never reach the solver or the portal.
		if err := ctx.Err(); err != nil {
			return e.fail(cancelKind(err), err, tel, start)
		}
		if captchaAttempts >= e.opts.MaxCaptchaAttempts {
			log.Error().Int("attempts", captchaAttempts).Msg("captcha attempt budget exhausted")
			return e.fail(KindCaptchaExhausted, errors.New("captcha attempts exhausted"), tel, start)
		}
		if queryAttempts >= e.opts.MaxQueryAttempts {
			log.Error().Int("attempts", queryAttempts).Msg("query retry budget exhausted")
			return e.fail(KindRetriesExhausted, errors.New("query retries exhausted"), tel, start)
		}

		form, err := e.fetcher.FetchForm(ctx)
		if err != nil {
			// Network failures are surfaced, not masked by retries.
			log.Error().Err(err).Msg("failed to fetch consultation form")
			return e.fail(transportKind(err), err, tel, start)
		}

		captchaAttempts++
		tel.CaptchasResolvidos = captchaAttempts

		answer, err := e.solver.Solve(ctx, form.Captcha)
		if err != nil {
			tel.Bytes += form.BytesReceived()
			if cerr := ctx.Err(); cerr != nil {
				return e.fail(cancelKind(cerr), cerr, tel, start)
			}
			// OCR backend hiccup: retry with a fresh challenge, paid
			// from the CAPTCHA budget only.
			log.Warn().Err(err).Int("captcha_attempt", captchaAttempts).Msg("ocr engine failed, refetching challenge")
			continue
		}

		page, err := e.fetcher.Submit(ctx, form, processo, answer)
		tel.Bytes += form.BytesReceived()
		if err != nil {
			switch {
			case errors.Is(err, projudi.ErrWrongCaptcha):
				queryAttempts++
				tel.Tentativas = queryAttempts
				log.Info().
					Int("query_attempt", queryAttempts).
					Int("captcha_attempt", captchaAttempts).
					Msg("captcha rejected, retrying with fresh challenge")
				continue
			case errors.Is(err, projudi.ErrProcessNotFound):
				log.Info().Msg("portal reported no such process")
				return e.fail(KindProcessNotFound, err, tel, start)
			default:
				log.Error().Err(err).Msg("query submission failed")
				return e.fail(transportKind(err), err, tel, start)
			}
		}

		movements, err := e.parse(page.HTML)
		if err != nil {
			log.Error().Err(err).Msg("result page did not match expected structure")
			return e.fail(KindParse, err, tel, start)
		}
		if movements == nil {
			movements = []movement.Movement{}
		}

		tel.TempoTotal = elapsed(start)
		log.Info().
			Int("movements", len(movements)).
			Int("captcha_attempts", captchaAttempts).
			Float64("seconds", tel.TempoTotal).
			Msg("query completed")

		return &Result{
			Code:      KindSuccess.Code(),
			Message:   KindSuccess.Message(),
			Datetime:  time.Now().Format(time.RFC3339),
			Movements: movements,
			Telemetry: tel,
			Kind:      KindSuccess,
		}
	}
}

func (e *Engine) fail(kind Kind, err error, tel Telemetry, start time.Time) *Result {
	tel.TempoTotal = elapsed(start)
	return &Result{
		Code:      kind.Code(),
		Message:   kind.Message(),
		Datetime:  time.Now().Format(time.RFC3339),
		Telemetry: tel,
		Kind:      kind,
		Err:       err,
	}
}

// transportKind separates deadline expiries from other site failures.
func transportKind(err error) Kind {
	if projudi.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindNetwork
}

func cancelKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}

func elapsed(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}
