package query

import (
	"net/http"

	"github.com/jusbot/tjpr-consulta/movement"
)

// Kind classifies every possible query outcome. The mapping to numeric
// codes and HTTP statuses is a fixed contract with API consumers.
type Kind int

const (
	// KindSuccess is a completed query with an ordered movement list.
	KindSuccess Kind = iota
	// KindNetwork covers transport failures and non-success responses
	// from the portal. Surfaced immediately, never retried.
	KindNetwork
	// KindTimeout is a single portal call exceeding TEMPO_LIMITE. A
	// NetworkError variant for the external contract.
	KindTimeout
	// KindCanceled means the caller aborted the query.
	KindCanceled
	// KindCaptchaExhausted means the OCR attempt budget ran out.
	KindCaptchaExhausted
	// KindRetriesExhausted means the wrong-CAPTCHA retry budget ran out.
	KindRetriesExhausted
	// KindParse means the result page lacked the expected structure.
	KindParse
	// KindInvalidInput is a malformed process number, rejected before
	// any network call.
	KindInvalidInput
	// KindProcessNotFound means the portal knows no such process.
	KindProcessNotFound
)

// String returns the taxonomy name of the outcome kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "Timeout"
	case KindCanceled:
		return "Canceled"
	case KindCaptchaExhausted:
		return "CaptchaExhausted"
	case KindRetriesExhausted:
		return "RetriesExhausted"
	case KindParse:
		return "ParseError"
	case KindInvalidInput:
		return "InvalidInput"
	case KindProcessNotFound:
		return "ProcessNotFound"
	default:
		return "Unknown"
	}
}

// Stable result codes of the consulta contract.
const (
	CodeSuccess       = 0
	CodeParse         = 4
	CodeNetwork       = 5
	CodeCannotProcess = 7
)

// Code returns the stable numeric code for the kind.
func (k Kind) Code() int {
	switch k {
	case KindSuccess:
		return CodeSuccess
	case KindParse:
		return CodeParse
	case KindNetwork, KindTimeout, KindCanceled:
		return CodeNetwork
	default:
		return CodeCannotProcess
	}
}

// Message returns the wire message for the kind.
func (k Kind) Message() string {
	switch k.Code() {
	case CodeSuccess:
		return "SUCESSO"
	case CodeParse:
		return "ERRO_PARSE_PAGINA"
	case CodeNetwork:
		return "ERRO_SITE_INDISPONIVEL"
	default:
		return "ERRO_ENTIDADE_NAO_PROCESSAVEL"
	}
}

// HTTPStatus maps a result code to the HTTP status the REST boundary
// must answer with.
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeParse:
		return 512
	case CodeNetwork:
		return http.StatusBadGateway
	case CodeCannotProcess:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Telemetry describes the work one query performed. Wire names follow
// the original consulta contract.
type Telemetry struct {
	// Tentativas counts wrong-CAPTCHA retry rounds consumed.
	Tentativas int `json:"tentativas"`
	// CaptchasResolvidos counts OCR solver invocations.
	CaptchasResolvidos int `json:"captchas_resolvidos"`
	// Bytes counts response payload bytes transferred from the portal.
	Bytes int64 `json:"bytes_enviados"`
	// TempoTotal is the wall-clock query duration in seconds.
	TempoTotal float64 `json:"tempo_total"`
}

// Result is the single value every query produces: either an ordered
// movement list (code 0) or exactly one classified failure. It is
// constructed once per invocation and not retained by the engine.
type Result struct {
	Code      int                 `json:"code"`
	Message   string              `json:"message"`
	Datetime  string              `json:"datetime"`
	Movements []movement.Movement `json:"results"`
	Telemetry Telemetry           `json:"telemetria"`

	// Kind and Err carry the classification for programmatic callers;
	// they are not part of the wire contract.
	Kind Kind  `json:"-"`
	Err  error `json:"-"`
}

// OK reports whether the query succeeded.
func (r *Result) OK() bool { return r.Code == CodeSuccess }

// HTTPStatus returns the HTTP status for this result.
func (r *Result) HTTPStatus() int { return HTTPStatus(r.Code) }
