package projudi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production address of the TJPR consultation
// portal.
const DefaultBaseURL = "https://consulta.tjpr.jus.br"

const consultaPath = "/projudi_consulta/"

// The portal serves a reduced page to clients it does not recognize as
// a browser, so requests present a desktop Chrome identity.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.83 Safari/537.36"

// Script token extraction. Every dynamic endpoint on the portal is
// published through inline AjaxJspTag calls carrying "_tj=" tokens.
var (
	reJSessionID  = regexp.MustCompile(`;jsessionid=[^?]*`)
	reSelect      = regexp.MustCompile(`AjaxJspTag\.Select\(\s*"([^"]+)"`)
	reAutocomp    = regexp.MustCompile(`AjaxJspTag\.Autocomplete\(\s*"([^"]+)"`)
	reHTMLContent = regexp.MustCompile(`AjaxJspTag\.HtmlContent\(\s*"([^"]+)"`)
	reFormAction  = regexp.MustCompile(`document\.getElementById\(["']buscaProcessoForm["']\)\.action\s*=\s*["']([^"']+)["']`)
)

// Response page markers used to discriminate submit outcomes. The
// wrong-CAPTCHA markers are checked first: when the CAPTCHA is rejected
// the portal never evaluates the process number, so a not-found message
// on the same page means nothing.
var (
	wrongCaptchaMarkers = []string{
		"resposta informada está incorreta",
		"código de verificação inválido",
		"resposta incorreta",
	}
	notFoundMarkers = []string{
		"nenhum registro encontrado",
		"nenhum processo encontrado",
		"não foi encontrado",
	}
)

const olderMovementsMarker = "clique para visualizar as movimentações mais antigas"

// Client issues queries against a Projudi portal. The client itself is
// stateless and safe for concurrent use; per-query state lives in the
// Form returned by FetchForm.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a portal client. timeout bounds every individual
// HTTP call (TEMPO_LIMITE), not the whole query.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("portal base URL is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("portal timeout must be positive, got %s", timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// FetchForm navigates to the consultation form and returns it together
// with a fresh session and the downloaded CAPTCHA challenge. Every call
// starts a new session; the portal binds CAPTCHA validity to session
// cookies, so a form is never reused across attempts.
func (c *Client) FetchForm(ctx context.Context) (*Form, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	form := &Form{
		session: &http.Client{Jar: jar, Timeout: c.timeout},
	}

	entryURL := c.baseURL + consultaPath
	body, err := c.get(ctx, form, entryURL, entryURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &SiteError{Op: "parse frameset", URL: entryURL, Err: err}
	}
	frameSrc, ok := doc.Find("frame#mainFrame").Attr("src")
	if !ok || frameSrc == "" {
		return nil, &SiteError{Op: "locate mainFrame", URL: entryURL, Err: fmt.Errorf("frame#mainFrame missing")}
	}
	mainURL := c.abs(reJSessionID.ReplaceAllString(frameSrc, ""))
	c.logger.Debug().Str("url", mainURL).Msg("resolved consultation frame")

	// The portal hands out session cookies on the header page; skipping
	// it yields a form whose CAPTCHA is never accepted.
	if _, err := c.get(ctx, form, c.baseURL+consultaPath+"cabecalho.jsp", entryURL); err != nil {
		return nil, err
	}

	body, err = c.get(ctx, form, mainURL, entryURL)
	if err != nil {
		return nil, err
	}
	form.referer = mainURL

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &SiteError{Op: "parse form page", URL: mainURL, Err: err}
	}

	captchaSrc, ok := page.Find("img#captchaImage").Attr("src")
	if !ok || captchaSrc == "" {
		return nil, &SiteError{Op: "locate captcha", URL: mainURL, Err: fmt.Errorf("img#captchaImage missing")}
	}
	form.Captcha, err = c.get(ctx, form, c.abs(captchaSrc), mainURL)
	if err != nil {
		return nil, err
	}

	scripts := string(body)

	selectURL, err := findToken(scripts, reSelect)
	if err != nil {
		return nil, &SiteError{Op: "locate select token", URL: mainURL, Err: err}
	}
	if !strings.Contains(selectURL, "codComarca") {
		sep := "?"
		if strings.Contains(selectURL, "?") {
			sep = "&"
		}
		selectURL += sep + "codComarca=-1"
	}
	// Warm-up call the form page issues on load; the portal invalidates
	// the session when it is skipped.
	if _, err := c.get(ctx, form, c.abs(selectURL), mainURL); err != nil {
		return nil, err
	}

	form.autocompleteURL, err = findToken(scripts, reAutocomp)
	if err != nil {
		return nil, &SiteError{Op: "locate autocomplete token", URL: mainURL, Err: err}
	}
	form.autocompleteURL = c.abs(form.autocompleteURL)

	m := reFormAction.FindStringSubmatch(scripts)
	if m == nil {
		return nil, &SiteError{Op: "locate form action", URL: mainURL, Err: fmt.Errorf("buscaProcessoForm action missing")}
	}
	form.submitURL = c.abs(m[1])

	c.logger.Debug().
		Int("captcha_bytes", len(form.Captcha)).
		Str("submit_url", form.submitURL).
		Msg("consultation form fetched")

	return form, nil
}

// Submit posts the query for processo with the given CAPTCHA answer and
// returns the rendered result fragment. A rejected CAPTCHA surfaces as
// ErrWrongCaptcha (recoverable); an unknown process number as
// ErrProcessNotFound (terminal).
func (c *Client) Submit(ctx context.Context, form *Form, processo ProcessNumber, answer string) (*ResultPage, error) {
	if form == nil || form.session == nil {
		return nil, fmt.Errorf("submit requires a fetched form")
	}

	// Autocomplete warm-up the browser performs while typing the number.
	warmup := url.Values{
		"numeroProcesso":  {processo.String()},
		"flagNumeroUnico": {"true"},
		"opcaoConsulta":   {"1"},
		"_":               {""},
	}
	if _, err := c.postForm(ctx, form, form.autocompleteURL, warmup); err != nil {
		return nil, err
	}

	payload := url.Values{
		"processoPageSize":     {"20"},
		"processoPageNumber":   {"1"},
		"processoSortColumn":   {"p.numeroUnico"},
		"processoSortOrder":    {"asc"},
		"codVaraEscolhida":     {""},
		"opcaoConsultaPublica": {"1"},
		"flagNumeroUnico":      {"true"},
		"numeroProcesso":       {processo.String()},
		"codComarca":           {"-1"},
		"tipoCompetencia":      {""},
		"turma":                {""},
		"nomeParte":            {""},
		"cpfCnpj":              {""},
		"loginAdvogado":        {""},
		"nomeAdvogado":         {""},
		"oab":                  {""},
		"oabComplemento":       {"N"},
		"oabUF":                {"PR"},
		"answer":               {answer},
	}
	body, err := c.postForm(ctx, form, form.submitURL, payload)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(string(body))
	if containsAny(lower, wrongCaptchaMarkers) {
		return nil, ErrWrongCaptcha
	}
	if containsAny(lower, notFoundMarkers) {
		return nil, ErrProcessNotFound
	}

	resultToken, err := findToken(string(body), reHTMLContent)
	if err != nil {
		// No error message and no result token: the portal re-rendered
		// the form, which is how older portal versions reject a CAPTCHA.
		return nil, fmt.Errorf("%w: no result token in response", ErrWrongCaptcha)
	}

	fragment, err := c.postForm(ctx, form, c.abs(resultToken), url.Values{"dummy": {"true"}, "_": {""}})
	if err != nil {
		return nil, err
	}

	fragLower := strings.ToLower(string(fragment))
	if containsAny(fragLower, notFoundMarkers) {
		return nil, ErrProcessNotFound
	}

	html := string(fragment)
	if strings.Contains(fragLower, olderMovementsMarker) {
		if olderToken, err := findToken(html, reHTMLContent); err == nil {
			older, err := c.postForm(ctx, form, c.abs(olderToken), url.Values{"dummy": {"true"}, "_": {""}})
			if err != nil {
				return nil, err
			}
			html += string(older)
		}
	}

	return &ResultPage{HTML: html}, nil
}

func (c *Client) get(ctx context.Context, form *Form, rawURL, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &SiteError{Op: "GET", URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", referer)
	return c.do(form, req)
}

func (c *Client) postForm(ctx context.Context, form *Form, rawURL string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &SiteError{Op: "POST", URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", form.referer)
	req.Header.Set("X-Prototype-Version", "1.5.1.1")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return c.do(form, req)
}

func (c *Client) do(form *Form, req *http.Request) ([]byte, error) {
	resp, err := form.session.Do(req)
	if err != nil {
		return nil, &SiteError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SiteError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	form.bytesReceived += int64(len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, &SiteError{Op: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	return body, nil
}

// abs resolves a portal-relative reference against the base URL.
func (c *Client) abs(ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

// findToken extracts the first "_tj=" token URL matched by re in the
// page's inline scripts.
func findToken(html string, re *regexp.Regexp) (string, error) {
	for _, m := range re.FindAllStringSubmatch(html, -1) {
		if strings.Contains(m[1], "_tj=") {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no token matching %s", re.String())
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
