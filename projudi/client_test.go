package projudi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProcessNumber = "0001234-55.2023.8.16.0001"

// fakePortal emulates the Projudi navigation flow: frameset, header
// page, form page with script tokens, CAPTCHA image, warm-up endpoints
// and the final submit/result pair. The submit outcome is scripted per
// test through the submitBody and resultBody fields.
type fakePortal struct {
	server     *httptest.Server
	submitBody string
	resultBody string

	formFetches int
	submits     int
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{}

	mux := http.NewServeMux()
	mux.HandleFunc("/projudi_consulta/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><frameset><frame id="mainFrame" src="/projudi_consulta/consulta.do;jsessionid=DEAD?pagina=1"/></frameset></html>`)
	})
	mux.HandleFunc("/projudi_consulta/cabecalho.jsp", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123"})
		fmt.Fprint(w, "<html></html>")
	})
	mux.HandleFunc("/projudi_consulta/consulta.do", func(w http.ResponseWriter, r *http.Request) {
		p.formFetches++
		fmt.Fprint(w, `<html><body>
			<img id="captchaImage" src="/projudi_consulta/captcha.jpg"/>
			<script type="text/javascript">
				AjaxJspTag.Select("/projudi_consulta/ajax/varas.do?_tj=sel123");
				AjaxJspTag.Autocomplete("/projudi_consulta/ajax/processos.do?_tj=auto456");
				document.getElementById('buscaProcessoForm').action = '/projudi_consulta/busca.do?_tj=form789';
			</script>
		</body></html>`)
	})
	mux.HandleFunc("/projudi_consulta/captcha.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-captcha-image"))
	})
	mux.HandleFunc("/projudi_consulta/ajax/varas.do", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.RawQuery, "codComarca=-1")
		fmt.Fprint(w, "<select></select>")
	})
	mux.HandleFunc("/projudi_consulta/ajax/processos.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<ul></ul>")
	})
	mux.HandleFunc("/projudi_consulta/busca.do", func(w http.ResponseWriter, r *http.Request) {
		p.submits++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		fmt.Fprint(w, p.submitBody)
	})
	mux.HandleFunc("/projudi_consulta/resultado.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, p.resultBody)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(p.server.URL, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		timeout time.Duration
		wantErr bool
	}{
		{"valid", "https://consulta.tjpr.jus.br", time.Minute, false},
		{"trailing slash trimmed", "https://consulta.tjpr.jus.br/", time.Minute, false},
		{"missing URL", "", time.Minute, true},
		{"non-positive timeout", "https://consulta.tjpr.jus.br", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL, tt.timeout, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://consulta.tjpr.jus.br", c.baseURL)
		})
	}
}

func TestFetchForm(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	form, err := client.FetchForm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []byte("fake-captcha-image"), form.Captcha)
	assert.Contains(t, form.submitURL, "_tj=form789")
	assert.Contains(t, form.autocompleteURL, "_tj=auto456")
	assert.NotContains(t, form.referer, "jsessionid", "session id must be stripped from the frame source")
	assert.Positive(t, form.BytesReceived())
}

func TestFetchFormUnreachable(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", 500*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.FetchForm(context.Background())
	var se *SiteError
	require.ErrorAs(t, err, &se)
}

func TestFetchFormMissingFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>manutenção programada</body></html>")
	}))
	defer server.Close()

	client, err := NewClient(server.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.FetchForm(context.Background())
	var se *SiteError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "locate mainFrame", se.Op)
}

func TestSubmitSuccess(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<script type="text/javascript">AjaxJspTag.HtmlContent("/projudi_consulta/resultado.do?_tj=res999");</script>`
	portal.resultBody = `<table class="resultTable"><tr><th>h</th></tr><tr><td></td><td>1</td><td>10/01/2023 11:00</td><td>DISTRIBUIÇÃO</td><td>Sistema</td></tr></table>`

	client := portal.client(t)
	ctx := context.Background()

	form, err := client.FetchForm(ctx)
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	page, err := client.Submit(ctx, form, processo, "xk4f9")
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "resultTable")
	assert.Equal(t, 1, portal.submits)
}

func TestSubmitWrongCaptcha(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<div class="erro">A resposta informada está incorreta.</div>`

	client := portal.client(t)
	ctx := context.Background()

	form, err := client.FetchForm(ctx)
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	_, err = client.Submit(ctx, form, processo, "wrong")
	require.ErrorIs(t, err, ErrWrongCaptcha)
}

func TestSubmitMissingResultTokenIsRecoverable(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<html><body><form id="buscaProcessoForm"></form></body></html>`

	client := portal.client(t)
	ctx := context.Background()

	form, err := client.FetchForm(ctx)
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	_, err = client.Submit(ctx, form, processo, "maybe")
	require.ErrorIs(t, err, ErrWrongCaptcha)
}

func TestSubmitProcessNotFound(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<div class="aviso">Nenhum registro encontrado para os dados informados.</div>`

	client := portal.client(t)
	ctx := context.Background()

	form, err := client.FetchForm(ctx)
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	_, err = client.Submit(ctx, form, processo, "xk4f9")
	require.ErrorIs(t, err, ErrProcessNotFound)
}

func TestSubmitFetchesOlderMovements(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<script>AjaxJspTag.HtmlContent("/projudi_consulta/resultado.do?_tj=res999");</script>`

	// First fragment offers the older-movements link; the handler swaps
	// the body so the follow-up call returns the older fragment.
	older := `<table class="resultTable"><tr><th>h</th></tr><tr><td></td><td>1</td><td>01/01/2020 08:00</td><td>AUTUAÇÃO</td><td>Sistema</td></tr></table>`
	recent := `<table class="resultTable"><tr><th>h</th></tr><tr><td></td><td>9</td><td>02/02/2024 10:00</td><td>SENTENÇA</td><td>Juiz</td></tr></table>
		<a>Clique para visualizar as movimentações mais antigas</a>
		<script>AjaxJspTag.HtmlContent("/projudi_consulta/resultado.do?_tj=older111");</script>`
	first := true
	portal.resultBody = recent
	portal.server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/projudi_consulta/resultado.do" && !first {
			fmt.Fprint(w, older)
			return
		}
		if r.URL.Path == "/projudi_consulta/resultado.do" {
			first = false
		}
		portalMuxFallback(portal)(w, r)
	})

	client := portal.client(t)
	ctx := context.Background()

	form, err := client.FetchForm(ctx)
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	page, err := client.Submit(ctx, form, processo, "xk4f9")
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "SENTENÇA")
	assert.Contains(t, page.HTML, "AUTUAÇÃO")
}

// portalMuxFallback rebuilds the default routing for tests that replace
// the server handler.
func portalMuxFallback(p *fakePortal) http.HandlerFunc {
	mux := http.NewServeMux()
	mux.HandleFunc("/projudi_consulta/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><frameset><frame id="mainFrame" src="/projudi_consulta/consulta.do"/></frameset></html>`)
	})
	mux.HandleFunc("/projudi_consulta/cabecalho.jsp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	})
	mux.HandleFunc("/projudi_consulta/consulta.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img id="captchaImage" src="/projudi_consulta/captcha.jpg"/>
			<script type="text/javascript">
				AjaxJspTag.Select("/projudi_consulta/ajax/varas.do?_tj=sel123&codComarca=-1");
				AjaxJspTag.Autocomplete("/projudi_consulta/ajax/processos.do?_tj=auto456");
				document.getElementById('buscaProcessoForm').action = '/projudi_consulta/busca.do?_tj=form789';
			</script>
		</body></html>`)
	})
	mux.HandleFunc("/projudi_consulta/captcha.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-captcha-image"))
	})
	mux.HandleFunc("/projudi_consulta/ajax/varas.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<select></select>")
	})
	mux.HandleFunc("/projudi_consulta/ajax/processos.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<ul></ul>")
	})
	mux.HandleFunc("/projudi_consulta/busca.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, p.submitBody)
	})
	mux.HandleFunc("/projudi_consulta/resultado.do", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, p.resultBody)
	})
	return mux.ServeHTTP
}

func TestSubmitTimeout(t *testing.T) {
	portal := newFakePortal(t)
	portal.submitBody = `<script>AjaxJspTag.HtmlContent("/projudi_consulta/resultado.do?_tj=res999");</script>`

	slow := portal.server.Config.Handler
	portal.server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/projudi_consulta/resultado.do" {
			time.Sleep(2 * time.Second)
		}
		slow.ServeHTTP(w, r)
	})

	client, err := NewClient(portal.server.URL, 300*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	form, err := client.FetchForm(context.Background())
	require.NoError(t, err)

	processo, err := ParseProcessNumber(testProcessNumber)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), form, processo, "xk4f9")
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout classification, got %v", err)
}

func TestParseProcessNumber(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"formatted CNJ number", "0001234-55.2023.8.16.0001", "00012345520238160001", false},
		{"bare digits", "00012345520238160001", "00012345520238160001", false},
		{"with spaces", "0001234 55 2023 8 16 0001", "00012345520238160001", false},
		{"too short", "123456", "", true},
		{"too long", "000123455202381600019", "", true},
		{"letters rejected", "0001234-55.2023.8.16.00AB", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProcessNumber(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProcessNumber)
				assert.True(t, p.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestSiteErrorTimeout(t *testing.T) {
	se := &SiteError{Op: "GET", URL: "http://x", Err: context.DeadlineExceeded}
	assert.True(t, se.Timeout())
	assert.True(t, IsTimeout(se))

	se = &SiteError{Op: "GET", URL: "http://x", StatusCode: 503}
	assert.False(t, se.Timeout())
}
