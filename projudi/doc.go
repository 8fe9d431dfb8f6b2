// Package projudi implements the HTTP client for the TJPR Projudi
// public consultation portal.
//
// The portal is an old JSP application: the query form lives inside a
// frameset, session continuity depends on cookies handed out during
// navigation, and every AJAX endpoint is addressed through one-time
// "_tj=" tokens embedded in inline scripts. A query therefore replays
// the exact browser navigation sequence:
//
//  1. GET the frameset and resolve the mainFrame source
//  2. GET cabecalho.jsp (the portal sets session cookies here)
//  3. GET the consultation page, extract the CAPTCHA image and the
//     script tokens for the warm-up AJAX calls and the form action
//  4. POST the form with the process number and the CAPTCHA answer
//  5. Follow the HtmlContent token to the rendered result fragment,
//     appending the older-movements fragment when the portal offers one
//
// Each query owns its own Session (cookie jar plus HTTP client); the
// portal ties CAPTCHA validity to the session, so sessions are never
// shared or pooled across queries. All calls honor a single per-request
// deadline and the caller's context.
package projudi
