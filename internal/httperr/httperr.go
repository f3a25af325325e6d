// internal/httperr/httperr.go
//
// Content-negotiated error responses.
//
// Context
// -------
// Browsers get an HTML page rendered through the tenant's template chain
// (`<status>.html`, e.g. 404.html), degrading to plain text when no page
// exists.  API clients asking for JSON get
//
//	{"detail": "Not Found", "fields": {"code": "…"}}
//
// where `fields` is only present for validation errors.
//
// Workflow
// --------
//   Handle(w, r, err) → StatusOf(err) → Write(w, r, status, err)
//   Write → goautoneg picks text/html or application/json → render
//
// Notes
// -----
// • 5xx details are logged, never sent to the client.
// • Handle has the tenant.ErrorHandler signature; cmd/web passes it to
//   Resolver.Middleware.

package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/munnerz/goautoneg"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/billing"
	"github.com/yanizio/adeptbill/internal/coupon"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
)

const (
	mimeHTML = "text/html"
	mimeJSON = "application/json"
)

var offers = []string{mimeHTML, mimeJSON}

// FieldErrorer is implemented by validation errors.
type FieldErrorer interface {
	FieldErrors() map[string]string
}

// Body is the JSON error payload.
type Body struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

var engine atomic.Pointer[templates.Engine]

// SetEngine installs the template engine used for HTML error pages.
func SetEngine(e *templates.Engine) { engine.Store(e) }

// StatusOf maps an error to an HTTP status.
func StatusOf(err error) int {
	var fe FieldErrorer
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, templates.ErrTemplateNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, billing.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Handle writes the response matching err.
func Handle(w http.ResponseWriter, r *http.Request, err error) {
	Write(w, r, StatusOf(err), err)
}

// NotFound is a convenience http.HandlerFunc for routers.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusNotFound, nil)
}

// Write renders status for r.  err may be nil.
func Write(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := Body{Detail: http.StatusText(status)}
	var fe FieldErrorer
	if errors.As(err, &fe) {
		body.Fields = fe.FieldErrors()
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.Int("status", status),
			zap.String("host", r.Host),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	if negotiate(r) == mimeJSON {
		writeJSON(w, status, body)
		return
	}
	writeHTML(w, r, status, body)
}

// JSON writes v with the given status.  Handlers use it for success bodies.
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

//
// helpers
//

func negotiate(r *http.Request) string {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return mimeHTML
	}
	if ct := goautoneg.Negotiate(accept, offers); ct != "" {
		return ct
	}
	return mimeHTML
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", mimeJSON+"; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode json response", zap.Error(err))
	}
}

type page struct {
	RC     *tenant.RequestContext
	Status int
	Detail string
	Fields map[string]string
}

func writeHTML(w http.ResponseWriter, r *http.Request, status int, body Body) {
	if e := engine.Load(); e != nil {
		html, err := e.RenderString(r.Context(), fmt.Sprintf("%d.html", status), page{
			RC:     tenant.FromContext(r.Context()),
			Status: status,
			Detail: body.Detail,
			Fields: body.Fields,
		})
		if err == nil {
			w.Header().Set("Content-Type", mimeHTML+"; charset=utf-8")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(html))
			return
		}
		if !errors.Is(err, templates.ErrTemplateNotFound) {
			zap.L().Warn("error page render failed", zap.Int("status", status), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprintln(w, body.Detail)
	for k, v := range body.Fields {
		fmt.Fprintf(w, "%s: %s\n", k, v)
	}
}
