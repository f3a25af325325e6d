// components/auth/auth.go
//
// Authentication component: login and logout for site users.
//
// Context
// -------
// Users, sessions, and the role tables live in each tenant database, so a
// login on one site never authenticates a visitor on another.  A successful
// POST /login stores a signed session row and sets the session cookie; the
// session middleware then attaches the user id to every request, which is
// what the rules middleware checks for billing permissions.
//
// Routes
// ------
//   GET  /login    form (honours ?next=)
//   POST /login    verify CSRF, validate, check bcrypt hash, start session
//   POST /logout   verify CSRF, delete session, clear cookie
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/component"
	"github.com/yanizio/adeptbill/internal/form"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/session"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

var errBadCSRF = errors.New("auth: invalid or expired form token")

// Component encapsulates the login flow.
type Component struct {
	engine   *templates.Engine
	sessions *session.Manager
	csrf     *form.CSRF
}

// New wires the component to the shared engine, session manager, and CSRF
// issuer.
func New(engine *templates.Engine, sessions *session.Manager, csrf *form.CSRF) *Component {
	return &Component{engine: engine, sessions: sessions, csrf: csrf}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Migrations creates the user, session, and access-control tables shared
// by session and rules.
func (c *Component) Migrations() []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS `user` (" + `
    id          INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    email       VARCHAR(254) NOT NULL UNIQUE,
    password    VARCHAR(128) NOT NULL,
    is_active   BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS session (
    session_key   CHAR(32)  PRIMARY KEY,
    session_data  TEXT      NOT NULL,
    expire_date   DATETIME  NOT NULL,
    KEY (expire_date)
)`,
		`CREATE TABLE IF NOT EXISTS role (
    id       INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    name     VARCHAR(64) NOT NULL UNIQUE,
    enabled  BOOLEAN     NOT NULL DEFAULT TRUE
)`,
		`CREATE TABLE IF NOT EXISTS role_acl (
    role_id    INT UNSIGNED NOT NULL,
    component  VARCHAR(64)  NOT NULL,
    action     VARCHAR(64)  NOT NULL,
    permitted  BOOLEAN      NOT NULL DEFAULT TRUE,
    PRIMARY KEY (role_id, component, action),
    FOREIGN KEY (role_id) REFERENCES role(id)
)`,
		"CREATE TABLE IF NOT EXISTS user_role (" + `
    user_id  INT UNSIGNED NOT NULL,
    role_id  INT UNSIGNED NOT NULL,
    PRIMARY KEY (user_id, role_id),
    FOREIGN KEY (user_id) REFERENCES ` + "`user`" + `(id),
    FOREIGN KEY (role_id) REFERENCES role(id)
)`,
		`CREATE TABLE IF NOT EXISTS app_acl (
    app      VARCHAR(64) PRIMARY KEY,
    enabled  BOOLEAN     NOT NULL DEFAULT TRUE
)`,
	}
}

// Routes registers the login endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Get("/login", c.handleLoginGET)
	r.Post("/login", c.handleLoginPOST)
	r.Post("/logout", c.handleLogoutPOST)
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type loginPage struct {
	RC     *tenant.RequestContext
	CSRF   string
	Email  string
	Next   string
	Errors map[string]string
}

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, loginPage{Next: r.URL.Query().Get("next")})
}

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperr.Write(w, r, http.StatusBadRequest, err)
		return
	}
	if !c.csrf.VerifyRequest(r) {
		httperr.Write(w, r, http.StatusForbidden, errBadCSRF)
		return
	}

	in := loginInput{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	page := loginPage{Email: in.Email, Next: r.PostFormValue("next")}
	if errs := in.validate(); errs != nil {
		page.Errors = errs
		c.render(w, r, http.StatusBadRequest, page)
		return
	}

	t := tenant.Current(r.Context())
	uid, err := checkCredentials(r.Context(), t.GetDB(), in.Email, in.Password)
	switch {
	case errors.Is(err, errBadCredentials):
		zap.L().Info("login rejected", zap.String("site", t.Slug()), zap.String("email", in.Email))
		page.Errors = map[string]string{"password": "Incorrect email or password."}
		c.render(w, r, http.StatusBadRequest, page)
		return
	case err != nil:
		httperr.Handle(w, r, err)
		return
	}

	if err := c.sessions.Login(w, r, uid); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	zap.L().Info("login", zap.String("site", t.Slug()), zap.Int64("user", uid))
	http.Redirect(w, r, prefixed(r, safeNext(page.Next)), http.StatusSeeOther)
}

func (c *Component) handleLogoutPOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperr.Write(w, r, http.StatusBadRequest, err)
		return
	}
	if !c.csrf.VerifyRequest(r) {
		httperr.Write(w, r, http.StatusForbidden, errBadCSRF)
		return
	}
	if err := c.sessions.Logout(w, r); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	http.Redirect(w, r, prefixed(r, "/"), http.StatusSeeOther)
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, page loginPage) {
	tok, err := c.csrf.Token()
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	page.RC = tenant.FromContext(r.Context())
	page.CSRF = tok

	html, err := c.engine.RenderString(r.Context(), "login", page)
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

// safeNext only allows local absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// prefixed re-adds the tenant path prefix stripped before dispatch.
func prefixed(r *http.Request, path string) string {
	if rc := tenant.FromContext(r.Context()); rc != nil {
		return rc.PathPrefix + path
	}
	return path
}
