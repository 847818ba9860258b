package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard protects server-rendered routes by reading the session
// cookie, validating its token, and exposing the resulting claims to
// handlers. Requests without a valid session are sent to the login
// surface after their intended destination is captured for the
// redirect-after-login flow.
type RouteGuard struct {
	validator        TokenValidator
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// NewRouteGuard returns a guard validating cookies with the given
// validator.
func NewRouteGuard(validator TokenValidator, cfg Config) (*RouteGuard, error) {
	if validator == nil {
		return nil, errors.New("route guard requires a token validator", errors.CategoryInternal)
	}

	g := &RouteGuard{
		validator: validator,
		cfg:       cfg,
		Logger:    defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler
	g.AuthErrorHandler = g.defaultAuthErrHandler

	return g, nil
}

// Protected wraps a handler so it only runs with a valid session
// cookie. Validated claims are stored under the configured context key
// and on the request context for downstream guards.
func (g *RouteGuard) Protected(optional bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(cookieName(g.cfg))
			if raw == "" {
				if optional {
					return hf(ctx)
				}
				return g.AuthErrorHandler(ctx, ErrUnableToFindSession)
			}

			claims, err := g.validator.Validate(raw)
			if err != nil {
				if optional {
					g.Logger.Info("optional auth failed, proceeding", "error", err)
					return hf(ctx)
				}
				return g.AuthErrorHandler(ctx, g.normalizeTokenError(err))
			}

			ctx.Locals(g.contextKey(), claims)
			ctx.SetContext(WithSessionIdentity(ctx.Context(), NewIdentityFromClaims(claims)))

			return hf(ctx)
		}
	}
}

// SetRedirect captures the rejected route so the user can be sent back
// there after authenticating.
func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.rejectedRouteKey()

	g.Logger.Info("setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    SanitizeDestination(ctx.OriginalURL(), g.defaultDestination()),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect consumes the captured destination, falling back to the
// provided default. The cookie is cleared so the destination is used
// at most once.
func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.rejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return g.defaultDestination()
	}
	g.cookieDel(ctx, rejectedRoute)
	return SanitizeDestination(r, g.defaultDestination())
}

// GetRedirectOrDefault consumes the captured destination, trying the
// referer before the configured default.
func (g *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.rejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.defaultDestination()
	}
	g.cookieDel(ctx, rejectedRoute)
	return SanitizeDestination(r, g.defaultDestination())
}

// CaptureReturnTo reads the return-to query parameter presented with
// the login surface into the coordinator.
func (g *RouteGuard) CaptureReturnTo(ctx router.Context, rc *RedirectCoordinator) string {
	param := g.cfg.GetReturnToParam()
	if param == "" {
		param = "from"
	}
	return rc.Capture(ctx.Query(param, ""))
}

func (g *RouteGuard) normalizeTokenError(err error) error {
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}
	if IsMalformedError(err) {
		return ErrTokenMalformed
	}
	return errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
		WithCode(errors.CodeUnauthorized)
}

func (g *RouteGuard) contextKey() string {
	if g.cfg != nil && g.cfg.GetContextKey() != "" {
		return g.cfg.GetContextKey()
	}
	return "session"
}

func (g *RouteGuard) rejectedRouteKey() string {
	if g.cfg != nil && g.cfg.GetRejectedRouteKey() != "" {
		return g.cfg.GetRejectedRouteKey()
	}
	return "rejected_route"
}

func (g *RouteGuard) defaultDestination() string {
	if g.cfg != nil && g.cfg.GetDefaultDestination() != "" {
		return g.cfg.GetDefaultDestination()
	}
	return DefaultDestination
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "an unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	g.Logger.Info(
		"authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	g.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"route guard error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return g.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

// RouterCookieJar adapts a router context into the CookieJar the
// Controller writes the token cookie through during a request.
type RouterCookieJar struct {
	ctx router.Context
}

// NewRouterCookieJar wraps the given request context.
func NewRouterCookieJar(ctx router.Context) *RouterCookieJar {
	return &RouterCookieJar{ctx: ctx}
}

// Set implements CookieJar.
func (j *RouterCookieJar) Set(cookie *router.Cookie) {
	if j.ctx != nil {
		j.ctx.Cookie(cookie)
	}
}

var _ CookieJar = (*RouterCookieJar)(nil)
