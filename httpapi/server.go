package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
	"github.com/MrBl4ck04/ReeUtil-sub000/metrics/export/prometheus"
	"github.com/MrBl4ck04/ReeUtil-sub000/middleware"
)

// Options tunes the HTTP surface.
type Options struct {
	// RequestTimeout bounds each engine call. Zero means 5s.
	RequestTimeout time.Duration
	// BodyLimit caps request bodies, echo syntax. Empty means "16K".
	BodyLimit string
	Logger    *slog.Logger
}

// New returns an echo instance with every route registered.
func New(engine *reeutil.Engine, opts Options) *echo.Echo {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "16K"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(opts.Logger)

	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(opts.BodyLimit))
	e.Use(clientIP)

	h := &handler{engine: engine, timeout: opts.RequestTimeout}

	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(prometheus.NewExporter(engine).Handler()))

	auth := e.Group("/api/auth")
	auth.GET("/captcha", h.captcha)
	auth.POST("/login", h.login)
	auth.POST("/login/verify", h.confirmLogin)
	auth.POST("/code/send", h.sendCode)
	auth.POST("/code/verify", h.verifyCode)

	protect := echo.WrapMiddleware(middleware.Protect(engine))
	auth.GET("/me", h.me, protect)

	admin := e.Group("/api/admin", protect, echo.WrapMiddleware(middleware.RestrictTo(engine, "admin")))
	admin.GET("/ping", h.ping)

	return e
}

// clientIP attaches the caller's address for throttling and audit.
func clientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(reeutil.WithClientIP(req.Context(), c.RealIP())))
		return next(c)
	}
}

func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			writeHTTPError(c, he)
			return
		}

		f := reeutil.Describe(err)
		if f.Status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}
		if f.Status == http.StatusUnauthorized {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
		}
		_ = c.JSON(f.Status, f)
	}
}

// writeHTTPError maps echo's own errors (unknown route, body limit) onto the
// same envelope.
func writeHTTPError(c echo.Context, he *echo.HTTPError) {
	code := reeutil.CodeInternal
	switch he.Code {
	case http.StatusNotFound:
		code = reeutil.CodeNotFound
	case http.StatusMethodNotAllowed, http.StatusRequestEntityTooLarge, http.StatusBadRequest, http.StatusUnsupportedMediaType:
		code = reeutil.CodeValidation
	}
	_ = c.JSON(he.Code, reeutil.Failure{
		Code:    code,
		Message: http.StatusText(he.Code),
	})
}

func health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
