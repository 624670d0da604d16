// Package httpapi exposes the engine over HTTP with echo.
//
// Routes:
//
//	GET  /api/auth/captcha
//	POST /api/auth/login
//	POST /api/auth/login/verify
//	POST /api/auth/code/send
//	POST /api/auth/code/verify
//	GET  /api/auth/me          (bearer token)
//	GET  /api/admin/ping       (bearer token, admin)
//	GET  /healthz
//	GET  /metrics
//
// Failures use the envelope produced by [reeutil.Describe].
package httpapi
