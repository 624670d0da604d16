package internaldefs

import (
	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   reeutil.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   reeutil.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: reeutil.MetricCaptchaIssued, Name: "reeutil_captcha_issued_total", Help: "CAPTCHA challenges issued."},
	{ID: reeutil.MetricCaptchaRejected, Name: "reeutil_captcha_rejected_total", Help: "CAPTCHA answers rejected as wrong, expired, or replayed."},
	{ID: reeutil.MetricLoginSuccess, Name: "reeutil_login_success_total", Help: "Logins that issued a token."},
	{ID: reeutil.MetricLoginFailure, Name: "reeutil_login_failure_total", Help: "Failed first-step login attempts."},
	{ID: reeutil.MetricLoginRateLimited, Name: "reeutil_login_rate_limited_total", Help: "Login attempts refused by the per-IP throttle."},
	{ID: reeutil.MetricLoginCodeSent, Name: "reeutil_login_code_sent_total", Help: "Login codes emailed."},
	{ID: reeutil.MetricLoginCodeSuccess, Name: "reeutil_login_code_success_total", Help: "Login codes accepted."},
	{ID: reeutil.MetricLoginCodeFailure, Name: "reeutil_login_code_failure_total", Help: "Login code submissions rejected."},
	{ID: reeutil.MetricAccountBlocked, Name: "reeutil_account_blocked_total", Help: "Principals blocked after repeated wrong passwords."},
	{ID: reeutil.MetricPasswordExpired, Name: "reeutil_password_expired_total", Help: "Logins refused because the password is too old."},
	{ID: reeutil.MetricCodeDeliveryFailed, Name: "reeutil_code_delivery_failed_total", Help: "Code deliveries the mailer refused."},
	{ID: reeutil.MetricVerificationCodeSent, Name: "reeutil_verification_code_sent_total", Help: "Standalone verification codes issued."},
	{ID: reeutil.MetricVerificationCodeSuccess, Name: "reeutil_verification_code_success_total", Help: "Standalone verification codes accepted."},
	{ID: reeutil.MetricVerificationCodeFailure, Name: "reeutil_verification_code_failure_total", Help: "Standalone verification codes rejected."},
	{ID: reeutil.MetricTokenIssued, Name: "reeutil_token_issued_total", Help: "Session tokens signed."},
	{ID: reeutil.MetricAuthorizeSuccess, Name: "reeutil_authorize_success_total", Help: "Bearer tokens resolved to a principal."},
	{ID: reeutil.MetricAuthorizeFailure, Name: "reeutil_authorize_failure_total", Help: "Bearer tokens rejected."},
	{ID: reeutil.MetricAuthorizeForbidden, Name: "reeutil_authorize_forbidden_total", Help: "Requests refused by a role gate."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: reeutil.MetricAuthorizeLatency, Name: "reeutil_authorize_latency_seconds", Help: "Bearer token resolution latency."},
}

// HistogramBounds are the le labels matching reeutil.HistogramBoundsMS.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into le-cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
