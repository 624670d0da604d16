package reeutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestDescribeMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: email required", ErrValidation), http.StatusBadRequest, CodeValidation},
		{ErrCaptchaInvalid, http.StatusUnauthorized, CodeCaptchaInvalid},
		{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{blockedError(nil), http.StatusForbidden, CodeAccountBlocked},
		{ErrPasswordExpired, http.StatusForbidden, CodePasswordExpired},
		{ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
		{ErrCodeExpired, http.StatusNotFound, CodeCodeExpired},
		{ErrCodeMismatch, http.StatusBadRequest, CodeInvalidCode},
		{ErrPrincipalNotFound, http.StatusNotFound, CodeNotFound},
		{ErrDuplicateIdentifier, http.StatusConflict, CodeDuplicate},
		{fmt.Errorf("%w: smtp 421", ErrDeliveryFailed), http.StatusBadGateway, CodeDeliveryFailed},
		{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
		{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{ErrForbidden, http.StatusForbidden, CodeForbidden},
		{errors.New("mongo: connection refused"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := Classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: got %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestDescribeHidesWrappedDetail(t *testing.T) {
	f := Describe(fmt.Errorf("%w: smtp 421 relay.internal", ErrDeliveryFailed))
	if f.Message != ErrDeliveryFailed.Error() {
		t.Fatalf("expected sentinel message only, got %q", f.Message)
	}
}

func TestDescribeCarriesLockoutDetail(t *testing.T) {
	f := Describe(attemptsError(2))
	if f.AttemptsRemaining == nil || *f.AttemptsRemaining != 2 || f.BlockedAt != nil {
		t.Fatalf("unexpected failure %+v", f)
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f = Describe(fmt.Errorf("login: %w", blockedError(&at)))
	if f.Code != CodeAccountBlocked || f.BlockedAt == nil || !f.BlockedAt.Equal(at) || *f.AttemptsRemaining != 0 {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestDescribeNil(t *testing.T) {
	if f := Describe(nil); f.Status != 0 || f.Code != "" {
		t.Fatalf("expected zero failure, got %+v", f)
	}
}
