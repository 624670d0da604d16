package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
	"github.com/MrBl4ck04/ReeUtil-sub000/middleware"
)

type handler struct {
	engine  *reeutil.Engine
	timeout time.Duration
}

// ----- DTOs -----

type codeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailReq struct {
	Email string `json:"email"`
}

type statusResp struct {
	Message string `json:"message"`
}

func (h *handler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.timeout)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: invalid body", reeutil.ErrValidation)
	}
	return nil
}

func (h *handler) captcha(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	ch, err := h.engine.IssueCaptcha(ctx)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, ch)
}

func (h *handler) login(c echo.Context) error {
	var req reeutil.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.engine.Login(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *handler) confirmLogin(c echo.Context) error {
	var req codeReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.engine.ConfirmLoginCode(ctx, req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *handler) sendCode(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.engine.SendVerificationCode(ctx, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResp{Message: "verification code sent"})
}

func (h *handler) verifyCode(c echo.Context) error {
	var req codeReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.engine.VerifyCode(ctx, req.Email, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResp{Message: "code verified"})
}

func (h *handler) me(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c.Request().Context())
	if !ok {
		return reeutil.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *handler) ping(c echo.Context) error {
	p, _ := middleware.PrincipalFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"message": "pong", "id": p.ID(), "role": p.Role()})
}
