package goAuthClient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/refresh"
	"go.uber.org/zap"
)

type otpRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// RequestOTP asks the identity service to deliver a one-time passcode to email.
func (e *Engine) RequestOTP(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	resp, err := transport.Do(ctx, e.http, transport.Request{
		Method: http.MethodPost,
		URL:    e.endpoint(e.config.Endpoints.RequestOTP),
		Body:   otpRequest{Email: email},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !resp.OK() {
		e.logger.Info("otp request rejected",
			zap.Int("status", resp.Status),
			zap.String("request_id", resp.RequestID),
		)
		return newAPIError(resp.Status, transport.ErrorMessage(resp.Body), ErrRequestFailed)
	}

	e.metricInc(MetricOTPRequested)
	return nil
}

// VerifyOTP exchanges a passcode for a session. The token and identity are
// committed together; a response missing either leaves the session untouched
// and returns [ErrValidation]. The refresh cookie set by the response lands in
// the Engine's cookie jar.
func (e *Engine) VerifyOTP(ctx context.Context, email, otp string) (User, error) {
	if err := e.ready(); err != nil {
		return User{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return User{}, fmt.Errorf("%w: otp is required", ErrValidation)
	}

	resp, err := transport.Do(ctx, e.http, transport.Request{
		Method: http.MethodPost,
		URL:    e.endpoint(e.config.Endpoints.VerifyOTP),
		Body:   otpVerifyRequest{Email: email, OTP: otp},
	})
	if err != nil {
		return User{}, e.otpFailure(ctx, fmt.Errorf("%w: %v", ErrTransient, err))
	}
	if !resp.OK() {
		apiErr := newAPIError(resp.Status, transport.ErrorMessage(resp.Body), ErrRequestFailed)
		return User{}, e.otpFailure(ctx, apiErr)
	}

	env, err := refresh.ParseEnvelope(resp.Body)
	if err != nil {
		return User{}, e.otpFailure(ctx, fmt.Errorf("%w: malformed verification response: %v", ErrValidation, err))
	}
	token := env.AccessToken()
	payload, ok := env.CompleteUser()
	if token == "" || !ok {
		return User{}, e.otpFailure(ctx, fmt.Errorf("%w: verification response missing token or user", ErrValidation))
	}

	user := User{ID: payload.ID, Email: payload.Email, SessionID: payload.SessionID}
	expiresIn := env.ExpiresIn(e.config.Session.DefaultExpiresIn)
	e.commit(ctx, user, token, expiresIn)

	e.metricInc(MetricOTPVerifySuccess)
	e.logger.Info("otp verified",
		zap.String("user_id", user.ID),
		zap.String("request_id", resp.RequestID),
	)
	e.emitAudit(ctx, auditEventOTPVerified, true, user, nil, nil)
	return user, nil
}

func (e *Engine) otpFailure(ctx context.Context, err error) error {
	e.metricInc(MetricOTPVerifyFailure)
	e.emitAudit(ctx, auditEventOTPFailure, false, User{}, err, nil)
	return err
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	return email, nil
}
