package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tripthread/companion/protocol"
)

const (
	defaultVerifyRequestTimeout = 10 * time.Second
	maxVerifyResponseBodyBytes  = 1 << 20

	verifyPath = "/api/extension/verify"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// VerifiedIdentity is what the token service resolves a valid
// credential to.
type VerifiedIdentity struct {
	AccountID string
}

// Verifier checks a delivered credential against the external token
// service and resolves the account it is bound to. The service itself
// is an opaque collaborator; only its HTTP surface is modeled here.
type Verifier interface {
	Verify(ctx context.Context, credential string) (VerifiedIdentity, error)
}

type HTTPVerifierConfig struct {
	ServerOrigin   string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	BuildVerifyURL func(serverOrigin string) (string, error)
}

type HTTPVerifier struct {
	config     HTTPVerifierConfig
	httpClient HTTPDoer
}

func NewHTTPVerifier(cfg HTTPVerifierConfig) (*HTTPVerifier, error) {
	origin, err := protocol.NormalizeOrigin(cfg.ServerOrigin)
	if err != nil {
		return nil, fmt.Errorf("arbiter: verifier server origin: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultVerifyRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	builder := cfg.BuildVerifyURL
	if builder == nil {
		builder = defaultVerifyURLBuilder
	}
	return &HTTPVerifier{
		config: HTTPVerifierConfig{
			ServerOrigin:   origin,
			RequestTimeout: timeout,
			BuildVerifyURL: builder,
		},
		httpClient: httpClient,
	}, nil
}

func (v *HTTPVerifier) Verify(ctx context.Context, credential string) (VerifiedIdentity, error) {
	if v == nil || v.httpClient == nil {
		return VerifiedIdentity{}, &VerificationError{Message: "verifier is not configured"}
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return VerifiedIdentity{}, &VerificationError{
			Message: "credential is required",
			Cause:   ErrVerificationRejected,
		}
	}

	endpoint, err := v.config.BuildVerifyURL(v.config.ServerOrigin)
	if err != nil {
		return VerifiedIdentity{}, &VerificationError{Message: "build verify url", Cause: err}
	}

	requestCtx, cancel := context.WithTimeout(ctx, v.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, nil)
	if err != nil {
		return VerifiedIdentity{}, &VerificationError{Message: "build verify request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return VerifiedIdentity{}, &VerificationError{Message: "verify request failed", Cause: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxVerifyResponseBodyBytes))
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifyResponseBodyBytes))
	if err != nil {
		return VerifiedIdentity{}, &VerificationError{
			StatusCode: resp.StatusCode,
			Message:    "read verify response",
			Cause:      err,
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return VerifiedIdentity{}, &VerificationError{
			StatusCode: resp.StatusCode,
			Cause:      ErrVerificationRejected,
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return VerifiedIdentity{}, &VerificationError{
			StatusCode: resp.StatusCode,
			Message:    "unexpected status",
		}
	}

	var payload struct {
		AccountID string `json:"account_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return VerifiedIdentity{}, &VerificationError{
			StatusCode: resp.StatusCode,
			Message:    "decode verify response",
			Cause:      err,
		}
	}
	accountID := strings.TrimSpace(payload.AccountID)
	if accountID == "" {
		return VerifiedIdentity{}, &VerificationError{
			StatusCode: resp.StatusCode,
			Message:    "verify response missing account_id",
		}
	}
	return VerifiedIdentity{AccountID: accountID}, nil
}

func defaultVerifyURLBuilder(serverOrigin string) (string, error) {
	origin, err := protocol.NormalizeOrigin(serverOrigin)
	if err != nil {
		return "", err
	}
	return origin + verifyPath, nil
}
