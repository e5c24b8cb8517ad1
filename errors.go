package companion

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CompanionErrorBadInput     = "COMPANION_BAD_INPUT"
	CompanionErrorInvalidToken = "COMPANION_INVALID_TOKEN"
	CompanionErrorVerification = "COMPANION_VERIFICATION_FAILED"
	CompanionErrorStorage      = "COMPANION_STORAGE_FAILED"
	CompanionErrorInternal     = "COMPANION_INTERNAL_ERROR"
)

func companionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCompanionErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "token format"), strings.Contains(msg, "credential"):
		return newCompanionError(err.Error(), goerrors.CategoryBadInput, CompanionErrorInvalidToken)
	case strings.Contains(msg, "verification"), strings.Contains(msg, "verifier"):
		return newCompanionError(err.Error(), goerrors.CategoryAuth, CompanionErrorVerification)
	case strings.Contains(msg, "store"), strings.Contains(msg, "storage"):
		return newCompanionError(err.Error(), goerrors.CategoryInternal, CompanionErrorStorage)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newCompanionError(err.Error(), goerrors.CategoryBadInput, CompanionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCompanionErrorEnvelope(mapped)
}

func newCompanionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCompanionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureCompanionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = companionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCompanionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCompanionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CompanionErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return CompanionErrorVerification
	default:
		return CompanionErrorInternal
	}
}

func companionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
