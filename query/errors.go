package query

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const ErrorCodeInternal = "QUERY_INTERNAL"

func queryDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorCodeInternal)
}
