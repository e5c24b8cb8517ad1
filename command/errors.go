package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const ErrorCodeInternal = "COMMAND_INTERNAL"

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorCodeInternal)
}
