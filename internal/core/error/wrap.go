package errx

import (
	"context"
	"errors"
	"net/http"
)

// WrapQdrant maps vector store failures to a 502.
func WrapQdrant(err error) error {
	return wrapUpstream(err, VectorStoreErrorMessage)
}

// WrapPostgres maps record manager failures to a 502.
func WrapPostgres(err error) error {
	return wrapUpstream(err, RecordStoreErrorMessage)
}

// WrapLLM maps chat model and embedding failures to a 502, or 504 on deadline.
func WrapLLM(err error) error {
	return wrapUpstream(err, LLMErrorMessage)
}

// WrapStorage maps appointment file failures to a 500.
func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}

func wrapUpstream(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(err, http.StatusGatewayTimeout, message)
	}
	if errors.Is(err, context.Canceled) {
		return New(err, 499, message)
	}
	return New(err, http.StatusBadGateway, message)
}
