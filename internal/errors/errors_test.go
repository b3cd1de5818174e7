package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "resource not found",
			},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"not found", NotFound("x"), ErrCodeNotFound},
		{"not foundf", NotFoundf("user %s", "1"), ErrCodeNotFound},
		{"conflict", Conflict("x"), ErrCodeConflict},
		{"validation", Validation("x"), ErrCodeValidation},
		{"unauthorized", Unauthorized("x"), ErrCodeUnauthorized},
		{"internal", Internal("x"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
		})
	}

	if got := NotFoundf("user %s", "1").Message; got != "user 1" {
		t.Errorf("NotFoundf().Message = %q", got)
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "invalid email")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "email" {
		t.Errorf("ValidationField().Field = %v, want %v", err.Field, "email")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeInternal, "load user %s", "1")
	if err.Message != "load user 1" {
		t.Errorf("Wrapf().Message = %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrapf() should preserve cause")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Unauthorized("bad token"))
	if !IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should see through fmt wrapping")
	}
	if IsNotFound(wrapped) || IsConflict(wrapped) || IsValidation(wrapped) || IsInternal(wrapped) {
		t.Error("only the unauthorized helper should match")
	}
	if IsTimeout(errors.New("plain")) || IsCanceled(errors.New("plain")) {
		t.Error("plain errors carry no code")
	}
}

func TestGetCodeAndField(t *testing.T) {
	err := fmt.Errorf("wrap: %w", ValidationField("password", "too short"))
	if GetCode(err) != ErrCodeValidation {
		t.Errorf("GetCode() = %v", GetCode(err))
	}
	if GetField(err) != "password" {
		t.Errorf("GetField() = %v", GetField(err))
	}
	if GetCode(errors.New("plain")) != "" || GetField(errors.New("plain")) != "" {
		t.Error("plain errors should return empty code and field")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{Validation("x"), http.StatusUnprocessableEntity},
		{Unauthorized("x"), http.StatusUnauthorized},
		{&AppError{Code: ErrCodeTimeout}, http.StatusGatewayTimeout},
		{&AppError{Code: ErrCodeCanceled}, http.StatusRequestTimeout},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
