package http

import (
	"errors"
	"strings"
	"testing"
)

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestHex32Validation(t *testing.T) {
	type P struct {
		UserID string `json:"user_id" validate:"hex32"`
	}
	cv := NewValidator()

	if err := cv.Validate(P{UserID: strings.Repeat("a", 32)}); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}
	for _, s := range []string{
		"",
		strings.Repeat("A", 32),
		"deadbeef",
		strings.Repeat("g", 32),
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x",
	} {
		err := cv.Validate(P{UserID: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "user_id", "32-char lowercase hex") {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, fe)
		}
	}
}

func TestPhone10Validation(t *testing.T) {
	type P struct {
		Phone string `json:"phone" validate:"omitempty,phone10"`
	}
	cv := NewValidator()
	for _, ok := range []string{"", "9876543210", "0000000000"} {
		if err := cv.Validate(P{Phone: ok}); err != nil {
			t.Fatalf("expected %q valid, got %v", ok, err)
		}
	}
	for _, bad := range []string{"987654321", "98765432100", "+919876543", "98765-4321"} {
		err := cv.Validate(P{Phone: bad})
		if err == nil {
			t.Fatalf("expected error for %q", bad)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "phone", "10-digit") {
			t.Fatalf("expected phone message for %q, got %+v", bad, fe)
		}
	}
}

func TestNestedFieldNames(t *testing.T) {
	type inner struct {
		Email string `json:"email" validate:"omitempty,email"`
	}
	type outer struct {
		Info inner `json:"personal_info"`
	}
	err := NewValidator().Validate(outer{Info: inner{Email: "nope"}})
	if fe := ToFieldErrors(err); !containsFieldMsg(fe, "personal_info.email", "valid email") {
		t.Fatalf("got %+v", fe)
	}
}

func TestToFieldErrors_NonValidationError(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 || fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected: %+v", fe)
	}
}
