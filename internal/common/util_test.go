package common

import (
	"encoding/hex"
	"errors"
	"testing"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 32
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandHexString_EntropyHint(t *testing.T) {
	a, _ := MakeRandHexString(ResetTokenBytes)
	b, _ := MakeRandHexString(ResetTokenBytes)
	if a == b {
		t.Fatalf("two reset-sized random strings are identical: %q", a)
	}
}

// ---------- GeneratePIN ----------

func TestGeneratePIN_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		pin, err := GeneratePIN()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pin) != PinLength {
			t.Fatalf("expected %d digits, got %q", PinLength, pin)
		}
		for _, r := range pin {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in pin %q", pin)
			}
		}
	}
}

func TestGeneratePIN_LeadingZerosOccur(t *testing.T) {
	// P(no leading zero in 2000 draws) = 0.9^2000, effectively zero.
	for i := 0; i < 2000; i++ {
		pin, err := GeneratePIN()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pin[0] == '0' {
			return
		}
	}
	t.Fatalf("no pin with a leading zero in 2000 draws")
}

// ---------- ValidationError ----------

func TestValidationError_IsAndMessage(t *testing.T) {
	err := error(&ValidationError{Fields: []FieldError{
		{Field: "email", Message: "must be an institutional address"},
		{Field: "password", Message: "too short"},
	}})

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidationError must match ErrValidation")
	}
	want := "validation error: email: must be an institutional address; password: too short"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}

	var ve *ValidationError
	if !errors.As(NewValidationError("pin", "bad"), &ve) || ve.Fields[0].Field != "pin" {
		t.Fatalf("NewValidationError did not build a single field error: %+v", ve)
	}
}

func TestValidationError_Empty(t *testing.T) {
	if got := (&ValidationError{}).Error(); got != "validation error" {
		t.Fatalf("unexpected message %q", got)
	}
}
