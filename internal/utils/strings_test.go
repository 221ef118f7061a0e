package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+20 100-000 0000": "+201000000000",
		" 0100 000 0000 ":  "01000000000",
		"(010) 12+34":      "0101234",
		"":                 "",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	if !IsValidPhone("+20 100 000 0000") {
		t.Fatal("expected international number to be valid")
	}
	if IsValidPhone("12345") || IsValidPhone("abc") {
		t.Fatal("expected short or non-numeric input to be invalid")
	}
}

func TestIsValidEmail(t *testing.T) {
	if !IsValidEmail(" Admin@Example.com ") {
		t.Fatal("expected valid email")
	}
	for _, bad := range []string{"", "admin", "a@b", "a@@b.com"} {
		if IsValidEmail(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
