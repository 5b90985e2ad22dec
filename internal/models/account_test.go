package models

import "testing"

// TestNormalizeEmail verifies that only the domain part is lower-cased.
func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "already normal", email: "Test2@example.com", want: "Test2@example.com"},
		{name: "upper domain", email: "Test3@EXAMPLE.com", want: "Test3@example.com"},
		{name: "upper tld", email: "Test4@example.COM", want: "Test4@example.com"},
		{name: "all upper", email: "TEST5@EXAMPLE.COM", want: "TEST5@example.com"},
		{name: "surrounding spaces", email: "  a@B.io ", want: "a@b.io"},
		{name: "no at sign", email: "not-an-email", want: "not-an-email"},
		{name: "empty", email: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.email); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

// TestAccountCanLogin verifies that both active and verified are required.
func TestAccountCanLogin(t *testing.T) {
	tests := []struct {
		name     string
		active   bool
		verified bool
		want     bool
	}{
		{name: "active and verified", active: true, verified: true, want: true},
		{name: "active not verified", active: true, verified: false, want: false},
		{name: "inactive but verified", active: false, verified: true, want: false},
		{name: "neither", active: false, verified: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{IsActive: tt.active, IsVerified: tt.verified}
			if got := a.CanLogin(); got != tt.want {
				t.Errorf("CanLogin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileFullName(t *testing.T) {
	p := &Profile{Email: "a@example.com"}
	if got := p.FullName(); got != "a@example.com" {
		t.Errorf("empty name: got %q, want email fallback", got)
	}

	p.FirstName = "Ada"
	p.LastName = "Lovelace"
	if got := p.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName() = %q, want %q", got, "Ada Lovelace")
	}
}
