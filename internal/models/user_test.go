package models

import (
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"+1 (555) 123-4567", "+15551234567"},
		{"555 123 4567", "5551234567"},
		{"+447911123456", "+447911123456"},
	} {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := NormalizeStatus("approved"); got != StatusApproved {
		t.Errorf("legacy approved = %s, want approved_username_assigned", got)
	}
	if got := NormalizeStatus("pending_verification"); got != StatusPendingVerification {
		t.Errorf("pending = %s", got)
	}
	if got := NormalizeStatus("rejected"); got != StatusRejected {
		t.Errorf("rejected = %s", got)
	}
}

func validRegisterRequest() *RegisterRequest {
	return &RegisterRequest{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "+15551234567",
		Password: "correct-horse",
		Location: "Austin, TX",
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	req := validRegisterRequest()
	req.Normalize()
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("valid request produced errors: %v", errs)
	}

	for _, tc := range []struct {
		name   string
		mutate func(r *RegisterRequest)
		field  string
	}{
		{"short name", func(r *RegisterRequest) { r.Name = "J" }, "name"},
		{"long name", func(r *RegisterRequest) { r.Name = strings.Repeat("a", 51) }, "name"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"bad phone", func(r *RegisterRequest) { r.Phone = "0123" }, "phone"},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }, "password"},
		{"short location", func(r *RegisterRequest) { r.Location = "X" }, "location"},
	} {
		req := validRegisterRequest()
		tc.mutate(req)
		req.Normalize()
		errs := req.Validate()
		if errs[tc.field] == "" {
			t.Errorf("%s: expected an error on %q, got %v", tc.name, tc.field, errs)
		}
	}
}

func TestRegisterRequestNormalize(t *testing.T) {
	req := &RegisterRequest{
		Name:     "  Jane Doe  ",
		Email:    " Jane@Example.COM ",
		Phone:    " +1 (555) 123-4567 ",
		Password: "correct-horse",
		Location: " Austin ",
	}
	req.Normalize()
	if req.Email != "jane@example.com" {
		t.Errorf("email = %q", req.Email)
	}
	if req.Phone != "+15551234567" {
		t.Errorf("phone = %q", req.Phone)
	}
	if req.Name != "Jane Doe" || req.Location != "Austin" {
		t.Errorf("name = %q, location = %q", req.Name, req.Location)
	}
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("normalized request produced errors: %v", errs)
	}
}
