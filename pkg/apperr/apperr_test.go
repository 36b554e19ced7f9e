package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(NotFound("appointment")) != KindNotFound {
		t.Error("expected KindNotFound")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors should default to KindInternal")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := Conflict("appointment already completed")
	outer := fmt.Errorf("update appointment: %w", inner)
	if KindOf(outer) != KindConflict {
		t.Error("kind should survive wrapping")
	}
}

func TestValidationFields(t *testing.T) {
	err := Validation("invalid input", map[string]string{"username": "already exists"})
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatal("expected *Error")
	}
	if ae.Fields["username"] != "already exists" {
		t.Errorf("unexpected fields: %v", ae.Fields)
	}
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("sms provider unreachable", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if !Is(err, KindUpstream) {
		t.Error("expected KindUpstream")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindUnauthorized, 401},
		{KindForbidden, 403},
		{KindNotFound, 404},
		{KindConflict, 409},
		{KindUpstream, 502},
		{KindInternal, 500},
	}
	for _, tc := range cases {
		if got := statusFor(tc.kind); got != tc.want {
			t.Errorf("statusFor(%d) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}
