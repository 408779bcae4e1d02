package token

import (
	"errors"
	"testing"

	"github.com/salonkit/authcore/session"
)

type wrappedRef struct{ id string }

func (w wrappedRef) SessionRefID() string { return w.id }

type stringerRef struct{ id string }

func (s stringerRef) String() string { return s.id }

func TestNormalizeSessionRefShapes(t *testing.T) {
	cases := []struct {
		name string
		ref  any
		want string
	}{
		{"plain string", "sid-1", "sid-1"},
		{"wrapped ref", wrappedRef{id: "sid-2"}, "sid-2"},
		{"session pointer", &session.Session{ID: "sid-3"}, "sid-3"},
		{"session value", session.Session{ID: "sid-4"}, "sid-4"},
		{"stringer", stringerRef{id: "sid-5"}, "sid-5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeSessionRef(tc.ref)
			if err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeSessionRefRejections(t *testing.T) {
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name string
		ref  any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"oversized", string(long)},
		{"nil session pointer", (*session.Session)(nil)},
		{"empty session", &session.Session{}},
		{"struct dump stringer", stringerRef{id: "{sid-1 user-1}"}},
		{"whitespace", "sid 1"},
		{"unsupported type", 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeSessionRef(tc.ref); !errors.Is(err, ErrInvalidSessionRef) {
				t.Fatalf("expected ErrInvalidSessionRef, got %v", err)
			}
		})
	}
}
