package session

import (
	"testing"
	"time"
)

func TestExchangeCodes(t *testing.T) {
	grant := Grant{Token: "ttok", TeacherID: 7, AdminToken: "atok", ReturnURL: "/admin"}

	t.Run("issue then redeem once", func(t *testing.T) {
		codes := NewExchangeCodes([]byte("secret"), time.Minute, 16)
		code, err := codes.Issue(grant)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		got, err := codes.Redeem(code)
		if err != nil {
			t.Fatalf("Redeem() error = %v", err)
		}
		if got != grant {
			t.Errorf("Redeem() = %+v; want %+v", got, grant)
		}
	})

	t.Run("replay rejected", func(t *testing.T) {
		codes := NewExchangeCodes([]byte("secret"), time.Minute, 16)
		code, _ := codes.Issue(grant)
		if _, err := codes.Redeem(code); err != nil {
			t.Fatalf("first Redeem() error = %v", err)
		}
		if _, err := codes.Redeem(code); err != ErrCodeInvalid {
			t.Errorf("second Redeem() error = %v; want ErrCodeInvalid", err)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		codes := NewExchangeCodes([]byte("secret"), time.Minute, 16)
		for _, code := range []string{"", "not-a-code", "a.b.c"} {
			if _, err := codes.Redeem(code); err != ErrCodeInvalid {
				t.Errorf("Redeem(%q) error = %v; want ErrCodeInvalid", code, err)
			}
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		issuer := NewExchangeCodes([]byte("secret"), time.Minute, 16)
		other := NewExchangeCodes([]byte("different"), time.Minute, 16)
		code, _ := issuer.Issue(grant)
		if _, err := other.Redeem(code); err != ErrCodeInvalid {
			t.Errorf("Redeem() error = %v; want ErrCodeInvalid", err)
		}
	})

	t.Run("expired rejected", func(t *testing.T) {
		codes := NewExchangeCodes([]byte("secret"), time.Millisecond, 16)
		code, _ := codes.Issue(grant)
		time.Sleep(10 * time.Millisecond)
		if _, err := codes.Redeem(code); err != ErrCodeInvalid {
			t.Errorf("Redeem() error = %v; want ErrCodeInvalid", err)
		}
	})
}
