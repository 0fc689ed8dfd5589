package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
)

// ErrCodeInvalid covers a malformed, expired, unknown or already-redeemed
// exchange code. Deliberately indistinguishable to the caller.
var ErrCodeInvalid = errors.New("invalid exchange code")

// ExchangeCodes issues and redeems the one-time codes that carry an
// impersonation Grant between tabs. The code itself is a short-lived signed
// token holding nothing but a grant ID; the grant payload stays server-side
// and is removed on first redemption, so a code cannot be replayed and no
// credential ever transits a URL.
type ExchangeCodes struct {
	secret []byte
	ttl    time.Duration
	grants *expirable.LRU[string, Grant]
}

func NewExchangeCodes(secret []byte, ttl time.Duration, maxPending int) *ExchangeCodes {
	return &ExchangeCodes{
		secret: secret,
		ttl:    ttl,
		grants: expirable.NewLRU[string, Grant](maxPending, nil, ttl),
	}
}

// Issue stores the grant and returns the code that redeems it.
func (x *ExchangeCodes) Issue(g Grant) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Id:        uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(x.ttl).Unix(),
	}
	code, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(x.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing exchange code")
	}
	x.grants.Add(claims.Id, g)
	return code, nil
}

// Redeem validates a code and returns its grant exactly once.
func (x *ExchangeCodes) Redeem(code string) (Grant, error) {
	claims := new(jwt.StandardClaims)
	_, err := jwt.ParseWithClaims(code, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return x.secret, nil
	})
	if err != nil {
		return Grant{}, ErrCodeInvalid
	}

	g, ok := x.grants.Get(claims.Id)
	if !ok {
		return Grant{}, ErrCodeInvalid
	}
	x.grants.Remove(claims.Id) // single use
	return g, nil
}
