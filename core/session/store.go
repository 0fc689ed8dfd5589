package session

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoSession means no identity could be established; the caller is in
	// the logged-out state. Never fatal to the app.
	ErrNoSession = errors.New("no session")

	// ErrAuthFailed covers bad credentials and a failed identity
	// confirmation after login. Backend implementations translate their
	// 400/401/404 responses to this error.
	ErrAuthFailed = errors.New("authentication failed")
)

// DurableStore holds the session that survives reloads and is shared across
// tabs of the same origin. In the web layer this is the signed session
// cookie; tests use an in-memory implementation.
type DurableStore interface {
	Get() (Session, bool)
	Set(Session) error
	Clear() error
}

// TabStore holds the impersonation grant for exactly one tab: process
// lifetime, never shared across tabs. Kept strictly separate from
// DurableStore; the two have different lifetime contracts.
type TabStore interface {
	Grant() (Grant, bool)
	SetGrant(Grant) error
	Clear() error
}

// Backend is the slice of the school API this package needs.
type Backend interface {
	// Login exchanges credentials for an opaque token; bad credentials
	// surface as ErrAuthFailed.
	Login(ctx context.Context, userID, password, role string) (string, error)
	// Me resolves the identity behind a credential; an unrecognized
	// credential surfaces as ErrAuthFailed.
	Me(ctx context.Context, token string) (Identity, error)
	// Logout is best-effort server-side teardown.
	Logout(ctx context.Context, token string) error
	// ImpersonateTeacher requests a short-lived teacher-scoped credential.
	ImpersonateTeacher(ctx context.Context, token string, teacherID int) (string, TeacherRef, error)
}
