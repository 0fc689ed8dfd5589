package session

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
)

type Service struct {
	backend Backend
	codes   *ExchangeCodes
	log     core.Logger

	frontendBaseURL string
	adminLanding    string
}

func NewService(backend Backend, codes *ExchangeCodes, log core.Logger, conf *core.Config) *Service {
	return &Service{
		backend:         backend,
		codes:           codes,
		log:             log,
		frontendBaseURL: strings.TrimRight(conf.Frontend.BaseURL, "/"),
		adminLanding:    conf.Frontend.AdminLandingURL,
	}
}

// Login authenticates against the backend and, only after the issued
// credential has been confirmed via an identity lookup, persists the merged
// identity in the durable store. On any failure nothing is persisted.
func (svc *Service) Login(ctx context.Context, durable DurableStore, userID, password, role string) (Session, error) {
	userID = core.CleanString(userID)
	role = core.CleanString(role, true /* upper */)
	if userID == "" || password == "" {
		return Session{}, core.NewValidationError(errors.New("userid and password are required"))
	}
	if role != RoleAdmin && role != RoleTeacher {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role must be ADMIN or TEACHER"})
	}

	token, err := svc.backend.Login(ctx, userID, password, role)
	if err != nil {
		if errors.Cause(err) == ErrAuthFailed {
			return Session{}, core.NewValidationError(errors.New("invalid credentials"))
		}
		return Session{}, errors.Wrap(err, "logging in")
	}
	if token == "" {
		return Session{}, ErrAuthFailed
	}

	// the token is provisional until the backend confirms the identity
	ident, err := svc.backend.Me(ctx, token)
	if err != nil {
		if errors.Cause(err) == ErrAuthFailed {
			return Session{}, ErrAuthFailed
		}
		return Session{}, errors.Wrap(err, "confirming identity")
	}

	sess := Session{
		Token:  token,
		Role:   role, // requested role; confirmed attributes merged below
		Name:   ident.Name,
		UserID: ident.ID,
	}
	if err := durable.Set(sess); err != nil {
		return Session{}, errors.Wrap(err, "persisting session")
	}
	return sess, nil
}

// Logout notifies the backend best-effort, then unconditionally clears the
// durable session and any impersonation remnants for the tab.
func (svc *Service) Logout(ctx context.Context, durable DurableStore, tab TabStore) {
	if sess, ok := durable.Get(); ok && sess.Token != "" {
		if err := svc.backend.Logout(ctx, sess.Token); err != nil {
			svc.log.Warn("logout: backend teardown failed", err)
		}
	}
	if err := durable.Clear(); err != nil {
		svc.log.Warn("logout: clearing durable store failed", err)
	}
	if tab != nil {
		if err := tab.Clear(); err != nil {
			svc.log.Warn("logout: clearing tab store failed", err)
		}
	}
}

// RestoreOnLoad re-establishes the session when a tab (re)loads.
// A tab-scoped impersonation credential on a teacher view takes precedence
// and is confirmed against the backend; an intact durable session is trusted
// without re-validation; a bare durable token is validated silently. Any
// failure results in the logged-out state, never an app failure.
func (svc *Service) RestoreOnLoad(ctx context.Context, durable DurableStore, tab TabStore, teacherView bool) (Session, error) {
	if teacherView && tab != nil {
		if g, ok := tab.Grant(); ok && g.Token != "" {
			ident, err := svc.backend.Me(ctx, g.Token)
			if err != nil {
				svc.log.Warn("restore: impersonation credential rejected", err)
				return Session{}, ErrNoSession
			}
			return Session{
				Token:        g.Token,
				Role:         RoleTeacher,
				Name:         ident.Name,
				UserID:       ident.ID,
				Impersonated: true,
			}, nil
		}
	}

	sess, ok := durable.Get()
	if !ok || sess.Token == "" {
		return Session{}, ErrNoSession
	}
	if sess.Name != "" {
		// full identity present: trust it, no redundant network call
		return sess, nil
	}

	// bare token: silent validation
	ident, err := svc.backend.Me(ctx, sess.Token)
	if err != nil {
		_ = durable.Clear()
		return Session{}, ErrNoSession
	}
	sess.Name = ident.Name
	sess.UserID = ident.ID
	if sess.Role == "" {
		sess.Role = ident.Role
	}
	if err := durable.Set(sess); err != nil {
		svc.log.Warn("restore: persisting validated session failed", err)
	}
	return sess, nil
}

// Current resolves the live session for a request without touching the
// network: the consumed grant rules teacher views, the durable session
// everything else.
func Current(durable DurableStore, tab TabStore, teacherView bool) (Session, bool) {
	if teacherView && tab != nil {
		if g, ok := tab.Grant(); ok && g.Token != "" {
			return Session{
				Token:        g.Token,
				Role:         RoleTeacher,
				Name:         g.TeacherName,
				UserID:       g.TeacherID,
				Impersonated: true,
			}, true
		}
	}
	sess, ok := durable.Get()
	if !ok || sess.Token == "" {
		return Session{}, false
	}
	return sess, true
}

// CreateGrant asks the backend for a teacher-scoped credential and wraps it,
// together with the admin's backed-up session and return URL, behind a
// one-time exchange code. The returned target URL carries only the code; no
// credential ever appears in a URL. If the backend issues no credential the
// grant is aborted and no URL is produced.
func (svc *Service) CreateGrant(ctx context.Context, durable DurableStore, teacherID int, returnURL string) (string, error) {
	admin, ok := durable.Get()
	if !ok || admin.Token == "" {
		return "", ErrNoSession
	}

	token, ref, err := svc.backend.ImpersonateTeacher(ctx, admin.Token, teacherID)
	if err != nil {
		return "", errors.Wrap(err, "requesting impersonation credential")
	}
	if token == "" {
		return "", errors.New("backend issued no impersonation credential")
	}

	code, err := svc.codes.Issue(Grant{
		Token:       token,
		TeacherID:   ref.ID,
		TeacherName: ref.Name,
		AdminToken:  admin.Token,
		AdminUser:   admin,
		ReturnURL:   returnURL,
	})
	if err != nil {
		return "", errors.Wrap(err, "issuing exchange code")
	}
	return "/teacher?code=" + url.QueryEscape(code), nil
}

// ConsumeGrant redeems a one-time exchange code and seeds the tab store.
// A code can be consumed exactly once; replays fail.
func (svc *Service) ConsumeGrant(tab TabStore, code string) (Grant, error) {
	g, err := svc.codes.Redeem(code)
	if err != nil {
		return Grant{}, err
	}
	if err := tab.SetGrant(g); err != nil {
		return Grant{}, errors.Wrap(err, "seeding tab store")
	}
	return g, nil
}

// ReturnToAdmin reverses an impersonation: the backed-up admin session is
// written back into the durable store of the current tab, all tab-scoped
// keys are cleared, and the caller is pointed at the captured return URL
// (the admin landing view when none was stored).
func (svc *Service) ReturnToAdmin(durable DurableStore, tab TabStore) (string, error) {
	redirect := svc.adminLanding

	if g, ok := tab.Grant(); ok && g.AdminToken != "" {
		restored := g.AdminUser
		restored.Token = g.AdminToken
		restored.Impersonated = false
		if err := durable.Set(restored); err != nil {
			return "", errors.Wrap(err, "restoring admin session")
		}
		if g.ReturnURL != "" {
			redirect = g.ReturnURL
		}
	}
	if err := tab.Clear(); err != nil {
		svc.log.Warn("return: clearing tab store failed", err)
	}
	return svc.absolutize(redirect), nil
}

// absolutize resolves a relative return URL against the front-end base URL.
func (svc *Service) absolutize(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return svc.frontendBaseURL + u
}
