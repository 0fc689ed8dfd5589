package echoweb

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/session"
)

// storage keys inside the session cookie
const (
	cookieKeyToken    = "token"
	cookieKeyIdentity = "identity"
)

// CookieSessions backs the durable session store with a signed cookie, so a
// session survives reloads and is shared by every tab of the browser.
type CookieSessions struct {
	store *sessions.CookieStore
	name  string
}

func NewCookieSessions(conf *core.Config) *CookieSessions {
	secret := []byte(conf.SecretKey)
	if len(secret) == 0 {
		// no configured secret: sessions die with the process
		secret = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Session.CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieSessions{store: store, name: conf.Session.CookieName}
}

// Durable returns the request-scoped durable store view.
func (cs *CookieSessions) Durable(ctx echo.Context) session.DurableStore {
	return &cookieDurable{cs: cs, ctx: ctx}
}

type cookieDurable struct {
	cs  *CookieSessions
	ctx echo.Context
}

var _ session.DurableStore = (*cookieDurable)(nil)

func (d *cookieDurable) Get() (session.Session, bool) {
	// Get never fails hard: a tampered cookie decodes as a fresh session
	s, _ := d.cs.store.Get(d.ctx.Request(), d.cs.name)

	token, _ := s.Values[cookieKeyToken].(string)
	if token == "" {
		return session.Session{}, false
	}
	sess := session.Session{Token: token}
	if raw, ok := s.Values[cookieKeyIdentity].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &sess)
		sess.Token = token
	}
	return sess, true
}

func (d *cookieDurable) Set(sess session.Session) error {
	s, _ := d.cs.store.Get(d.ctx.Request(), d.cs.name)

	identity, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session identity")
	}
	s.Values[cookieKeyToken] = sess.Token
	s.Values[cookieKeyIdentity] = string(identity)
	return errors.Wrap(s.Save(d.ctx.Request(), d.ctx.Response()), "saving session cookie")
}

func (d *cookieDurable) Clear() error {
	s, _ := d.cs.store.Get(d.ctx.Request(), d.cs.name)
	s.Values = make(map[interface{}]interface{})
	s.Options.MaxAge = -1
	return errors.Wrap(s.Save(d.ctx.Request(), d.ctx.Response()), "expiring session cookie")
}
