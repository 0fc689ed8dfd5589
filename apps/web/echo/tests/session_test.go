package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/siesnerul/resultdesk/core/session"
)

func Test_sessionApi_login(t *testing.T) {
	server, _ := setup(t)

	tests := []httpTest{
		{
			name:     "admin login returns the confirmed identity",
			method:   http.MethodPost,
			path:     "/session",
			body:     marchallObj(t, map[string]string{"userid": "a1", "password": "p1", "role": "ADMIN"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Session{Token: "tok123", Role: "ADMIN", Name: "Alice", UserID: 1}),
		},
		{
			name:     "bad credentials",
			method:   http.MethodPost,
			path:     "/session",
			body:     marchallObj(t, map[string]string{"userid": "a1", "password": "nope", "role": "ADMIN"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "unknown role",
			method:   http.MethodPost,
			path:     "/session",
			body:     marchallObj(t, map[string]string{"userid": "a1", "password": "p1", "role": "STUDENT"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be ADMIN or TEACHER"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_sessionApi_restore(t *testing.T) {
	server, _ := setup(t)
	cookies := loginAdmin(t, server)

	t.Run("restores from the session cookie", func(t *testing.T) {
		tt := httpTest{
			method:   http.MethodGet,
			path:     "/session",
			cookies:  cookies,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Session{Token: "tok123", Role: "ADMIN", Name: "Alice", UserID: 1}),
		}
		req, rec := newRequest(tt)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("no cookie means logged out", func(t *testing.T) {
		tt := httpTest{
			method:   http.MethodGet,
			path:     "/session",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "not signed in"}),
		}
		req, rec := newRequest(tt)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_sessionApi_logout(t *testing.T) {
	server, _ := setup(t)
	cookies := loginAdmin(t, server)

	req, rec := newRequest(httpTest{method: http.MethodDelete, path: "/session", cookies: cookies})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: code = %v", rec.Code)
	}

	// the response expires the cookie
	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "resultdesk_session" && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("session cookie was not expired")
	}
}

// Test_sessionApi_impersonationRoundTrip walks the whole hand-off through the
// HTTP surface: impersonate → target URL with one-time code → consume in a
// fresh tab → work as the teacher → return to the admin session.
func Test_sessionApi_impersonationRoundTrip(t *testing.T) {
	server, stub := setup(t)
	adminCookies := loginAdmin(t, server)

	// 1. admin asks to act as teacher 7
	req, rec := newRequest(httpTest{
		method:  http.MethodPost,
		path:    "/admin/teachers/7/impersonate",
		body:    marchallObj(t, map[string]string{"return_url": "/admin/teachers?page=2"}),
		cookies: adminCookies,
	})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("impersonate: code = %v body = %v", rec.Code, rec.Body.String())
	}
	var impResp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &impResp); err != nil {
		t.Fatalf("decoding impersonate response: %v", err)
	}
	target, err := url.Parse(impResp.URL)
	if err != nil || target.Path != "/teacher" {
		t.Fatalf("target = %q; want /teacher?code=...", impResp.URL)
	}
	code := target.Query().Get("code")
	if code == "" {
		t.Fatal("no code in target URL")
	}
	if strings.Contains(impResp.URL, impToken) || strings.Contains(impResp.URL, adminToken) {
		t.Fatalf("credential leaked into URL: %q", impResp.URL)
	}

	// 2. the new tab consumes the code
	req, rec = newRequest(httpTest{
		method:  http.MethodPost,
		path:    "/session/impersonate",
		body:    marchallObj(t, map[string]string{"code": code}),
		cookies: adminCookies,
	})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("consume: code = %v body = %v", rec.Code, rec.Body.String())
	}
	var consumed struct {
		TabID   string          `json:"tab_id"`
		Session session.Session `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &consumed); err != nil {
		t.Fatalf("decoding consume response: %v", err)
	}
	if consumed.TabID == "" || !consumed.Session.Impersonated || consumed.Session.Name != "Bob" {
		t.Fatalf("consume = %+v", consumed)
	}

	// the code is single use
	req, rec = newRequest(httpTest{
		method: http.MethodPost,
		path:   "/session/impersonate",
		body:   marchallObj(t, map[string]string{"code": code}),
	})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replayed code: code = %v; want 400", rec.Code)
	}

	// 3. the admin's own tab is untouched: restoring without the tab header
	// still yields the admin session
	req, rec = newRequest(httpTest{method: http.MethodGet, path: "/session", cookies: adminCookies})
	server.ServeHTTP(rec, req)
	var adminSess session.Session
	json.Unmarshal(rec.Body.Bytes(), &adminSess)
	if adminSess.Token != adminToken || adminSess.Impersonated {
		t.Errorf("admin tab session = %+v; want untouched admin session", adminSess)
	}

	// 4. the impersonating tab works as the teacher
	req, rec = newRequest(httpTest{
		method:  http.MethodGet,
		path:    "/teacher/marks?subject_id=1&division=A",
		cookies: adminCookies,
		tabID:   consumed.TabID,
	})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("teacher marks while impersonating: code = %v body = %v", rec.Code, rec.Body.String())
	}

	// 5. return to the admin session
	req, rec = newRequest(httpTest{
		method:  http.MethodPost,
		path:    "/session/impersonate/return",
		cookies: adminCookies,
		tabID:   consumed.TabID,
	})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("return: code = %v body = %v", rec.Code, rec.Body.String())
	}
	var ret struct {
		Redirect string `json:"redirect"`
	}
	json.Unmarshal(rec.Body.Bytes(), &ret)
	if ret.Redirect != "http://localhost:8000/admin/teachers?page=2" {
		t.Errorf("redirect = %q; want the captured return URL", ret.Redirect)
	}

	if n := stub.impersonated; n != 1 {
		t.Errorf("backend impersonation calls = %d; want 1", n)
	}
}
