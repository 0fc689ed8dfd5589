package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/siesnerul/resultdesk/apps/web/echo"
	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/marks"
	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/services/schoolapi"
	"github.com/siesnerul/resultdesk/storage/state"
)

// well-known fixtures served by the backend stub
const (
	adminToken   = "tok123"
	teacherToken = "ttok9"
	impToken     = "ttok"
)

type httpErr struct {
	Error string `json:"error"`
}

// backendStub stands in for the school API server.
type backendStub struct {
	srv *httptest.Server

	markCalls    int32 // writes that reached the backend
	batchBody    []byte
	impersonated int32

	// resultsGate, when set, runs before a results query is answered;
	// lets a test hold one backend response while another overtakes it.
	resultsGate func()
}

func (b *backendStub) bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (b *backendStub) route(w http.ResponseWriter, r *http.Request) {
	writeJSON := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.URL.Path == "/auth/login":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		switch {
		case body["userid"] == "a1" && body["password"] == "p1" && body["role"] == "ADMIN":
			writeJSON(http.StatusOK, map[string]string{"token": adminToken, "role": "ADMIN"})
		case body["userid"] == "t9" && body["password"] == "p9" && body["role"] == "TEACHER":
			writeJSON(http.StatusOK, map[string]string{"token": teacherToken, "role": "TEACHER"})
		default:
			writeJSON(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		}

	case r.URL.Path == "/auth/me":
		switch b.bearer(r) {
		case adminToken:
			writeJSON(http.StatusOK, session.Identity{ID: 1, Name: "Alice", Role: "ADMIN"})
		case teacherToken:
			writeJSON(http.StatusOK, session.Identity{ID: 9, Name: "Tina", Role: "TEACHER"})
		case impToken:
			writeJSON(http.StatusOK, session.Identity{ID: 7, Name: "Bob", Role: "TEACHER"})
		default:
			writeJSON(http.StatusUnauthorized, map[string]string{"message": "bad token"})
		}

	case r.URL.Path == "/auth/logout":
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/admin/teachers/7/impersonate":
		atomic.AddInt32(&b.impersonated, 1)
		writeJSON(http.StatusOK, map[string]interface{}{
			"token":   impToken,
			"teacher": session.TeacherRef{ID: 7, Name: "Bob"},
		})

	case r.URL.Path == "/admin/teachers":
		writeJSON(http.StatusOK, []session.TeacherRef{
			{ID: 7, Name: "Bob"},
			{ID: 9, Name: "Tina"},
		})

	case r.URL.Path == "/admin/divisions":
		writeJSON(http.StatusOK, []string{"A", "B"})

	case r.URL.Path == "/admin/results":
		if b.resultsGate != nil {
			b.resultsGate()
		}
		f := func(v float64) *float64 { return &v }
		if r.URL.Query().Get("roll_no") != "" {
			// single roll match: a bare object, not an array
			writeJSON(http.StatusOK, schoolapi.StudentResult{
				RollNo: "12", Name: "Asha", Division: "A", Percentage: f(75),
			})
			return
		}
		writeJSON(http.StatusOK, []schoolapi.StudentResult{
			{RollNo: "12", Name: "Asha", Division: "A", Percentage: f(75)},
			{RollNo: "13", Name: "Dev", Division: "A", Percentage: f(30)},
		})

	case r.URL.Path == "/admin/allocations" && r.Method == http.MethodGet:
		writeJSON(http.StatusOK, []schoolapi.Allocation{
			{ID: 1, TeacherID: 7, SubjectID: 2, Division: "A"},
		})

	case r.URL.Path == "/subjects":
		writeJSON(http.StatusOK, []schoolapi.Subject{
			{ID: 1, Name: "Mathematics"},
			{ID: 2, Name: "Science"},
		})

	case r.URL.Path == "/teacher/marks" && r.Method == http.MethodGet:
		writeJSON(http.StatusOK, []marks.Entry{
			{MarkID: 11, SubjectID: 1, Division: "A", RollNo: "1"},
		})

	case r.URL.Path == "/teacher/marks" && r.Method == http.MethodPost:
		atomic.AddInt32(&b.markCalls, 1)
		var entry marks.Entry
		json.NewDecoder(r.Body).Decode(&entry)
		entry.MarkID = 42
		writeJSON(http.StatusCreated, entry)

	case r.URL.Path == "/teacher/marks/batch":
		atomic.AddInt32(&b.markCalls, 1)
		b.batchBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/teacher/marks/from-excel":
		matched := make([]marks.Entry, 8)
		f := func(v float64) *float64 { return &v }
		for i := range matched {
			matched[i] = marks.Entry{SubjectID: 1, Division: "A", RollNo: strconv.Itoa(i + 1), Annual: f(50)}
		}
		writeJSON(http.StatusOK, marks.UploadReport{
			Matched: matched,
			Missing: []marks.MissingRow{
				{RollNo: "41", Name: "Neha", Reason: "roll not found"},
				{RollNo: "42", Name: "Omar", Reason: "roll not found"},
			},
		})

	default:
		writeJSON(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func setup(t *testing.T) (Server, *backendStub) {
	t.Helper()

	stub := &backendStub{}
	stub.srv = httptest.NewServer(http.HandlerFunc(stub.route))
	t.Cleanup(stub.srv.Close)

	conf := &core.Config{
		Env:       "test",
		TestMode:  true,
		AppName:   "resultdesk",
		SecretKey: "test-secret",
		Backend:   core.BackendConfig{BaseURL: stub.srv.URL, Timeout: 5 * time.Second},
		Session: core.SessionConfig{
			CookieName:      "resultdesk_session",
			CookieMaxAge:    time.Hour,
			ExchangeCodeTTL: time.Minute,
			TabTTL:          time.Hour,
			MaxTabs:         64,
		},
		Frontend: core.FrontendConfig{
			BaseURL:         "http://localhost:8000",
			AdminLandingURL: "/admin",
		},
	}

	logger := core.NewStdLogger(log.New(io.Discard, "", 0))
	api := schoolapi.NewClient(conf, logger)
	codes := session.NewExchangeCodes([]byte(conf.SecretKey), conf.Session.ExchangeCodeTTL, conf.Session.MaxTabs)
	tabs := state.NewTabs(conf.Session.MaxTabs, conf.Session.TabTTL)

	server := NewServer(
		&Options{
			DisableReqLogs: true,
			AppConf:        conf,
			Logger:         logger,
			SessionSvc:     session.NewService(api, codes, logger, conf),
			API:            api,
			Cookies:        NewCookieSessions(conf),
			Tabs:           tabs,
			SignalShutdown: func() {},
		},
	)
	return server, stub
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookies  []*http.Cookie
	tabID    string
	wantCode int
	wantData []byte
}

func newRequest(tt httpTest) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(tt.body) > 0 {
		body.Write(tt.body)
	}
	req := httptest.NewRequest(tt.method, tt.path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range tt.cookies {
		req.AddCookie(c)
	}
	if tt.tabID != "" {
		req.Header.Set("X-Tab-ID", tt.tabID)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// login authenticates against the gateway and returns the session cookies a
// browser would carry from then on.
func login(t *testing.T, server Server, userID, password, role string) []*http.Cookie {
	t.Helper()
	body := marchallObj(t, map[string]string{"userid": userID, "password": password, "role": role})
	req, rec := newRequest(httpTest{method: http.MethodPost, path: "/session", body: body})
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: code = %v body = %v", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func loginAdmin(t *testing.T, server Server) []*http.Cookie {
	return login(t, server, "a1", "p1", "ADMIN")
}

func loginTeacher(t *testing.T, server Server) []*http.Cookie {
	return login(t, server, "t9", "p9", "TEACHER")
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
