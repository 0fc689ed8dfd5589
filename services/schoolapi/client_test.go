package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/marks"
	"github.com/siesnerul/resultdesk/core/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	conf := &core.Config{Backend: core.BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}}
	return NewClient(conf, core.NewStdLogger(log.New(io.Discard, "", 0))), srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_Login(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["userid"] == "a1" && body["password"] == "p1" && body["role"] == "ADMIN" {
			writeJSON(w, http.StatusOK, map[string]string{"token": "tok123", "role": "ADMIN"})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	}))

	token, err := client.Login(context.Background(), "a1", "p1", "ADMIN")
	assert.NoError(t, err)
	assert.Equal(t, "tok123", token)

	_, err = client.Login(context.Background(), "a1", "nope", "ADMIN")
	assert.Equal(t, session.ErrAuthFailed, errors.Cause(err))
}

func TestClient_Me(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer tok123":
			writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": 1, "name": "Alice", "role": "ADMIN"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad token"})
		}
	}))

	ident, err := client.Me(context.Background(), "tok123")
	assert.NoError(t, err)
	assert.Equal(t, session.Identity{ID: 1, Name: "Alice", Role: "ADMIN"}, ident)

	_, err = client.Me(context.Background(), "stale")
	assert.Equal(t, session.ErrAuthFailed, errors.Cause(err))
}

func TestClient_Results_shapeSniffing(t *testing.T) {
	one := StudentResult{RollNo: "12", Name: "Asha", Division: "A"}
	many := []StudentResult{{RollNo: "1"}, {RollNo: "2"}}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/results", r.URL.Path)
		assert.Equal(t, "A", r.URL.Query().Get("division"))
		if r.URL.Query().Get("roll_no") != "" {
			// single roll match: backend answers with a bare object
			writeJSON(w, http.StatusOK, one)
			return
		}
		writeJSON(w, http.StatusOK, many)
	}))

	got, err := client.Results(context.Background(), "tok123", "A", "12")
	assert.NoError(t, err)
	assert.Equal(t, []StudentResult{one}, got)

	got, err = client.Results(context.Background(), "tok123", "A", "")
	assert.NoError(t, err)
	assert.Equal(t, many, got)
}

func TestClient_ImpersonateTeacher(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/teachers/7/impersonate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token":   "ttok",
			"teacher": session.TeacherRef{ID: 7, Name: "Bob"},
		})
	}))

	token, ref, err := client.ImpersonateTeacher(context.Background(), "tok123", 7)
	assert.NoError(t, err)
	assert.Equal(t, "ttok", token)
	assert.Equal(t, session.TeacherRef{ID: 7, Name: "Bob"}, ref)
}

func TestClient_SubmitMarkBatch_wirePayload(t *testing.T) {
	var got []byte
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teacher/marks/batch", r.URL.Path)
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	f := func(v float64) *float64 { return &v }
	batch := marks.NewBatch([]marks.Entry{
		{SubjectID: 2, Division: "B", RollNo: "9", Annual: f(80)},
		{SubjectID: 1, Division: "A", RollNo: "3", Annual: f(70)},
	})
	assert.NoError(t, client.SubmitMarkBatch(context.Background(), "ttok", batch))

	var decoded marks.Batch
	assert.NoError(t, json.Unmarshal(got, &decoded))
	// canonical order survives the wire
	assert.Equal(t, "3", decoded.Entries[0].RollNo)
	assert.Equal(t, "9", decoded.Entries[1].RollNo)
}

func TestClient_UploadMarksWorkbook(t *testing.T) {
	matched := make([]marks.Entry, 8)
	for i := range matched {
		matched[i] = marks.Entry{SubjectID: 1, Division: "A", RollNo: fmt.Sprint(i + 1)}
	}
	missing := []marks.MissingRow{
		{RollNo: "41", Name: "Neha", Reason: "roll not found"},
		{RollNo: "42", Name: "Omar", Reason: "roll not found"},
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teacher/marks/from-excel", r.URL.Path)

		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "marks.xlsx", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "workbook-bytes", string(content))

		writeJSON(w, http.StatusOK, marks.UploadReport{Matched: matched, Missing: missing})
	}))

	report, err := client.UploadMarksWorkbook(context.Background(), "ttok", "marks.xlsx", bytes.NewBufferString("workbook-bytes"))
	assert.NoError(t, err)
	assert.Len(t, report.Matched, 8)
	assert.Equal(t, 2, report.MissingCount())
}

func TestClient_errorDistinction(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "database unavailable"})
	}))

	_, err := client.Divisions(context.Background(), "tok123")
	apiErr, ok := IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database unavailable", apiErr.Message)

	// transport failure is not an APIError but the unavailability sentinel
	down := &Client{baseURL: "http://127.0.0.1:1", http: &http.Client{Timeout: time.Second}}
	_, err = down.Divisions(context.Background(), "tok123")
	assert.Error(t, err)
	_, ok = IsAPIError(err)
	assert.False(t, ok)
	assert.Equal(t, ErrUnavailable, errors.Cause(err))
}

func TestClient_MasterExcel_stream(t *testing.T) {
	const sheet = "PK\x03\x04master"
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/excel/master", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		io.WriteString(w, sheet)
	}))

	body, contentType, err := client.MasterExcel(context.Background(), "tok123")
	assert.NoError(t, err)
	defer body.Close()
	assert.Contains(t, contentType, "spreadsheetml")
	content, _ := io.ReadAll(body)
	assert.Equal(t, sheet, string(content))
}
