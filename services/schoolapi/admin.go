package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core/session"
)

// SubjectScore is one subject line inside a student's result.
type SubjectScore struct {
	Subject string   `json:"subject"`
	Annual  *float64 `json:"annual"`
	Grace   *float64 `json:"grace"`
	Final   *float64 `json:"final"`
}

// StudentResult is the backend's per-student result record. The grade and
// pass/fail decorations are applied by the gateway, not the backend.
type StudentResult struct {
	RollNo     string         `json:"roll_no"`
	Name       string         `json:"name"`
	Division   string         `json:"division"`
	Subjects   []SubjectScore `json:"subjects"`
	Total      *float64       `json:"total"`
	Percentage *float64       `json:"percentage"`
}

type Subject struct {
	ID   int    `json:"subject_id"`
	Name string `json:"name"`
}

type Allocation struct {
	ID          int    `json:"allocation_id"`
	TeacherID   int    `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	SubjectID   int    `json:"subject_id"`
	Subject     string `json:"subject,omitempty"`
	Division    string `json:"division"`
}

func (c *Client) Teachers(ctx context.Context, token string) ([]session.TeacherRef, error) {
	var out []session.TeacherRef
	if err := c.do(ctx, http.MethodGet, "/admin/teachers", token, nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing teachers")
	}
	return out, nil
}

func (c *Client) DeleteTeacher(ctx context.Context, token string, teacherID int) error {
	path := "/admin/teachers/" + strconv.Itoa(teacherID)
	return errors.Wrap(c.do(ctx, http.MethodDelete, path, token, nil, nil, nil), "deleting teacher")
}

func (c *Client) ImpersonateTeacher(ctx context.Context, token string, teacherID int) (string, session.TeacherRef, error) {
	path := "/admin/teachers/" + strconv.Itoa(teacherID) + "/impersonate"
	var out struct {
		Token   string             `json:"token"`
		Teacher session.TeacherRef `json:"teacher"`
	}
	if err := c.do(ctx, http.MethodPost, path, token, nil, nil, &out); err != nil {
		return "", session.TeacherRef{}, authFailed(err)
	}
	return out.Token, out.Teacher, nil
}

func (c *Client) Divisions(ctx context.Context, token string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/admin/divisions", token, nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing divisions")
	}
	return out, nil
}

// Results fetches student results for a division, optionally narrowed to one
// roll number. The backend answers with a single object when exactly one roll
// matches and an array otherwise; both shapes come back as a slice here.
func (c *Client) Results(ctx context.Context, token, division, rollNo string) ([]StudentResult, error) {
	query := url.Values{"division": {division}}
	if rollNo != "" {
		query.Set("roll_no", rollNo)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/results", token, query, nil, &raw); err != nil {
		return nil, errors.Wrap(err, "fetching results")
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []StudentResult
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, errors.Wrap(err, "decoding results")
		}
		return many, nil
	}
	var one StudentResult
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, errors.Wrap(err, "decoding result")
	}
	return []StudentResult{one}, nil
}

func (c *Client) Allocations(ctx context.Context, token string) ([]Allocation, error) {
	var out []Allocation
	if err := c.do(ctx, http.MethodGet, "/admin/allocations", token, nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing allocations")
	}
	return out, nil
}

func (c *Client) CreateAllocation(ctx context.Context, token string, alloc Allocation) (Allocation, error) {
	var out Allocation
	if err := c.do(ctx, http.MethodPost, "/admin/allocations", token, nil, alloc, &out); err != nil {
		return Allocation{}, errors.Wrap(err, "creating allocation")
	}
	return out, nil
}

func (c *Client) DeleteAllocation(ctx context.Context, token string, allocID int) error {
	path := "/admin/allocations/" + strconv.Itoa(allocID)
	return errors.Wrap(c.do(ctx, http.MethodDelete, path, token, nil, nil, nil), "deleting allocation")
}

func (c *Client) Subjects(ctx context.Context, token string) ([]Subject, error) {
	var out []Subject
	if err := c.do(ctx, http.MethodGet, "/subjects", token, nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	return out, nil
}

// MarksheetExcel streams the per-student marksheet workbook. The caller owns
// closing the returned body.
func (c *Client) MarksheetExcel(ctx context.Context, token, division, rollNo string) (io.ReadCloser, string, error) {
	query := url.Values{"division": {division}, "roll_no": {rollNo}}
	body, contentType, err := c.stream(ctx, "/admin/excel/marksheet", token, query)
	return body, contentType, errors.Wrap(err, "fetching marksheet workbook")
}

// MasterExcel streams the master spreadsheet of all marks.
func (c *Client) MasterExcel(ctx context.Context, token string) (io.ReadCloser, string, error) {
	body, contentType, err := c.stream(ctx, "/admin/excel/master", token, nil)
	return body, contentType, errors.Wrap(err, "fetching master workbook")
}
