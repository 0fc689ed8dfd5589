package schoolapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core/marks"
)

func (c *Client) Marks(ctx context.Context, token string, subjectID int, division string) ([]marks.Entry, error) {
	query := url.Values{
		"subject_id": {strconv.Itoa(subjectID)},
		"division":   {division},
	}
	var out []marks.Entry
	if err := c.do(ctx, http.MethodGet, "/teacher/marks", token, query, nil, &out); err != nil {
		return nil, errors.Wrap(err, "listing marks")
	}
	return out, nil
}

func (c *Client) CreateMark(ctx context.Context, token string, entry marks.Entry) (marks.Entry, error) {
	var out marks.Entry
	if err := c.do(ctx, http.MethodPost, "/teacher/marks", token, nil, entry, &out); err != nil {
		return marks.Entry{}, errors.Wrap(err, "creating mark")
	}
	return out, nil
}

func (c *Client) UpdateMark(ctx context.Context, token string, markID int, entry marks.Entry) (marks.Entry, error) {
	path := "/teacher/marks/" + strconv.Itoa(markID)
	var out marks.Entry
	if err := c.do(ctx, http.MethodPut, path, token, nil, entry, &out); err != nil {
		return marks.Entry{}, errors.Wrap(err, "updating mark")
	}
	return out, nil
}

func (c *Client) DeleteMark(ctx context.Context, token string, markID int) error {
	path := "/teacher/marks/" + strconv.Itoa(markID)
	return errors.Wrap(c.do(ctx, http.MethodDelete, path, token, nil, nil, nil), "deleting mark")
}

// SubmitMarkBatch sends the whole grid in one call. The batch's canonical
// entry order makes an unmodified resubmission byte-identical on the wire.
func (c *Client) SubmitMarkBatch(ctx context.Context, token string, batch marks.Batch) error {
	return errors.Wrap(
		c.do(ctx, http.MethodPost, "/teacher/marks/batch", token, nil, batch, nil),
		"submitting mark batch")
}

func (c *Client) StudentMarks(ctx context.Context, token, rollNo, division string) ([]marks.Entry, error) {
	query := url.Values{"roll_no": {rollNo}, "division": {division}}
	var out []marks.Entry
	if err := c.do(ctx, http.MethodGet, "/teacher/student-marks", token, query, nil, &out); err != nil {
		return nil, errors.Wrap(err, "fetching student marks")
	}
	return out, nil
}

// UploadMarksWorkbook forwards a spreadsheet to the backend, which does the
// matching. Rows it could not match come back structured, not as an error.
func (c *Client) UploadMarksWorkbook(ctx context.Context, token, filename string, file io.Reader) (marks.UploadReport, error) {
	var report marks.UploadReport
	if err := c.upload(ctx, "/teacher/marks/from-excel", token, filename, file, &report); err != nil {
		return marks.UploadReport{}, errors.Wrap(err, "uploading marks workbook")
	}
	return report, nil
}
