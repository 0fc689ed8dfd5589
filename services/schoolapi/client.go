// Package schoolapi is the typed HTTP client for the school back-office API.
// Every domain operation the gateway exposes is a thin call through here; the
// client owns encoding, bearer auth and the API/transport error distinction.
package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
)

// ErrUnavailable marks a transport failure reaching the backend: connection
// refused, DNS failure, timeout. To the user it reads the same as a backend
// 5xx, "try again later"; the operation was not applied.
var ErrUnavailable = errors.New("school backend unreachable")

// APIError is a non-2xx answer from the backend. Transport failures are
// never APIErrors; callers rely on the distinction.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("school backend: %d %s", e.Status, e.Message)
}

// IsAPIError returns the APIError in err's chain, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Client struct {
	baseURL string
	http    *http.Client
	log     core.Logger
}

func NewClient(conf *core.Config, log core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Backend.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		log:     log,
	}
}

// do performs one JSON round trip. in (when non-nil) is encoded as the JSON
// request body; out (when non-nil) receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, token, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "building backend request")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "calling school backend: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding backend response")
	}
	return nil
}

// stream performs a GET whose body is handed to the caller verbatim
// (spreadsheet downloads). The caller owns closing the body.
func (c *Client) stream(ctx context.Context, path, token string, query url.Values) (io.ReadCloser, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, token, query, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(ErrUnavailable, "calling school backend: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, "", decodeError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// upload forwards one file as a multipart request.
func (c *Client) upload(ctx context.Context, path, token, filename string, file io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return errors.Wrap(err, "building multipart body")
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.Wrap(err, "copying upload into multipart body")
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "finalizing multipart body")
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, token, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
