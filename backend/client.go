package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

var ErrNotFound = errors.New("backend: not found")

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.Status, e.Body)
}

const (
	requestTimeout   = 30 * time.Second
	translateTimeout = time.Minute
)

// Client talks to the forms backend. Each Client carries its own cookie jar,
// so one Client corresponds to one answer session on the backend side.
type Client struct {
	baseURL *url.URL
	token   string
	auth    string
	http    *http.Client
}

func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, "backend: parse base url")
	}
	c := &Client{baseURL: u, token: token}
	c.http = c.newHTTPClient()
	return c, nil
}

func (c *Client) newHTTPClient() *http.Client {
	jar, _ := cookiejar.New(nil) // never fails without options
	return &http.Client{Jar: jar, Timeout: translateTimeout}
}

// Fork returns a client for the same backend with an empty cookie jar.
func (c *Client) Fork() *Client {
	fork := *c
	fork.http = c.newHTTPClient()
	return &fork
}

// ForkFor returns a client that speaks to the backend as the filler behind
// r: r's cookies seed the jar and r's Authorization header, when present,
// replaces the service token.
func (c *Client) ForkFor(r *http.Request) *Client {
	fork := c.Fork()
	if cookies := r.Cookies(); len(cookies) > 0 {
		fork.http.Jar.SetCookies(fork.baseURL, cookies)
	}
	fork.auth = r.Header.Get("authorization")
	return fork
}

// Cookies returns what the jar holds for the backend, including cookies the
// backend has set since the client was forked.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

func (c *Client) GetForm(ctx context.Context, formID string) (form model.Form, err error) {
	err = c.do(ctx, http.MethodGet, "api/v1/forms/"+formID, nil, nil, &form)
	return
}

func (c *Client) GetFormFields(ctx context.Context, formID string) (fields []model.Field, err error) {
	err = c.do(ctx, http.MethodGet, "api/v1/forms/"+formID+"/fields", nil, nil, &fields)
	return
}

func (c *Client) GetCurrentSession(ctx context.Context) (session model.AnswerSession, err error) {
	err = c.do(ctx, http.MethodGet, "api/v1/forms/sessions", nil, nil, &session)
	return
}

func (c *Client) SubmitFieldResponse(ctx context.Context, fieldID, value string) error {
	body := model.Answer{FieldID: fieldID, Value: &value}
	return c.do(ctx, http.MethodPost, "api/v1/forms/responses", nil, body, nil)
}

func (c *Client) FinalizeSession(ctx context.Context, formID string) error {
	return c.do(ctx, http.MethodPost, "api/v1/forms/"+formID+"/sessions/submit", nil, nil, nil)
}

func (c *Client) TranslateForm(ctx context.Context, formID string, lang model.Language) (tr model.FormTranslation, err error) {
	ctx, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	query := url.Values{"language": {string(lang)}}
	err = c.do(ctx, http.MethodPost, "api/v1/forms/"+formID+"/translate", query, nil, &tr)
	return
}

type fragmentRequest struct {
	Input    string         `json:"input"`
	Language model.Language `json:"language"`
}

// TranslateFragment accepts both a JSON string and a raw text body.
func (c *Client) TranslateFragment(ctx context.Context, text string, lang model.Language) (string, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodPost, "api/v1/miscellaneous/translate", nil, fragmentRequest{text, lang}, &raw)
	if err != nil {
		return "", err
	}
	var translated string
	if err := json.Unmarshal(raw, &translated); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}
	return translated, nil
}

func (c *Client) CreateField(ctx context.Context, formID string, f model.Field) (created model.Field, err error) {
	err = c.do(ctx, http.MethodPost, "api/v1/forms/"+formID+"/fields", nil, f, &created)
	return
}

func (c *Client) UpdateField(ctx context.Context, f model.Field) (updated model.Field, err error) {
	err = c.do(ctx, http.MethodPut, "api/v1/forms/fields/"+f.ID, nil, f, &updated)
	return
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	ref := &url.URL{Path: path}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(ref)

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "backend: %s %s: encode body", method, path)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return errors.Wrapf(err, "backend: %s %s: new request", method, path)
	}
	req.Header.Set("accept", "application/json")
	if in != nil {
		req.Header.Set("content-type", "application/json")
	}
	switch {
	case c.auth != "":
		req.Header.Set("authorization", c.auth)
	case c.token != "":
		req.Header.Set("authorization", "Bearer "+c.token)
	}

	log.Debugf("backend.request: %s %s", method, target)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "backend: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{method, path, resp.StatusCode, strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw, err = io.ReadAll(resp.Body)
		return errors.Wrapf(err, "backend: %s %s: read body", method, path)
	}
	err = json.NewDecoder(resp.Body).Decode(out)
	return errors.Wrapf(err, "backend: %s %s: decode body", method, path)
}
