package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/resource"
	"github.com/trezcool/masomo-admin/core/session"
)

const (
	LoginPath = "/user/auth/login/"

	HeaderRequestID = "X-Request-ID"
)

// Client talks to the REST backend. Each call is one request bounded by the client timeout;
// there are no retries.
type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.Session
	logger  core.Logger
}

var _ resource.Transport = (*Client)(nil)

func New(conf *core.Config, sess *session.Session, logger core.Logger) *Client {
	return NewWithBaseURL(conf.APIBaseURL(), conf.API.Timeout, sess, logger)
}

func NewWithBaseURL(baseURL string, timeout time.Duration, sess *session.Session, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		sess:    sess,
		logger:  logger,
	}
}

func (c *Client) Session() *session.Session { return c.sess }

// Do sends payload (JSON, or multipart/form-data when it carries files) and returns the response body.
// Non-2xx answers are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, payload *resource.Payload) ([]byte, error) {
	body, contentType, err := encode(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.sess != nil {
		if auth := c.sess.AuthHeader(); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: reading body", method, path)
	}
	c.logger.Debug(fmt.Sprintf("%s %s -> %d (%s) [%s]", method, path, res.StatusCode, time.Since(start), reqID))

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := parseError(res.StatusCode, data)
		if res.StatusCode == http.StatusUnauthorized {
			c.logger.Warn("unauthorized, log in again", apiErr)
		}
		return nil, apiErr
	}
	if res.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return data, nil
}

func encode(payload *resource.Payload) (io.Reader, string, error) {
	if payload == nil {
		return nil, "", nil
	}
	if !payload.Multipart() {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", errors.Wrap(err, "encoding payload")
		}
		return bytes.NewReader(data), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range payload.Keys() {
		if err := w.WriteField(k, payload.FormValue(k)); err != nil {
			return nil, "", errors.Wrapf(err, "writing field %s", k)
		}
	}
	for _, f := range payload.Files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", errors.Wrapf(err, "writing file %s", f.Field)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", errors.Wrapf(err, "writing file %s", f.Field)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

// Login exchanges credentials for a token and starts the session with it.
func (c *Client) Login(ctx context.Context, username, password string) (session.Person, error) {
	payload := resource.NewPayload().Set("username", username).Set("password", password)
	body, err := c.Do(ctx, http.MethodPost, LoginPath, payload)
	if err != nil {
		return session.Person{}, err
	}

	token, err := jsonparser.GetString(body, "token")
	if err != nil || token == "" {
		return session.Person{}, errors.New("login: no token in response")
	}
	raw, _, _, err := jsonparser.Get(body, "user")
	if err != nil {
		return session.Person{}, errors.Wrap(err, "login: no user in response")
	}
	usr, err := DecodePerson(raw)
	if err != nil {
		return session.Person{}, err
	}
	if c.sess != nil {
		if err := c.sess.Start(token, usr); err != nil {
			return session.Person{}, err
		}
	}
	return usr, nil
}

// DecodePerson reads the login user object; "rol" is either {id, nombre} or a bare name.
func DecodePerson(raw []byte) (session.Person, error) {
	var wire struct {
		ID       resource.WireID `json:"id"`
		Username string          `json:"username"`
		Email    string          `json:"email"`
		Name     string          `json:"nombre"`
		Surname  string          `json:"apellido"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return session.Person{}, errors.Wrap(err, "decoding user")
	}
	usr := session.Person{
		ID:       wire.ID.Int(),
		Username: wire.Username,
		Email:    wire.Email,
		Name:     wire.Name,
		Surname:  wire.Surname,
	}
	if role, err := jsonparser.GetString(raw, "rol", "nombre"); err == nil {
		usr.Role = role
	} else if role, err := jsonparser.GetString(raw, "rol"); err == nil {
		usr.Role = role
	}
	return usr, nil
}
