// Package moodle is a typed client for the Moodle web-service API.
//
// Two endpoints are involved:
//
//	POST {base}/login/token.php              → exchanges credentials for a token
//	GET  {base}/webservice/rest/server.php   → every other call, selected by wsfunction
//
// Web-service calls carry the token as the wstoken query parameter and ask for
// JSON with moodlewsrestformat=json. Moodle reports most failures with HTTP 200
// and an exception envelope, so the client checks the body as well as the status.
package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	tokenPath   = "login/token.php"
	restPath    = "webservice/rest/server.php"
	maxBodySize = 10 << 20

	fnSiteInfo       = "core_webservice_get_site_info"
	fnUserCourses    = "core_enrol_get_users_courses"
	fnCalendarEvents = "core_calendar_get_action_events_by_timesort"
	fnCourseContents = "core_course_get_contents"
	fnUsersByField   = "core_user_get_users_by_field"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Moodle site root, e.g. "https://moodle.example.edu/".
	BaseURL string
	// Service is the external service the token is issued for.
	Service string
	// Timeout bounds every HTTP round trip.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig targets the mobile app service that student accounts can use.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Service:           "moodle_mobile_app",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// StatusError is returned when Moodle answers with a non-2xx status.
type StatusError struct {
	Function string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("moodle: %s returned status %d", e.Function, e.Code)
}

// Error is a Moodle exception envelope.
type Error struct {
	Function  string
	Exception string
	Code      string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("moodle: %s failed: %s (%s)", e.Function, e.Message, e.Code)
}

// IsInvalidToken reports whether err means the token is no longer accepted.
func IsInvalidToken(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "invalidtoken"
}

// Client talks to a single Moodle site.
type Client struct {
	base    *url.URL
	service string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client. If httpClient is nil a client with cfg.Timeout is used.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("moodle: base URL is required")
	}
	raw := cfg.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("moodle: parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("moodle: base URL must be http or https, got %q", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	service := cfg.Service
	if service == "" {
		service = "moodle_mobile_app"
	}

	return &Client{
		base:    base,
		service: service,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// GetToken exchanges a username and password for a web-service token.
//
// A 200 response is decoded even when it carries an error instead of a token;
// the caller decides how to report it.
func (c *Client) GetToken(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
		"service":  {c.service},
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: tokenPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("moodle: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "token")
	if err != nil {
		return nil, err
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("moodle: decoding token response: %w", err)
	}
	return &tr, nil
}

// GetSiteInfo returns the site and current-user information for token.
func (c *Client) GetSiteInfo(ctx context.Context, token string) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.call(ctx, token, fnSiteInfo, nil, &info); err != nil {
		return nil, err
	}
	if info.UserID == 0 {
		return nil, fmt.Errorf("moodle: %s returned no user id", fnSiteInfo)
	}
	return &info, nil
}

// GetUserCourses lists the courses userID is enrolled in.
func (c *Client) GetUserCourses(ctx context.Context, token string, userID int64) ([]RawCourse, error) {
	params := url.Values{"userid": {strconv.FormatInt(userID, 10)}}

	var courses []RawCourse
	if err := c.call(ctx, token, fnUserCourses, params, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCalendarEvents returns action events sorted by time within [from, to].
func (c *Client) GetCalendarEvents(ctx context.Context, token string, from, to time.Time, limit int) (*CalendarEvents, error) {
	params := url.Values{
		"timesortfrom": {strconv.FormatInt(from.Unix(), 10)},
		"timesortto":   {strconv.FormatInt(to.Unix(), 10)},
		"limitnum":     {strconv.Itoa(limit)},
	}

	var events CalendarEvents
	if err := c.call(ctx, token, fnCalendarEvents, params, &events); err != nil {
		return nil, err
	}
	return &events, nil
}

// GetCourseContents returns the sections and modules of a course.
func (c *Client) GetCourseContents(ctx context.Context, token string, courseID int64) ([]RawSection, error) {
	params := url.Values{"courseid": {strconv.FormatInt(courseID, 10)}}

	var sections []RawSection
	if err := c.call(ctx, token, fnCourseContents, params, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// GetUserProfile looks a user up by id.
func (c *Client) GetUserProfile(ctx context.Context, token string, userID int64) ([]RawProfile, error) {
	params := url.Values{
		"field":     {"id"},
		"values[0]": {strconv.FormatInt(userID, 10)},
	}

	var profiles []RawProfile
	if err := c.call(ctx, token, fnUsersByField, params, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// call performs one web-service function call and decodes the result into out.
func (c *Client) call(ctx context.Context, token, function string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("wstoken", token)
	q.Set("wsfunction", function)
	q.Set("moodlewsrestformat", "json")

	endpoint := c.base.ResolveReference(&url.URL{Path: restPath})
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("moodle: building %s request: %w", function, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, function)
	if err != nil {
		return err
	}

	if ex := parseException(body); ex != nil {
		return &Error{
			Function:  function,
			Exception: ex.Exception,
			Code:      ex.ErrorCode,
			Message:   ex.Message,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("moodle: decoding %s response: %w", function, err)
	}
	return nil
}

// do sends req after waiting for the limiter and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, function string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("moodle: waiting to call %s: %w", function, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moodle: calling %s: %w", function, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("moodle call",
		slog.String("function", function),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Function: function, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("moodle: reading %s response: %w", function, err)
	}
	return body, nil
}

func parseException(body []byte) *exception {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var ex exception
	if err := json.Unmarshal(trimmed, &ex); err != nil {
		return nil
	}
	if ex.Exception == "" && ex.ErrorCode == "" {
		return nil
	}
	return &ex
}
