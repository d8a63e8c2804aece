// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package transport provides the authenticated HTTP client a RETS session
// sends its transactions through. Every session owns its own client, with
// its own credential binding and cookie jar, so independent sessions never
// interfere with each other. The package also classifies transport failures
// into transient conditions (timeout, truncated read) that a dispatcher may
// retry, and hard failures (HTTP error status, unresolvable URL) that it
// must not.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/icholy/digest"
)

// AuthScheme selects the HTTP authentication handshake for a session.
type AuthScheme string

const (
	AuthBasic  AuthScheme = "basic"
	AuthDigest AuthScheme = "digest"
)

// DefaultTimeout bounds each request when the caller does not configure one.
const DefaultTimeout = 30 * time.Second

// Reply is the raw result of one HTTP exchange.
type Reply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// TransientError marks a failure that produced no usable reply for this
// attempt but may succeed on retry: a request timeout or a read that ended
// before the body was complete.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or its chain) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// StatusError reports an HTTP-level error status. These abort immediately;
// a 4xx/5xx from a RETS server is not fixed by retrying.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("the RETS request caused HTTP error %d: %s", e.StatusCode, e.Status)
}

// Client is a session-scoped HTTP client with authentication and cookies.
// Many RETS servers issue a session cookie on login and require it on every
// subsequent transaction, so the jar is mandatory.
type Client struct {
	http *http.Client
}

// New builds a Client with the credential pair bound for the given scheme.
// The credentials are attached ahead of the first request because the
// login transaction itself is authenticated.
func New(scheme AuthScheme, username, password string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rt http.RoundTripper
	switch scheme {
	case AuthDigest:
		rt = &digest.Transport{Username: username, Password: password}
	case AuthBasic:
		rt = &basicAuth{username: username, password: password}
	default:
		return nil, fmt.Errorf("unsupported auth scheme %q", scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Transport: rt,
			Jar:       jar,
			Timeout:   timeout,
		},
	}, nil
}

// Get performs one HTTP GET and returns the raw reply.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TransientError{Reason: "the RETS request has timed out", Err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || isTimeout(err) {
			return nil, &TransientError{Reason: "incomplete read during download", Err: err}
		}
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return &Reply{
		StatusCode:  resp.StatusCode,
		ContentType: normalizeContentType(resp.Header.Get("Content-Type")),
		Body:        body,
	}, nil
}

// normalizeContentType lowercases a Content-Type header and strips spaces,
// so "Text/XML; charset=UTF-8" and "text/xml;charset=utf-8" compare equal.
func normalizeContentType(ct string) string {
	return strings.ReplaceAll(strings.ToLower(ct), " ", "")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// basicAuth attaches HTTP Basic credentials to every request.
type basicAuth struct {
	username string
	password string
}

func (b *basicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.SetBasicAuth(b.username, b.password)
	return http.DefaultTransport.RoundTrip(cloned)
}
