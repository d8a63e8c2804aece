// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package rets implements a client session for the RETS (Real Estate
// Transaction Standard) protocol. Dialing a session authenticates against a
// server's login URL and discovers the transaction endpoints the account is
// entitled to; the session then exposes the GetMetadata, Search, and
// GetObject transactions plus Logout.
//
// The protocol is strictly sequential request/response. A Session holds no
// mutable state after construction (the capability set is write-once), so a
// single session must not issue concurrent transactions, while independent
// sessions are safe to use from independent goroutines.
package rets

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"retsync/cli/internal/errors"
	"retsync/cli/internal/response"
	"retsync/cli/internal/transport"
)

// Defaults applied when Options leave the corresponding field empty.
const (
	DefaultVersion   = "RETS/1.7.2"
	DefaultUserAgent = "retsync/1.0"
)

// Options configures a session dial.
type Options struct {
	LoginURL string
	Username string
	Password string
	// AuthScheme is "basic" or "digest". Empty selects digest, which most
	// RETS servers require.
	AuthScheme string
	// Version is the RETS protocol version header value.
	Version string
	// UserAgent identifies this client to the server. Some MLSs whitelist
	// user agents, so it is caller-configurable.
	UserAgent string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Notify receives one-line progress notices (rate-limit backoff,
	// dropped replies). Nil discards them.
	Notify func(msg string)

	// Sleeper overrides the backoff clock. Nil uses real time.
	Sleeper Sleeper
}

// Capabilities is the set of transaction endpoints a server advertised in
// its login reply, resolved to absolute URLs. Endpoints the account lacks
// are empty. Keys the client does not recognize are preserved in Extra
// rather than dropped.
type Capabilities struct {
	Login       string
	Logout      string
	Search      string
	GetMetadata string
	GetObject   string
	Update      string
	PostObject  string

	// Metadata change markers, kept verbatim as the server sent them.
	MetadataVersion      string
	MetadataTimestamp    string
	MinMetadataTimestamp string

	Extra map[string]string
}

// Session is an authenticated connection to one RETS server.
type Session struct {
	baseURL string
	caps    Capabilities
	d       *dispatcher
}

// SearchRequest describes one Search transaction.
type SearchRequest struct {
	Resource string
	Class    string
	// Query is a DMQL2 filter expression.
	Query string
	// Select lists the fields to return for each record.
	Select []string
	// Format defaults to COMPACT-DECODED.
	Format string
	// Limit and Offset are sent only when positive; zero means the server
	// default, not zero records.
	Limit  int
	Offset int
}

// ObjectRequest describes one GetObject transaction.
type ObjectRequest struct {
	Resource string
	// Type is the object type, e.g. "Photo".
	Type string
	// ID is the system ID of the record the object belongs to.
	ID string
	// OrderNo selects which of the record's objects to fetch.
	OrderNo int
	// Path is the destination file when WriteToDisk is set.
	Path string
	// WriteToDisk persists the payload to Path and strips it from the
	// returned response, so large objects are not held twice.
	WriteToDisk bool
}

// Dial validates the options, performs the Login transaction, and returns a
// session holding the server's advertised capabilities.
//
// A login URL without a scheme and host, or an auth scheme other than
// basic/digest, fails with AuthFailed before any network traffic. A server
// that answers Login with a non-success reply fails with ServerRejected
// carrying the server's reply text.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.AuthScheme == "" {
		opts.AuthScheme = string(transport.AuthDigest)
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Sleeper == nil {
		opts.Sleeper = realSleeper{}
	}

	parsed, err := url.Parse(opts.LoginURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New(errors.AuthFailed,
			fmt.Sprintf("%q is not a valid RETS login URL", opts.LoginURL))
	}

	scheme := transport.AuthScheme(opts.AuthScheme)
	if scheme != transport.AuthBasic && scheme != transport.AuthDigest {
		return nil, errors.New(errors.AuthFailed, "auth scheme must be basic or digest")
	}

	client, err := transport.New(scheme, opts.Username, opts.Password, opts.Timeout)
	if err != nil {
		return nil, errors.Wrap(errors.AuthFailed, "building transport", err)
	}

	s := &Session{
		baseURL: parsed.Scheme + "://" + parsed.Host,
		d: &dispatcher{
			client: client,
			headers: map[string]string{
				"User-Agent":   opts.UserAgent,
				"RETS-Version": opts.Version,
			},
			sleeper: opts.Sleeper,
			notify:  opts.Notify,
		},
	}

	login, err := s.d.do(ctx, opts.LoginURL, nil)
	if err != nil {
		return nil, asRequestError(err)
	}
	if !login.Ok {
		return nil, errors.New(errors.ServerRejected, login.ReplyText)
	}

	s.caps = s.parseCapabilities(login.Rows)
	return s, nil
}

// Capabilities returns the endpoint set advertised at login.
func (s *Session) Capabilities() Capabilities { return s.caps }

// parseCapabilities maps the login reply's key=value option rows into the
// explicit capability set. Endpoint values may be server-relative paths and
// are completed against the login URL's base.
func (s *Session) parseCapabilities(rows []response.Row) Capabilities {
	caps := Capabilities{Extra: map[string]string{}}
	for _, row := range rows {
		for key, raw := range row {
			value, _ := raw.(string)
			switch key {
			case "Login":
				caps.Login = s.completeURL(value)
			case "Logout":
				caps.Logout = s.completeURL(value)
			case "Search":
				caps.Search = s.completeURL(value)
			case "GetMetadata":
				caps.GetMetadata = s.completeURL(value)
			case "GetObject":
				caps.GetObject = s.completeURL(value)
			case "Update":
				caps.Update = s.completeURL(value)
			case "PostObject":
				caps.PostObject = s.completeURL(value)
			case "MetadataVersion":
				caps.MetadataVersion = value
			case "MetadataTimestamp":
				caps.MetadataTimestamp = value
			case "MinMetadataTimestamp":
				caps.MinMetadataTimestamp = value
			default:
				caps.Extra[key] = value
			}
		}
	}
	return caps
}

// completeURL joins a server-relative endpoint path with the session base.
func (s *Session) completeURL(path string) string {
	if strings.Contains(path, "http") {
		return path
	}
	return s.baseURL + path
}

// GetResourceMetadata retrieves the resources available on the server.
func (s *Session) GetResourceMetadata(ctx context.Context) (*response.Response, error) {
	return s.metadata(ctx, "METADATA-RESOURCE", "0")
}

// GetClassMetadata retrieves the classes within a resource.
func (s *Session) GetClassMetadata(ctx context.Context, resource string) (*response.Response, error) {
	return s.metadata(ctx, "METADATA-CLASS", resource)
}

// GetTableMetadata retrieves the field table for one class of a resource.
func (s *Session) GetTableMetadata(ctx context.Context, resource, className string) (*response.Response, error) {
	return s.metadata(ctx, "METADATA-TABLE", resource+":"+className)
}

// GetLookupTypeMetadata retrieves the allowed values of a lookup field.
func (s *Session) GetLookupTypeMetadata(ctx context.Context, resource, lookupName string) (*response.Response, error) {
	return s.metadata(ctx, "METADATA-LOOKUP_TYPE", resource+":"+lookupName)
}

func (s *Session) metadata(ctx context.Context, metadataType, id string) (*response.Response, error) {
	if s.caps.GetMetadata == "" {
		return nil, errors.New(errors.TransactionUnavailable, "the transaction 'GetMetadata' is not available")
	}
	params := url.Values{
		"Type":   {metadataType},
		"ID":     {id},
		"Format": {"COMPACT"},
	}
	resp, err := s.d.do(ctx, s.caps.GetMetadata, params)
	if err != nil {
		return nil, asRequestError(err)
	}
	return resp, nil
}

// GetCount runs a count-only Search (the server skips row data) and
// returns the number of records the query matches.
func (s *Session) GetCount(ctx context.Context, resource, className, query string) (int, error) {
	params := searchParams(resource, className, query)
	params.Set("Count", "2")
	resp, err := s.search(ctx, params)
	if err != nil {
		return 0, err
	}
	return resp.RecordCount, nil
}

// GetData runs a full Search transaction and returns the decoded rows.
func (s *Session) GetData(ctx context.Context, req SearchRequest) (*response.Response, error) {
	params := searchParams(req.Resource, req.Class, req.Query)
	params.Set("Count", "1")
	params.Set("Select", strings.Join(req.Select, ","))
	if req.Format != "" {
		params.Set("FORMAT", req.Format)
	}
	if req.Limit > 0 {
		params.Set("Limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		params.Set("Offset", strconv.Itoa(req.Offset))
	}
	return s.search(ctx, params)
}

func searchParams(resource, className, query string) url.Values {
	return url.Values{
		"FORMAT":        {"COMPACT-DECODED"},
		"SearchType":    {resource},
		"Class":         {className},
		"StandardNames": {"0"},
		"QueryType":     {"DMQL2"},
		"Query":         {query},
	}
}

func (s *Session) search(ctx context.Context, params url.Values) (*response.Response, error) {
	if s.caps.Search == "" {
		return nil, errors.New(errors.TransactionUnavailable, "the transaction 'Search' is not available")
	}
	return s.d.doRetry(ctx, s.caps.Search, params, searchAttempts, rateLimitQueries)
}

// GetObject retrieves one binary object (e.g. a listing photo). With
// WriteToDisk set and a successful reply, the payload is written to
// req.Path and removed from the returned response.
func (s *Session) GetObject(ctx context.Context, req ObjectRequest) (*response.Response, error) {
	if s.caps.GetObject == "" {
		return nil, errors.New(errors.TransactionUnavailable, "the transaction 'GetObject' is not available")
	}

	params := url.Values{
		"Type":     {req.Type},
		"Resource": {req.Resource},
		"Id":       {fmt.Sprintf("%s:%d", req.ID, req.OrderNo)},
	}
	resp, err := s.d.doRetry(ctx, s.caps.GetObject, params, objectAttempts, rateLimitRequests)
	if err != nil {
		return nil, err
	}

	if req.WriteToDisk && resp.Ok {
		if err := writeObject(req.Path, resp.ObjectData); err != nil {
			return nil, errors.Wrap(errors.RequestFailed,
				fmt.Sprintf("writing object to %s", req.Path), err)
		}
		resp.ObjectData = nil
	}
	return resp, nil
}

// writeObject persists an object payload, overwriting any existing file.
// The handle is closed on every exit path.
func writeObject(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Logout ends the server-side session when a Logout endpoint was
// advertised. Failures are returned but non-fatal by convention: the
// session is being torn down and the server will expire it regardless.
func (s *Session) Logout(ctx context.Context) (*response.Response, error) {
	if s.caps.Logout == "" {
		return nil, nil
	}
	resp, err := s.d.do(ctx, s.caps.Logout, nil)
	if err != nil {
		return nil, asRequestError(err)
	}
	return resp, nil
}
