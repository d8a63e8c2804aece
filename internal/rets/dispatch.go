// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rets

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"

	"retsync/cli/internal/errors"
	"retsync/cli/internal/response"
	"retsync/cli/internal/transport"
)

const (
	contentTypeXML  = "text/xml;charset=utf-8"
	contentTypeJPEG = "image/jpeg"

	// backoffInterval is how long the dispatcher pauses after the server
	// rejects a transaction for having too many outstanding requests.
	backoffInterval = 60 * time.Second

	// searchAttempts and objectAttempts bound the rate-limit retry loops.
	searchAttempts = 10
	objectAttempts = 3

	// Exact rejection texts a rate-limited server sends. Anything else,
	// successful or not, terminates the retry loop immediately.
	rateLimitQueries  = "Too many outstanding queries"
	rateLimitRequests = "Too many outstanding requests"
)

// Sleeper is the clock used for retry backoff. Tests substitute a fake so
// the retry state machine runs without real delays.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// dispatcher builds, sends, and decodes one transaction request at a time.
type dispatcher struct {
	client  *transport.Client
	headers map[string]string
	sleeper Sleeper
	notify  func(msg string)
}

// do performs a single transaction attempt against endpoint with the given
// query parameters and classifies the raw reply by content type.
//
// Transient transport failures (timeout, truncated read) are returned
// unwrapped so retry loops can recognize them; hard transport failures come
// back as RequestFailed; malformed XML in an otherwise delivered reply
// propagates as a plain parse error, which is never retried.
func (d *dispatcher) do(ctx context.Context, endpoint string, params url.Values) (*response.Response, error) {
	full := endpoint
	if len(params) > 0 {
		full = endpoint + "?" + params.Encode()
	}

	reply, err := d.client.Get(ctx, full, d.headers)
	if err != nil {
		if transport.IsTransient(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.RequestFailed, "the RETS request could not be sent", err)
	}

	switch reply.ContentType {
	case contentTypeXML:
		root, perr := response.ParseDocument(bytes.NewReader(reply.Body))
		if perr != nil {
			return nil, fmt.Errorf("parse RETS reply: %w", perr)
		}
		return response.Decode(root), nil
	case contentTypeJPEG:
		return &response.Response{
			Ok:         true,
			ReplyCode:  "0",
			ReplyText:  "Operation Success.",
			ObjectData: reply.Body,
		}, nil
	default:
		// No decoder for this content type; the attempt produced nothing
		// usable, which a retry loop treats the same as a dropped reply.
		return nil, &transport.TransientError{
			Reason: fmt.Sprintf("unhandled reply content type %q", reply.ContentType),
		}
	}
}

// doRetry runs the bounded rate-limit retry loop around do. An attempt
// counts when it yields no usable reply (transient failure) or when the
// server answered with exactly rateLimitText, in which case the dispatcher
// sleeps one backoff interval first. Any other reply is returned as-is,
// even when it reports a failure for some other reason. Exhausting every
// attempt raises RequestFailed.
func (d *dispatcher) doRetry(ctx context.Context, endpoint string, params url.Values, attempts int, rateLimitText string) (*response.Response, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.RequestFailed, "the RETS request was canceled", err)
		}

		resp, err := d.do(ctx, endpoint, params)
		if err != nil {
			if transport.IsTransient(err) {
				d.notifyf("%v", err)
				continue
			}
			return nil, err
		}

		if resp.ReplyText == rateLimitText {
			d.notifyf("Rate limit exceeded. Pausing for %d seconds...", int(backoffInterval.Seconds()))
			d.sleeper.Sleep(backoffInterval)
			continue
		}
		return resp, nil
	}
	return nil, errors.New(errors.RequestFailed, "the RETS request could not be completed")
}

func (d *dispatcher) notifyf(format string, args ...any) {
	if d.notify != nil {
		d.notify(fmt.Sprintf(format, args...))
	}
}

// asRequestError converts leftover transient errors from single-attempt
// transactions (Login, Logout, GetMetadata) into RequestFailed.
func asRequestError(err error) error {
	var te *transport.TransientError
	if stderrors.As(err, &te) {
		return errors.Wrap(errors.RequestFailed, "the RETS request could not be completed", err)
	}
	return err
}
