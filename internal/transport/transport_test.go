// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetBasicAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "Text/XML; charset=UTF-8")
		_, _ = w.Write([]byte(`<RETS ReplyCode="0" ReplyText="Operation Successful"></RETS>`))
	}))
	defer srv.Close()

	c, err := New(AuthBasic, "joe", "joe123", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	reply, err := c.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "retsync/1.0"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("joe:joe123"))
	if gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
	if reply.ContentType != "text/xml;charset=utf-8" {
		t.Errorf("ContentType = %q, want normalized text/xml;charset=utf-8", reply.ContentType)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(AuthBasic, "joe", "joe123", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Get(context.Background(), srv.URL, nil)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Get error = %v, want StatusError", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", se.StatusCode)
	}
	if IsTransient(err) {
		t.Error("status error must not be transient")
	}
}

func TestGetTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(AuthBasic, "joe", "joe123", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("Get succeeded, want timeout")
	}
	if !IsTransient(err) {
		t.Errorf("timeout error = %v, want transient", err)
	}
}

func TestGetTruncatedReadIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	c, err := New(AuthBasic, "joe", "joe123", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("Get succeeded, want truncated read error")
	}
	if !IsTransient(err) {
		t.Errorf("truncated read error = %v, want transient", err)
	}
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	if _, err := New("oauth", "joe", "joe123", 0); err == nil {
		t.Fatal("New accepted an unsupported auth scheme")
	}
}
