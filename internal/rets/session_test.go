// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"retsync/cli/internal/errors"
)

// fakeSleeper records backoff sleeps instead of waiting.
type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }

const loginBody = `<RETS ReplyCode="0" ReplyText="Operation Successful">
<RETS-RESPONSE>
MemberName=Joe Agent
User=ABC123,NULL,NULL,ABC123
MetadataVersion=1.1.5
MetadataTimestamp=2018-06-01T12:00:00Z
Login=/rets/Login
Logout=/rets/Logout
Search=/rets/Search
GetMetadata=/rets/GetMetadata
GetObject=http://media.example.com/GetObject
</RETS-RESPONSE>
</RETS>`

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// newTestServer serves loginBody on /rets/Login and delegates everything
// else to handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rets/Login" {
			writeXML(w, loginBody)
			return
		}
		if handler == nil {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTest(t *testing.T, srv *httptest.Server, sleeper Sleeper) *Session {
	t.Helper()
	s, err := Dial(context.Background(), Options{
		LoginURL:   srv.URL + "/rets/Login",
		Username:   "joe",
		Password:   "joe123",
		AuthScheme: "basic",
		Sleeper:    sleeper,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return s
}

func TestDialRejectsBadLoginURL(t *testing.T) {
	for _, loginURL := range []string{"", "rets.com", "/rets/Login"} {
		_, err := Dial(context.Background(), Options{
			LoginURL:   loginURL,
			Username:   "joe",
			Password:   "joe123",
			AuthScheme: "basic",
		})
		if !errors.HasKind(err, errors.AuthFailed) {
			t.Errorf("Dial(%q) error = %v, want AuthFailed", loginURL, err)
		}
	}
}

func TestDialRejectsUnknownAuthScheme(t *testing.T) {
	_, err := Dial(context.Background(), Options{
		LoginURL:   "https://rets.somemls.com/rets/Login",
		Username:   "joe",
		Password:   "joe123",
		AuthScheme: "oauth",
	})
	if !errors.HasKind(err, errors.AuthFailed) {
		t.Errorf("Dial error = %v, want AuthFailed", err)
	}
}

func TestDialParsesCapabilities(t *testing.T) {
	srv := newTestServer(t, nil)
	s := dialTest(t, srv, nil)

	caps := s.Capabilities()
	if caps.Search != srv.URL+"/rets/Search" {
		t.Errorf("Search = %q, want completed against base URL", caps.Search)
	}
	if caps.GetObject != "http://media.example.com/GetObject" {
		t.Errorf("GetObject = %q, want absolute URL kept as-is", caps.GetObject)
	}
	if caps.Update != "" {
		t.Errorf("Update = %q, want empty (not advertised)", caps.Update)
	}
	if caps.MetadataVersion != "1.1.5" {
		t.Errorf("MetadataVersion = %q", caps.MetadataVersion)
	}
	if caps.Extra["MemberName"] != "Joe Agent" {
		t.Errorf("Extra[MemberName] = %q, want unrecognized keys preserved", caps.Extra["MemberName"])
	}
}

func TestDialServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, `<RETS ReplyCode="20036" ReplyText="Invalid credentials"></RETS>`)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Options{
		LoginURL:   srv.URL + "/rets/Login",
		Username:   "joe",
		Password:   "wrong",
		AuthScheme: "basic",
	})
	if !errors.HasKind(err, errors.ServerRejected) {
		t.Fatalf("Dial error = %v, want ServerRejected", err)
	}
}

func TestMetadataRequestShape(t *testing.T) {
	var gotQuery map[string]string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Successful">
<METADATA-TABLE Version="1.1.5" Date="2018-06-01T12:00:00">
<COLUMNS>`+"\tSystemName\tLongName\t"+`</COLUMNS>
<DATA>`+"\tListPrice\tList Price\t"+`</DATA>
</METADATA-TABLE>
</RETS>`)
	})
	s := dialTest(t, srv, nil)

	resp, err := s.GetTableMetadata(context.Background(), "Property", "Listing")
	if err != nil {
		t.Fatalf("GetTableMetadata: %v", err)
	}
	if gotQuery["Type"] != "METADATA-TABLE" || gotQuery["ID"] != "Property:Listing" || gotQuery["Format"] != "COMPACT" {
		t.Errorf("query = %v, want METADATA-TABLE Property:Listing COMPACT", gotQuery)
	}
	if len(resp.Rows) != 1 || resp.Rows[0]["SystemName"] != "ListPrice" {
		t.Errorf("Rows = %#v, want one decoded metadata row", resp.Rows)
	}
}

func TestMetadataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Successful">
<RETS-RESPONSE>
Search=/rets/Search
</RETS-RESPONSE>
</RETS>`)
	}))
	defer srv.Close()

	s, err := Dial(context.Background(), Options{
		LoginURL:   srv.URL + "/rets/Login",
		Username:   "joe",
		Password:   "joe123",
		AuthScheme: "basic",
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	_, err = s.GetResourceMetadata(context.Background())
	if !errors.HasKind(err, errors.TransactionUnavailable) {
		t.Fatalf("error = %v, want TransactionUnavailable", err)
	}
}

func TestGetCount(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Count") != "2" {
			t.Errorf("Count = %q, want 2 (count-only)", r.URL.Query().Get("Count"))
		}
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Success.">
<COUNT Records="1481"/>
</RETS>`)
	})
	s := dialTest(t, srv, nil)

	n, err := s.GetCount(context.Background(), "Property", "Listing", "(Status=Active)")
	if err != nil {
		t.Fatalf("GetCount: %v", err)
	}
	if n != 1481 {
		t.Errorf("GetCount = %d, want 1481", n)
	}
}

func TestGetDataRequestShape(t *testing.T) {
	var q map[string][]string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Success.">
<COUNT Records="1"/>
<COLUMNS>`+"\tListPrice\t"+`</COLUMNS>
<DATA>`+"\t325000\t"+`</DATA>
</RETS>`)
	})
	s := dialTest(t, srv, nil)

	resp, err := s.GetData(context.Background(), SearchRequest{
		Resource: "Property",
		Class:    "Listing",
		Query:    "(Status=Active)",
		Select:   []string{"ListPrice", "City"},
		Limit:    50,
	})
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}

	want := map[string]string{
		"QueryType":  "DMQL2",
		"SearchType": "Property",
		"Class":      "Listing",
		"Select":     "ListPrice,City",
		"Count":      "1",
		"Limit":      "50",
		"FORMAT":     "COMPACT-DECODED",
	}
	for k, v := range want {
		if got := first(q[k]); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
	if _, sent := q["Offset"]; sent {
		t.Error("Offset sent despite being zero (server default)")
	}
	if resp.Rows[0]["ListPrice"] != int64(325000) {
		t.Errorf("ListPrice = %#v", resp.Rows[0]["ListPrice"])
	}
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func TestGetObjectInline(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("Id"); got != "12345:0" {
			t.Errorf("Id = %q, want 12345:0", got)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	})
	s := dialTest(t, srv, nil)
	s.caps.GetObject = srv.URL + "/rets/GetObject"

	resp, err := s.GetObject(context.Background(), ObjectRequest{
		Resource: "Property",
		Type:     "Photo",
		ID:       "12345",
	})
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if !resp.Ok || string(resp.ObjectData) != string(payload) {
		t.Errorf("resp = %+v, want inline payload", resp)
	}
}

func TestGetObjectWriteToDisk(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	})
	s := dialTest(t, srv, nil)
	s.caps.GetObject = srv.URL + "/rets/GetObject"

	dest := filepath.Join(t.TempDir(), "photo.jpg")
	resp, err := s.GetObject(context.Background(), ObjectRequest{
		Resource:    "Property",
		Type:        "Photo",
		ID:          "12345",
		OrderNo:     2,
		Path:        dest,
		WriteToDisk: true,
	})
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if resp.ObjectData != nil {
		t.Error("ObjectData not stripped after writing to disk")
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading %s: %v", dest, err)
	}
	if string(data) != string(payload) {
		t.Errorf("file contents = %x, want %x", data, payload)
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rets/Logout" {
			t.Errorf("path = %q, want /rets/Logout", r.URL.Path)
		}
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Successful">
<RETS-RESPONSE>
ConnectTime=42
</RETS-RESPONSE>
</RETS>`)
	})
	s := dialTest(t, srv, nil)

	resp, err := s.Logout(context.Background())
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !resp.Ok {
		t.Errorf("Logout resp = %+v, want ok", resp)
	}
}

func TestSearchRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			writeXML(w, `<RETS ReplyCode="20210" ReplyText="Too many outstanding queries"></RETS>`)
			return
		}
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Success.">
<COUNT Records="1"/>
<COLUMNS>`+"\tCity\t"+`</COLUMNS>
<DATA>`+"\tProvidence\t"+`</DATA>
</RETS>`)
	})
	sleeper := &fakeSleeper{}
	s := dialTest(t, srv, sleeper)

	resp, err := s.GetData(context.Background(), SearchRequest{
		Resource: "Property",
		Class:    "Listing",
		Query:    "(Status=Active)",
		Select:   []string{"City"},
	})
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(sleeper.slept) != 2 || sleeper.slept[0] != 60*time.Second {
		t.Errorf("slept = %v, want two 60s pauses", sleeper.slept)
	}
	if resp.Rows[0]["City"] != "Providence" {
		t.Errorf("City = %#v", resp.Rows[0]["City"])
	}
}

func TestSearchStopsOnOtherRejection(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeXML(w, `<RETS ReplyCode="20203" ReplyText="Access denied to this class"></RETS>`)
	})
	sleeper := &fakeSleeper{}
	s := dialTest(t, srv, sleeper)

	resp, err := s.GetData(context.Background(), SearchRequest{
		Resource: "Property",
		Class:    "Listing",
		Query:    "(Status=Active)",
	})
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-rate-limit rejection terminates the loop)", attempts)
	}
	if resp.Ok {
		t.Error("Ok = true for a rejected search")
	}
	if resp.ReplyCode != "20203" {
		t.Errorf("ReplyCode = %q, want the latest reply returned as-is", resp.ReplyCode)
	}
	if len(sleeper.slept) != 0 {
		t.Errorf("slept = %v, want no backoff", sleeper.slept)
	}
}

func TestSearchRetryExhaustion(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeXML(w, `<RETS ReplyCode="20210" ReplyText="Too many outstanding queries"></RETS>`)
	})
	sleeper := &fakeSleeper{}
	s := dialTest(t, srv, sleeper)

	_, err := s.GetData(context.Background(), SearchRequest{
		Resource: "Property",
		Class:    "Listing",
		Query:    "(Status=Active)",
	})
	if !errors.HasKind(err, errors.RequestFailed) {
		t.Fatalf("error = %v, want RequestFailed after exhausting retries", err)
	}
	if attempts != searchAttempts {
		t.Errorf("attempts = %d, want %d", attempts, searchAttempts)
	}
	if len(sleeper.slept) != searchAttempts {
		t.Errorf("backoffs = %d, want %d", len(sleeper.slept), searchAttempts)
	}
}

func TestObjectRetryBudgetIsSmaller(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeXML(w, `<RETS ReplyCode="20210" ReplyText="Too many outstanding requests"></RETS>`)
	})
	sleeper := &fakeSleeper{}
	s := dialTest(t, srv, sleeper)
	s.caps.GetObject = srv.URL + "/rets/GetObject"

	_, err := s.GetObject(context.Background(), ObjectRequest{Resource: "Property", Type: "Photo", ID: "1"})
	if !errors.HasKind(err, errors.RequestFailed) {
		t.Fatalf("error = %v, want RequestFailed", err)
	}
	if attempts != objectAttempts {
		t.Errorf("attempts = %d, want %d", attempts, objectAttempts)
	}
}

func TestSearchMalformedReplyNotRetried(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(`<RETS ReplyCode="0"`))
	})
	s := dialTest(t, srv, &fakeSleeper{})

	_, err := s.GetData(context.Background(), SearchRequest{
		Resource: "Property",
		Class:    "Listing",
		Query:    "(Status=Active)",
	})
	if err == nil {
		t.Fatal("GetData succeeded on malformed XML")
	}
	if errors.HasKind(err, errors.RequestFailed) {
		t.Errorf("error = %v, want a plain parse failure, not RequestFailed", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (parse failures are structural)", attempts)
	}
}

func TestBackoffNotice(t *testing.T) {
	attempts := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			writeXML(w, `<RETS ReplyCode="20210" ReplyText="Too many outstanding queries"></RETS>`)
			return
		}
		writeXML(w, `<RETS ReplyCode="0" ReplyText="Operation Success."></RETS>`)
	})

	var notices []string
	s, err := Dial(context.Background(), Options{
		LoginURL:   srv.URL + "/rets/Login",
		Username:   "joe",
		Password:   "joe123",
		AuthScheme: "basic",
		Sleeper:    &fakeSleeper{},
		Notify:     func(msg string) { notices = append(notices, msg) },
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if _, err := s.GetData(context.Background(), SearchRequest{Resource: "Property", Class: "Listing", Query: "(Status=Active)"}); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("notices = %v, want exactly one backoff notice", notices)
	}
	if want := fmt.Sprintf("Rate limit exceeded. Pausing for %d seconds...", 60); notices[0] != want {
		t.Errorf("notice = %q, want %q", notices[0], want)
	}
}
