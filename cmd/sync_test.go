// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"retsync/cli/internal/response"
	"retsync/cli/internal/rets"
	"retsync/cli/internal/syncui"
)

func TestNextOffset(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		received int
		want     int
	}{
		{"first page uses the server default of 1", 0, 500, 501},
		{"explicit offset advances past the page", 501, 500, 1001},
		{"single record page", 1, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextOffset(tt.current, tt.received); got != tt.want {
				t.Errorf("nextOffset(%d, %d) = %d, want %d", tt.current, tt.received, got, tt.want)
			}
		})
	}
}

const syncLoginBody = `<RETS ReplyCode="0" ReplyText="Operation Successful">
<RETS-RESPONSE>
Login=/rets/Login
Logout=/rets/Logout
Search=/rets/Search
</RETS-RESPONSE>
</RETS>`

const syncPageOne = "<RETS ReplyCode=\"0\" ReplyText=\"Operation Successful\">\n" +
	"<COUNT Records=\"4\"/>\n" +
	"<COLUMNS>\tListingID\tCity\t</COLUMNS>\n" +
	"<DATA>\t1\tAustin\t</DATA>\n" +
	"<DATA>\t2\tDallas\t</DATA>\n" +
	"<MAXROWS/>\n" +
	"</RETS>"

const syncPageTwo = "<RETS ReplyCode=\"0\" ReplyText=\"Operation Successful\">\n" +
	"<COUNT Records=\"4\"/>\n" +
	"<COLUMNS>\tListingID\tCity\t</COLUMNS>\n" +
	"<DATA>\t3\tHouston\t</DATA>\n" +
	"<DATA>\t4\tWaco\t</DATA>\n" +
	"</RETS>"

// captureLoader stands in for the Postgres loader and records what the
// paging loop asks of it.
type captureLoader struct {
	ensured   int
	truncated int
	pages     [][]response.Row
}

func (c *captureLoader) EnsureTable(ctx context.Context, table string, rows []response.Row) error {
	c.ensured++
	return nil
}

func (c *captureLoader) InsertRows(ctx context.Context, table string, rows []response.Row) (int64, error) {
	c.pages = append(c.pages, rows)
	return int64(len(rows)), nil
}

func (c *captureLoader) TruncateTable(ctx context.Context, table string) error {
	c.truncated++
	return nil
}

// The first page goes out without an Offset (the server defaults to record
// 1) and the second must start at the record after the last one received.
// Offset is 1-based, so after two records the next page starts at 3; resuming
// at 2 would fetch record two twice.
func TestSyncClassAdvancesOneBasedOffset(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		if r.URL.Path == "/rets/Login" {
			_, _ = w.Write([]byte(syncLoginBody))
			return
		}
		offsets = append(offsets, r.URL.Query().Get("Offset"))
		if len(offsets) == 1 {
			_, _ = w.Write([]byte(syncPageOne))
			return
		}
		_, _ = w.Write([]byte(syncPageTwo))
	}))
	defer srv.Close()

	sess, err := rets.Dial(context.Background(), rets.Options{
		LoginURL:   srv.URL + "/rets/Login",
		Username:   "joe",
		Password:   "joe123",
		AuthScheme: "basic",
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	loader := &captureLoader{}
	render := syncui.NewRenderer(syncui.NewProgressState())
	req := rets.SearchRequest{
		Resource: "Property",
		Class:    "RES",
		Query:    "(ListingStatus=|A)",
		Limit:    2,
	}

	written, err := syncClass(context.Background(), sess, loader, req, "property_res", false, render, "Property:RES")
	if err != nil {
		t.Fatalf("syncClass: %v", err)
	}

	if written != 4 {
		t.Errorf("written = %d, want 4", written)
	}
	if len(offsets) != 2 {
		t.Fatalf("server saw %d Search requests, want 2", len(offsets))
	}
	if offsets[0] != "" {
		t.Errorf("first page sent Offset=%q, want omitted", offsets[0])
	}
	if offsets[1] != "3" {
		t.Errorf("second page sent Offset=%q, want \"3\"", offsets[1])
	}
	if loader.ensured != 1 {
		t.Errorf("EnsureTable called %d times, want 1", loader.ensured)
	}
	if loader.truncated != 0 {
		t.Errorf("TruncateTable called %d times, want 0", loader.truncated)
	}
}
