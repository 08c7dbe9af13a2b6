package dblp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

func TestQueryClientFetchReturnsCSV(t *testing.T) {
	t.Parallel()

	const csvBody = "author,affiliation\nhttps://dblp.org/pid/12/345,MIT\n"

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "text/csv", r.Header.Get("Accept"))
		require.Equal(t, "application/sparql-query", r.Header.Get("Content-Type"))
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotQuery = string(body)

		_, _ = w.Write([]byte(csvBody))
	}))
	t.Cleanup(srv.Close)

	c := NewQueryClient(ClientConfig{Endpoint: srv.URL, UserAgent: "test-agent"})
	payload, err := c.Fetch(context.Background(), harvest.WorkItem{Key: "mit", Target: "  MIT "})
	require.NoError(t, err)
	require.Equal(t, csvBody, string(payload))
	require.Contains(t, gotQuery, "dblp:primaryAffiliation")
	require.Contains(t, gotQuery, `"mit"`, "university name is normalized into the filter")
}

func TestQueryClientFetchClassifiesStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "429 is rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				require.True(t, harvest.IsRateLimited(err))
			},
		},
		{
			name:   "500 is an http status error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var statusErr *harvest.HTTPStatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
			},
		},
		{
			name:   "404 is an http status error",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var statusErr *harvest.HTTPStatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			c := NewQueryClient(ClientConfig{Endpoint: srv.URL})
			_, err := c.Fetch(context.Background(), harvest.WorkItem{Key: "mit", Target: "mit"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestQueryClientFetchRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	}))
	t.Cleanup(srv.Close)

	c := NewQueryClient(ClientConfig{Endpoint: srv.URL})
	_, err := c.Fetch(context.Background(), harvest.WorkItem{Key: "mit", Target: "mit"})

	var malformed *harvest.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestFacultyQueryEmbedsNormalizedName(t *testing.T) {
	t.Parallel()

	q := FacultyQuery("  Carnegie Mellon ")
	require.Contains(t, q, `CONTAINS(LCASE(?affiliation), "carnegie mellon")`)
	require.Contains(t, q, "SELECT ?author ?affiliation")
}
