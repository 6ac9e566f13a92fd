package hmacauth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(secret string, ts time.Time, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams", strings.NewReader(body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set(HeaderSignature, Sign(secret, http.MethodPost, "/api/v1/streams", ts.Unix(), []byte(body)))
	return req
}

func TestMiddlewareAllowsValidSignature(t *testing.T) {
	body := `{"recipient":"X","rate":"1000"}`
	now := time.Unix(1_700_000_000, 0)
	v := &Verifier{Secret: "secret", MaxSkew: time.Minute, Now: func() time.Time { return now }}

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	v.Middleware(handler).ServeHTTP(rec, signedRequest("secret", now, body))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, body, seen)
}

func TestMiddlewareRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := &Verifier{Secret: "secret", MaxSkew: time.Minute, Now: func() time.Time { return now }}

	tests := []struct {
		name string
		req  func() *http.Request
		want error
	}{
		{
			name: "wrong secret",
			req:  func() *http.Request { return signedRequest("other", now, "{}") },
			want: ErrInvalidSignature,
		},
		{
			name: "stale",
			req:  func() *http.Request { return signedRequest("secret", now.Add(-2*time.Minute), "{}") },
			want: ErrStaleTimestamp,
		},
		{
			name: "future",
			req:  func() *http.Request { return signedRequest("secret", now.Add(2*time.Minute), "{}") },
			want: ErrStaleTimestamp,
		},
		{
			name: "missing signature",
			req: func() *http.Request {
				r := signedRequest("secret", now, "{}")
				r.Header.Del(HeaderSignature)
				return r
			},
			want: ErrMissingSignature,
		},
		{
			name: "bad timestamp",
			req: func() *http.Request {
				r := signedRequest("secret", now, "{}")
				r.Header.Set(HeaderTimestamp, "yesterday")
				return r
			},
			want: ErrMissingTimestamp,
		},
		{
			name: "tampered body",
			req: func() *http.Request {
				r := signedRequest("secret", now, `{"rate":"1"}`)
				r.Body = io.NopCloser(strings.NewReader(`{"rate":"9"}`))
				return r
			},
			want: ErrInvalidSignature,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, v.Verify(tc.req()), tc.want)

			rec := httptest.NewRecorder()
			v.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not be called")
			})).ServeHTTP(rec, tc.req())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want.Error())
		})
	}
}

func TestDisabledVerifierPassesThrough(t *testing.T) {
	var v *Verifier
	assert.False(t, v.Enabled())
	require.NoError(t, v.Verify(httptest.NewRequest(http.MethodPost, "/", nil)))

	v = &Verifier{}
	require.NoError(t, v.Verify(httptest.NewRequest(http.MethodPost, "/", nil)))
}
