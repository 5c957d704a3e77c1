package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers PutObject and ListObjectsV2 for a single path-style bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch {
	case req.Method == http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = string(body)
		return response(http.StatusOK, ""), nil
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				b.WriteString("<Contents><Key>" + k + "</Key><Size>1</Size></Contents>")
			}
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, b.String()), nil
	}
	return response(http.StatusNotImplemented, ""), nil
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]string)}
	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "culverts",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Store_PutList(t *testing.T) {
	s, fake := newFakeS3Store(t)
	ctx := context.Background()
	assert.Equal(t, DriverS3, s.Driver())

	require.NoError(t, s.Put(ctx, "lake/run/model_output.csv", strings.NewReader("BarrierID\nlake_1\n"), "text/csv"))
	require.NoError(t, s.Put(ctx, "creek/run/model_output.csv", strings.NewReader("BarrierID\n"), "text/csv"))

	require.Contains(t, fake.objects, "lake/run/model_output.csv")
	assert.Contains(t, fake.objects["lake/run/model_output.csv"], "lake_1")

	keys, err := s.List(ctx, "lake/")
	require.NoError(t, err)
	assert.Equal(t, []string{"lake/run/model_output.csv"}, keys)
}

func TestS3Store_RejectsBadKey(t *testing.T) {
	s, fake := newFakeS3Store(t)
	err := s.Put(context.Background(), "/abs", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Empty(t, fake.objects)
}
