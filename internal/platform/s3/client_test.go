package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       DefaultRegion,
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
		HTTPClient: &http.Client{
			Transport: &http.Transport{},
		},
	})

	return &Client{s3: client}
}

// xmlResponse is a helper to write S3-style XML responses.
func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
</Error>`

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "anonymous", cfg: Config{}},
		{name: "mirror with credentials", cfg: Config{Endpoint: "https://assets.example.com", Region: "eu-central-1", AccessKey: "ak", SecretKey: "sk", PathStyle: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewClient(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, client.s3)
		})
	}
}

func TestDownload_Success(t *testing.T) {
	t.Parallel()
	payload := []byte("!<arch>\ndebian-binary")

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/"+DefaultBucket+"/webmin_1.680_all.deb", r.URL.Path)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(payload)))
		w.WriteHeader(200)
		_, _ = w.Write(payload)
	}))

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), DefaultBucket, "webmin_1.680_all.deb", &buf)

	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDownload_NotFound(t *testing.T) {
	t.Parallel()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, 404, noSuchKey)
	}))

	_, err := client.Download(context.Background(), DefaultBucket, "missing.deb", &bytes.Buffer{})

	require.Error(t, err)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing.deb", nf.Key)
}

func TestExists(t *testing.T) {
	t.Parallel()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/"+DefaultBucket+"/present.deb" {
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(404)
	}))

	ok, err := client.Exists(context.Background(), DefaultBucket, "present.deb")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(context.Background(), DefaultBucket, "absent.deb")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetch_WritesFile(t *testing.T) {
	t.Parallel()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("deb"))
	}))
	fs := afero.NewMemMapFs()

	require.NoError(t, client.Fetch(context.Background(), DefaultBucket, "webmin.deb", fs, "/var/cache/xtuple/webmin.deb"))

	data, err := afero.ReadFile(fs, "/var/cache/xtuple/webmin.deb")
	require.NoError(t, err)
	assert.Equal(t, "deb", string(data))

	entries, err := afero.ReadDir(fs, "/var/cache/xtuple")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			xmlResponse(w, 400, `<Error><Code>BadRequest</Code><Message>try again</Message></Error>`)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("deb"))
	}))
	fs := afero.NewMemMapFs()

	require.NoError(t, client.Fetch(context.Background(), DefaultBucket, "webmin.deb", fs, "/tmp/webmin.deb"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		xmlResponse(w, 404, noSuchKey)
	}))
	fs := afero.NewMemMapFs()

	err := client.Fetch(context.Background(), DefaultBucket, "gone.deb", fs, "/tmp/gone.deb")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset gone.deb not found")
	assert.Equal(t, int32(1), calls.Load())
	exists, _ := afero.Exists(fs, "/tmp/gone.deb")
	assert.False(t, exists)
}

func TestIsNotFoundError_WrappedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "wrapped NoSuchKey", err: fmt.Errorf("outer: %w", &s3types.NoSuchKey{}), want: true},
		{name: "wrapped NoSuchBucket", err: fmt.Errorf("outer: %w", &s3types.NoSuchBucket{}), want: true},
		{name: "wrapped NotFound", err: fmt.Errorf("outer: %w", &s3types.NotFound{}), want: true},
		{name: "wrapped generic error", err: fmt.Errorf("outer: %w", fmt.Errorf("inner error")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}
