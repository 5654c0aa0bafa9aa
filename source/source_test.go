package source_test

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/source"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, test := range []struct {
		raw    string
		scheme string
		host   string
		path   string
		local  bool
	}{
		{"/tmp/a.vcf", "", "", "/tmp/a.vcf", true},
		{"rel/a.vcf", "", "", "rel/a.vcf", true},
		{"file:///tmp/a.vcf", "", "", "/tmp/a.vcf", true},
		{"HTTP://example.org/a.vcf?x=1", "http", "example.org", "/a.vcf", false},
		{"ftp://ftp.example.org:2121/pub/a.bed", "ftp", "ftp.example.org:2121", "/pub/a.bed", false},
		{"s3://bucket/dir/a.vcf.gz", "s3", "bucket", "/dir/a.vcf.gz", false},
	} {
		loc, err := source.Parse(test.raw)
		require.NoError(t, err, test.raw)
		expect.EQ(t, loc.Scheme, test.scheme)
		expect.EQ(t, loc.Host, test.host)
		expect.EQ(t, loc.Path, filepath.FromSlash(test.path))
		expect.EQ(t, loc.IsLocal(), test.local)
		expect.EQ(t, loc.String(), test.raw)
	}
	_, err := source.Parse("")
	assert.Equal(t, feature.ErrUnresolvableSource, feature.Class(err))
}

func memResolver(t *testing.T, files map[string]string) *source.Resolver {
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(data), 0644))
	}
	r := source.NewResolver()
	r.Register("mem", source.NewFSTransport(fs))
	return r
}

func readAll(t *testing.T, ch source.Channel) string {
	data, err := ioutil.ReadAll(ch)
	require.NoError(t, err)
	return string(data)
}

func TestMem(t *testing.T) {
	ctx := context.Background()
	r := memResolver(t, map[string]string{"/d/a.txt": "hello world"})

	ch, err := r.Open(ctx, "mem:///d/a.txt", nil)
	require.NoError(t, err)
	expect.EQ(t, ch.Size(), int64(11))
	expect.EQ(t, readAll(t, ch), "hello world")
	_, err = ch.Seek(6, io.SeekStart)
	require.NoError(t, err)
	expect.EQ(t, readAll(t, ch), "world")
	require.NoError(t, ch.Close())

	ok, err := r.Exists(ctx, "mem:///d/a.txt")
	require.NoError(t, err)
	expect.True(t, ok)
	ok, err = r.Exists(ctx, "mem:///d/missing.txt")
	require.NoError(t, err)
	expect.False(t, ok)

	_, err = r.Open(ctx, "mem:///d/missing.txt", nil)
	assert.Equal(t, feature.ErrUnresolvableSource, feature.Class(err))
	_, err = r.Open(ctx, "gopher://x/y", nil)
	assert.Equal(t, feature.ErrUnresolvableSource, feature.Class(err))

	size, err := r.Size(ctx, "mem:///d/a.txt")
	require.NoError(t, err)
	expect.EQ(t, size, int64(11))
}

func TestSkipBytes(t *testing.T) {
	ctx := context.Background()
	r := memResolver(t, map[string]string{"/x": "Xpayload"})

	ch, err := r.Open(ctx, "mem:///x", source.SkipBytes(1))
	require.NoError(t, err)
	defer ch.Close() // nolint: errcheck
	expect.EQ(t, ch.Size(), int64(7))
	expect.EQ(t, readAll(t, ch), "payload")

	pos, err := ch.Seek(3, io.SeekStart)
	require.NoError(t, err)
	expect.EQ(t, pos, int64(3))
	expect.EQ(t, readAll(t, ch), "load")

	pos, err = ch.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	expect.EQ(t, pos, int64(5))
	expect.EQ(t, readAll(t, ch), "ad")

	_, err = ch.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	_, err = r.Open(ctx, "mem:///x", source.SkipBytes(100))
	assert.Equal(t, feature.ErrUnresolvableSource, feature.Class(err))
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	r := memResolver(t, map[string]string{"/x": "ABpayload"})
	ch, err := r.Open(ctx, "mem:///x", source.Chain(source.SkipBytes(1), nil, source.SkipBytes(1)))
	require.NoError(t, err)
	defer ch.Close() // nolint: errcheck
	expect.EQ(t, readAll(t, ch), "payload")
	pos, err := ch.Seek(0, io.SeekStart)
	require.NoError(t, err)
	expect.EQ(t, pos, int64(0))
	expect.EQ(t, readAll(t, ch), "payload")
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tempDir)

	path := filepath.Join(tempDir, "a.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("0123456789"), 0644))

	for _, raw := range []string{path, "file://" + path} {
		ch, err := source.Default.Open(ctx, raw, nil)
		require.NoError(t, err, raw)
		expect.EQ(t, ch.Size(), int64(10))
		_, err = ch.Seek(4, io.SeekStart)
		require.NoError(t, err)
		expect.EQ(t, readAll(t, ch), "456789")
		require.NoError(t, ch.Close())
	}
	ok, err := source.Default.Exists(ctx, filepath.Join(tempDir, "nope"))
	require.NoError(t, err)
	expect.False(t, ok)
}

func TestHTTP(t *testing.T) {
	ctx := context.Background()
	content := strings.Repeat("0123456789", 1000)
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/data.txt" {
			http.NotFound(w, req)
			return
		}
		if req.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		}
		http.ServeContent(w, req, "data.txt", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	r := source.NewResolver()
	ch, err := r.Open(ctx, srv.URL+"/data.txt", nil)
	require.NoError(t, err)
	defer ch.Close() // nolint: errcheck
	expect.EQ(t, ch.Size(), int64(len(content)))
	expect.EQ(t, atomic.LoadInt32(&gets), int32(0))

	_, err = ch.Seek(9995, io.SeekStart)
	require.NoError(t, err)
	expect.EQ(t, readAll(t, ch), "56789")

	_, err = ch.Seek(10, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(ch, buf)
	require.NoError(t, err)
	expect.EQ(t, string(buf), "0123")
	expect.EQ(t, atomic.LoadInt32(&gets), int32(2))

	ok, err := r.Exists(ctx, srv.URL+"/missing.txt")
	require.NoError(t, err)
	expect.False(t, ok)
	_, err = r.Open(ctx, srv.URL+"/missing.txt", nil)
	assert.Equal(t, feature.ErrUnresolvableSource, feature.Class(err))
}

func TestHTTPTruncatedBody(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodHead {
			w.Header().Set("Content-Length", "100")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(bytes.Repeat([]byte("x"), 10)) // nolint: errcheck
	}))
	defer srv.Close()

	ch, err := source.NewResolver().Open(ctx, srv.URL+"/t", nil)
	require.NoError(t, err)
	defer ch.Close() // nolint: errcheck
	_, err = ioutil.ReadAll(ch)
	assert.Error(t, err)
}
