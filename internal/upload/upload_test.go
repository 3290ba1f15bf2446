package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/jask/medadmin/internal/config"
)

func pinServer(t *testing.T, seen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-jwt" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		*seen = hdr.Filename + ":" + string(data)
		_ = json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmTestHash"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPinningUpload(t *testing.T) {
	var seen string
	srv := pinServer(t, &seen)
	c := NewPinningClient(srv.URL, "https://gateway.example/", "")
	c.Token = func() string { return "secret-jwt" }

	url, err := c.Upload(context.Background(), "scan.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "https://gateway.example/ipfs/QmTestHash", url)
	require.Equal(t, "scan.pdf:%PDF-1.4", seen)
}

func TestPinningTokenFromEnv(t *testing.T) {
	var seen string
	srv := pinServer(t, &seen)
	t.Setenv("MEDADMIN_TEST_PIN_JWT", "secret-jwt")
	c := NewPinningClient(srv.URL, "https://gw", "MEDADMIN_TEST_PIN_JWT")

	path := filepath.Join(t.TempDir(), "xray.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))
	url, err := File(context.Background(), c, path)
	require.NoError(t, err)
	require.Equal(t, "https://gw/ipfs/QmTestHash", url)
	require.Equal(t, "xray.png:img", seen)
}

func TestPinningErrors(t *testing.T) {
	var seen string
	srv := pinServer(t, &seen)

	c := NewPinningClient(srv.URL, "https://gw", "")
	c.Token = func() string { return "" }
	_, err := c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrNoToken)

	c.Token = func() string { return "wrong" }
	_, err = c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Empty(t, seen)

	_, err = File(context.Background(), c, filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "open document")
}

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3UploadIsContentAddressed(t *testing.T) {
	p := &fakePutter{}
	u := &S3Uploader{Bucket: "records", PublicBase: "https://cdn.example", client: p}

	url, err := u.Upload(context.Background(), "Report.PDF", strings.NewReader("hello"))
	require.NoError(t, err)
	// sha256("hello")
	key := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824.pdf"
	require.Equal(t, "https://cdn.example/"+key, url)
	require.Equal(t, "records", *p.in.Bucket)
	require.Equal(t, key, *p.in.Key)
	require.Equal(t, "text/plain; charset=utf-8", *p.in.ContentType)
	require.Equal(t, "Report.PDF", p.in.Metadata["filename"])

	p.err = errors.New("access denied")
	_, err = u.Upload(context.Background(), "r.pdf", strings.NewReader("hello"))
	require.ErrorContains(t, err, "access denied")
}

func TestNewSelectsProvider(t *testing.T) {
	u, err := New(context.Background(), config.UploadConfig{Provider: "pinning", Endpoint: "http://pin", Gateway: "http://gw"})
	require.NoError(t, err)
	require.IsType(t, &PinningClient{}, u)

	_, err = New(context.Background(), config.UploadConfig{Provider: "s3"})
	require.ErrorContains(t, err, "s3_bucket")

	_, err = New(context.Background(), config.UploadConfig{Provider: "ftp"})
	require.ErrorContains(t, err, "unknown upload provider")
}
