package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNoToken is returned when the pinning JWT is not set.
var ErrNoToken = errors.New("pinning token not set")

// PinningClient posts files to a pinning service and returns gateway URLs.
type PinningClient struct {
	Endpoint string
	Gateway  string
	Token    func() string
	HTTP     *http.Client
}

// NewPinningClient reads the bearer token from the environment variable jwtEnv on each upload.
func NewPinningClient(endpoint, gateway, jwtEnv string) *PinningClient {
	return &PinningClient{
		Endpoint: endpoint,
		Gateway:  strings.TrimRight(gateway, "/"),
		Token:    func() string { return strings.TrimSpace(os.Getenv(jwtEnv)) },
		HTTP:     &http.Client{Timeout: 2 * time.Minute},
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (c *PinningClient) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	token := ""
	if c.Token != nil {
		token = c.Token()
	}
	if token == "" {
		return "", ErrNoToken
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pin %s: %s: %s", name, resp.Status, strings.TrimSpace(string(msg)))
	}
	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pin %s: decode: %w", name, err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pin %s: empty hash", name)
	}
	return c.Gateway + "/ipfs/" + out.IpfsHash, nil
}
