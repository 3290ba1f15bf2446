package actor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("actor: not found")
	ErrUnauthorized = errors.New("actor: unauthorized")
)

// CallError carries the backend's message verbatim.
type CallError struct {
	Method  string
	Status  int
	Message string
}

func (e *CallError) Error() string { return e.Message }

func (e *CallError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// TokenSource returns the current session token, or "" when anonymous.
type TokenSource func() string

// Client talks to the canister through its JSON bridge:
// POST {endpoint}/{canister}/{method} {"args":[...]} -> {"ok":...} | {"err":"..."}.
type Client struct {
	endpoint string
	canister string
	http     *http.Client
	token    TokenSource
}

var _ Actor = (*Client)(nil)

func NewClient(endpoint, canisterID string, timeout time.Duration, token TokenSource) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		canister: strings.Trim(canisterID, "/"),
		http:     &http.Client{Timeout: timeout},
		token:    token,
	}
}

type envelope struct {
	Ok  json.RawMessage `json:"ok"`
	Err *string         `json:"err"`
}

func (c *Client) url(method string) string {
	if c.canister == "" {
		return c.endpoint + "/" + method
	}
	return c.endpoint + "/" + c.canister + "/" + method
}

func (c *Client) call(ctx context.Context, method string, out any, args ...any) error {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(map[string]any{"args": args})
	if err != nil {
		return fmt.Errorf("%s: encode args: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && env.Err != nil {
			msg = *env.Err
		}
		if msg == "" {
			msg = resp.Status
		}
		return &CallError{Method: method, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", method, decodeErr)
	}
	if env.Err != nil {
		return &CallError{Method: method, Status: resp.StatusCode, Message: *env.Err}
	}
	if out == nil || len(env.Ok) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Ok, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) GetHospitals(ctx context.Context) ([]Hospital, error) {
	var wire []hospitalWire
	if err := c.call(ctx, "getHospitals", &wire); err != nil {
		return nil, err
	}
	out := make([]Hospital, 0, len(wire))
	for _, h := range wire {
		out = append(out, h.hospital())
	}
	return out, nil
}

func (c *Client) GetDoctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := c.call(ctx, "getDoctors", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RegisterDoctor(ctx context.Context, hospitalID uint64, name, specialty, photoURL, wallet string) (Doctor, error) {
	var out Doctor
	err := c.call(ctx, "registerDoctor", &out, hospitalID, name, specialty, photoURL, wallet)
	return out, err
}

func (c *Client) DeactivateDoctor(ctx context.Context, id uint64) error {
	return c.call(ctx, "deactivateDoctor", nil, id)
}

func (c *Client) GetMedicalRecordsByPatient(ctx context.Context, patientID string) ([]MedicalRecord, error) {
	var wire []recordWire
	if err := c.call(ctx, "getMedicalRecordsByPatient", &wire, patientID); err != nil {
		return nil, err
	}
	return records(wire), nil
}

func (c *Client) GetMedicalRecordsByHospitalPaged(ctx context.Context, hospitalID uint64, page, pageSize int) (RecordPage, error) {
	var wire struct {
		Items    []recordWire `json:"items"`
		Total    uint64       `json:"total"`
		Page     int          `json:"page"`
		PageSize int          `json:"pageSize"`
	}
	if err := c.call(ctx, "getMedicalRecordsByHospitalPaged", &wire, hospitalID, page, pageSize); err != nil {
		return RecordPage{}, err
	}
	out := RecordPage{Items: records(wire.Items), Total: wire.Total, Page: wire.Page, PageSize: wire.PageSize}
	if out.PageSize == 0 {
		out.Page, out.PageSize = page, pageSize
	}
	return out, nil
}

func (c *Client) AddMedicalRecord(ctx context.Context, patientID string, hospitalID uint64, diagnosis, docURL string, evidenceURLs []string) (MedicalRecord, error) {
	if evidenceURLs == nil {
		evidenceURLs = []string{}
	}
	var wire recordWire
	if err := c.call(ctx, "addMedicalRecord", &wire, patientID, hospitalID, diagnosis, docURL, evidenceURLs); err != nil {
		return MedicalRecord{}, err
	}
	return wire.record(), nil
}

func (c *Client) RegisterHospital(ctx context.Context, name, logoURL string) (Hospital, error) {
	var wire hospitalWire
	if err := c.call(ctx, "registerHospital", &wire, name, logoURL); err != nil {
		return Hospital{}, err
	}
	return wire.hospital(), nil
}

func (c *Client) ToggleHospitalActiveStatus(ctx context.Context, hospitalID uint64, plan Plan) (Hospital, error) {
	var wire hospitalWire
	if err := c.call(ctx, "toggleHospitalActiveStatus", &wire, hospitalID, string(plan)); err != nil {
		return Hospital{}, err
	}
	return wire.hospital(), nil
}

func (c *Client) DeactivateHospitalIfExpired(ctx context.Context, hospitalID uint64) (bool, error) {
	var deactivated bool
	err := c.call(ctx, "deactivateHospitalIfExpired", &deactivated, hospitalID)
	return deactivated, err
}

func (c *Client) GetAvailableDoctors(ctx context.Context, hospitalID uint64, day time.Weekday) ([]Doctor, error) {
	var out []Doctor
	if err := c.call(ctx, "getAvailableDoctors", &out, hospitalID, strings.ToLower(day.String())); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDoctorPatientsCount(ctx context.Context, doctorID uint64) (uint64, error) {
	var n uint64
	err := c.call(ctx, "getDoctorPatientsCount", &n, doctorID)
	return n, err
}

// nanos is a canister timestamp, nanoseconds since the epoch. Bridges send
// it as a JSON number or, when it does not fit a float, a decimal string.
type nanos int64

func (n *nanos) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	*n = nanos(v)
	return nil
}

func (n nanos) time() (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, int64(n)).UTC(), true
}

type hospitalWire struct {
	Hospital
	ExpiresAt *nanos `json:"expiresAt"`
}

func (w hospitalWire) hospital() Hospital {
	h := w.Hospital
	if w.ExpiresAt != nil {
		if t, ok := w.ExpiresAt.time(); ok {
			h.ExpiresAt = &t
		}
	}
	return h
}

type recordWire struct {
	MedicalRecord
	CreatedAt nanos `json:"createdAt"`
}

func (w recordWire) record() MedicalRecord {
	r := w.MedicalRecord
	if t, ok := w.CreatedAt.time(); ok {
		r.CreatedAt = t
	}
	if r.EvidenceURLs == nil {
		r.EvidenceURLs = []string{}
	}
	return r
}

func records(wire []recordWire) []MedicalRecord {
	out := make([]MedicalRecord, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.record())
	}
	return out
}
