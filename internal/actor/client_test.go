package actor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captured struct {
	path string
	auth string
	args []json.RawMessage
}

func bridge(t *testing.T, status int, reply string, seen *captured) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Args []json.RawMessage `json:"args"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if seen != nil {
			seen.path = r.URL.Path
			seen.auth = r.Header.Get("Authorization")
			seen.args = body.Args
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/bridge/", "ryjl3-tyaaa-aaaaa-aaaba-cai", time.Second, func() string { return "tok" })
}

func TestGetHospitalsDecodesExpiry(t *testing.T) {
	t.Parallel()
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reply := `{"ok":[{"id":1,"name":"St Mary","wallet":"aaaaa-aa","logoURL":"https://x/logo.png","isActive":true,"expiresAt":` +
		jsonInt(expires.UnixNano()) + `},{"id":2,"name":"General","wallet":"bbbbb-bb","isActive":false}]}`
	var seen captured
	c := bridge(t, http.StatusOK, reply, &seen)

	hs, err := c.GetHospitals(context.Background())
	require.NoError(t, err)
	require.Len(t, hs, 2)
	require.Equal(t, "/bridge/ryjl3-tyaaa-aaaaa-aaaba-cai/getHospitals", seen.path)
	require.Equal(t, "Bearer tok", seen.auth)
	require.Empty(t, seen.args)
	require.NotNil(t, hs[0].ExpiresAt)
	require.True(t, hs[0].ExpiresAt.Equal(expires))
	require.True(t, hs[0].Active)
	require.Nil(t, hs[1].ExpiresAt)
}

func TestRegisterDoctorSendsPositionalArgs(t *testing.T) {
	t.Parallel()
	var seen captured
	c := bridge(t, http.StatusOK, `{"ok":{"id":7,"hospitalId":3,"name":"Dr Ana","specialty":"Cardiology","wallet":"w","isActive":true}}`, &seen)

	d, err := c.RegisterDoctor(context.Background(), 3, "Dr Ana", "Cardiology", "https://p", "w")
	require.NoError(t, err)
	require.Equal(t, uint64(7), d.ID)
	require.Len(t, seen.args, 5)
	require.JSONEq(t, `3`, string(seen.args[0]))
	require.JSONEq(t, `"Dr Ana"`, string(seen.args[1]))
	require.JSONEq(t, `"w"`, string(seen.args[4]))
}

func TestErrVariantIsVerbatim(t *testing.T) {
	t.Parallel()
	c := bridge(t, http.StatusOK, `{"err":"Hospital subscription expired"}`, nil)

	_, err := c.AddMedicalRecord(context.Background(), "p-1", 1, "flu", "https://doc", nil)
	require.Error(t, err)
	require.Equal(t, "Hospital subscription expired", err.Error())
	var ce *CallError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "addMedicalRecord", ce.Method)
}

func TestHTTPStatusMapsToSentinels(t *testing.T) {
	t.Parallel()
	c := bridge(t, http.StatusNotFound, `{"err":"no such doctor"}`, nil)
	err := c.DeactivateDoctor(context.Background(), 9)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "no such doctor", err.Error())

	c = bridge(t, http.StatusForbidden, `forbidden`, nil)
	_, err = c.GetDoctors(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "forbidden", err.Error())
}

func TestTimestampsAsDecimalStrings(t *testing.T) {
	t.Parallel()
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ns := func(t time.Time) string { return strconv.FormatInt(t.UnixNano(), 10) }

	c := bridge(t, http.StatusOK, `{"ok":[{"id":1,"name":"St Mary","isActive":true,"expiresAt":"`+ns(expires)+`"},{"id":2,"name":"General","expiresAt":null}]}`, nil)
	hs, err := c.GetHospitals(context.Background())
	require.NoError(t, err)
	require.Len(t, hs, 2)
	require.NotNil(t, hs[0].ExpiresAt)
	require.True(t, hs[0].ExpiresAt.Equal(expires))
	require.Nil(t, hs[1].ExpiresAt)

	c = bridge(t, http.StatusOK, `{"ok":[{"id":4,"patientId":"p-1","createdAt":"`+ns(created)+`"}]}`, nil)
	recs, err := c.GetMedicalRecordsByPatient(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].CreatedAt.Equal(created))

	c = bridge(t, http.StatusOK, `{"ok":[{"id":1,"expiresAt":"soon"}]}`, nil)
	_, err = c.GetHospitals(context.Background())
	require.Error(t, err)
}

func TestPagedRecordsAndWeekday(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var seen captured
	c := bridge(t, http.StatusOK, `{"ok":{"items":[{"id":1,"patientId":"p","hospitalId":2,"doctorId":3,"diagnosis":"d","docURL":"u","createdAt":`+jsonInt(created.UnixNano())+`}],"total":11,"page":1,"pageSize":5}}`, &seen)

	page, err := c.GetMedicalRecordsByHospitalPaged(context.Background(), 2, 1, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.True(t, page.Items[0].CreatedAt.Equal(created))
	require.NotNil(t, page.Items[0].EvidenceURLs)
	require.Equal(t, 3, page.Pages())

	c = bridge(t, http.StatusOK, `{"ok":[]}`, &seen)
	_, err = c.GetAvailableDoctors(context.Background(), 2, time.Wednesday)
	require.NoError(t, err)
	require.JSONEq(t, `"wednesday"`, string(seen.args[1]))
}

func TestParsePlan(t *testing.T) {
	t.Parallel()
	p, ok := ParsePlan("annual")
	require.True(t, ok)
	require.Equal(t, PlanAnnual, p)
	_, ok = ParsePlan("lifetime")
	require.False(t, ok)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
