package migu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanxtv/wanx/backend/internal/config"
)

type recorded struct {
	path    string
	body    map[string]any
	headers http.Header
}

// newServer answers every request with handler's envelope and records the last request.
func newServer(t *testing.T, handler func(path string, body map[string]any) (int, any)) (*httptest.Server, *recorded) {
	t.Helper()
	last := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		last.path = r.URL.Path
		last.body = body
		last.headers = r.Header.Clone()

		status, resp := handler(r.URL.Path, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func ok(data any) map[string]any {
	return map[string]any{"resultCode": "0", "resultDesc": "success", "data": data}
}

func newClient(srv *httptest.Server) *Client {
	return NewClient(config.MiguConfig{
		CenterURL: srv.URL,
		PayURL:    srv.URL,
		AppID:     "wanx",
		AppSecret: "s3cret",
		Timeout:   2 * time.Second,
	})
}

func TestCenterIdentity(t *testing.T) {
	srv, last := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, ok(map[string]any{"identityId": "open-123"})
	})
	c := newClient(srv)

	id, err := c.IdentityID(context.Background(), "13800138000", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "open-123", id)
	assert.Equal(t, "/account/identity", last.path)
	assert.Equal(t, "13800138000", last.body["account"])
	assert.Equal(t, "phone", last.body["accountType"])
	assert.Equal(t, "wanx", last.headers.Get("X-App-Id"))
	ts := last.headers.Get("X-Timestamp")
	assert.Equal(t, c.center.sign(ts), last.headers.Get("X-Signature"))
}

func TestCenterBusinessError(t *testing.T) {
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"resultCode": "103", "resultDesc": "wrong password"}
	})
	c := newClient(srv)

	err := c.UpdatePassword(context.Background(), "open-1", "old", "newpass")
	apiErr, isAPI := IsAPIError(err)
	require.True(t, isAPI)
	assert.Equal(t, "103", apiErr.Code)
	assert.Equal(t, "wrong password", apiErr.Message)
	assert.Equal(t, "center", apiErr.Service)
}

func TestCenterHTTPError(t *testing.T) {
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusBadRequest, map[string]any{"resultCode": "400", "resultDesc": "bad msisdn"}
	})
	c := newClient(srv)

	_, err := c.SendSMSCode(context.Background(), "1", ActionRegister)
	apiErr, isAPI := IsAPIError(err)
	require.True(t, isAPI)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad msisdn", apiErr.Message)
}

func TestUserInfoKeyword(t *testing.T) {
	srv, last := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, ok(map[string]any{"province": "广东", "passID": "p-9"})
	})
	c := newClient(srv)

	province, err := c.UserInfo(context.Background(), "13800138000", "")
	require.NoError(t, err)
	assert.Equal(t, "广东", province)
	assert.Equal(t, KeyProvince, last.body["keyword"])

	passID, err := c.UserInfo(context.Background(), "13800138000", KeyPassID)
	require.NoError(t, err)
	assert.Equal(t, "p-9", passID)

	hf, err := c.UserInfo(context.Background(), "13800138000", KeyHFUserID)
	require.NoError(t, err)
	assert.Empty(t, hf)
}

func TestCheckAccount(t *testing.T) {
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, ok(map[string]any{"available": body["account"] == "13900000000"})
	})
	c := newClient(srv)

	free, err := c.CheckAccount(context.Background(), "13900000000")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = c.CheckAccount(context.Background(), "13800000000")
	require.NoError(t, err)
	assert.False(t, free)
}

func TestPayBalanceAndVIP(t *testing.T) {
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		switch path {
		case "/balance/available":
			return http.StatusOK, ok(map[string]any{"miguTotalCount": 30, "miguMoneyCount": 20, "miguMarketingCount": 10})
		case "/vip/level":
			return http.StatusOK, ok(map[string]any{
				"vip5":  map[string]any{"subscribed": true, "canSub": false},
				"vip10": map[string]any{"subscribed": false, "canSub": true},
			})
		}
		return http.StatusNotFound, map[string]any{"resultCode": "404", "resultDesc": "no route"}
	})
	c := newClient(srv)

	bal, err := c.BalanceAvailable(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 30, Money: 20, Marketing: 10}, bal)

	vip, err := c.VIPLevel(context.Background(), "13800138000")
	require.NoError(t, err)
	assert.True(t, vip.VIP5.Subscribed)
	assert.False(t, vip.VIP5.CanSub)
	assert.True(t, vip.VIP10.CanSub)
}

func TestRecordsEndPage(t *testing.T) {
	srv, last := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, ok(map[string]any{
			"records":    []map[string]any{{"orderId": "a"}, {"orderId": "b"}},
			"totalCount": 4,
		})
	})
	c := newClient(srv)

	q := RecordQuery{PassID: "p-1", QueryType: "1", StartAt: "20240101000000", EndAt: "20240201000000", Page: 1, Size: 2}
	recs, err := c.MoneyRecords(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, recs.Records, 2)
	assert.False(t, recs.EndPage)
	assert.Equal(t, "1", last.body["queryType"])

	q.Page = 2
	recs, err = c.PresentRecords(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, recs.EndPage)
	_, hasType := last.body["queryType"]
	assert.False(t, hasType)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		hits.Add(1)
		return http.StatusBadGateway, map[string]any{"resultCode": "502", "resultDesc": "gateway"}
	})
	c := newClient(srv)

	for i := 0; i < 3; i++ {
		err := c.Register(context.Background(), "13800138000", "pw1234", "1234", "sid")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}

	err := c.Register(context.Background(), "13800138000", "pw1234", "1234", "sid")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestBusinessErrorsDoNotTripBreaker(t *testing.T) {
	srv, _ := newServer(t, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"resultCode": "201", "resultDesc": "account exists"}
	})
	c := newClient(srv)

	for i := 0; i < 5; i++ {
		err := c.Register(context.Background(), "13800138000", "pw1234", "1234", "sid")
		_, isAPI := IsAPIError(err)
		assert.True(t, isAPI)
	}
}

func TestDefaultVIP(t *testing.T) {
	v := DefaultVIP()
	assert.False(t, v.VIP5.Subscribed)
	assert.True(t, v.VIP5.CanSub)
	assert.True(t, v.VIP10.CanSub)
}
