package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vinreport-workers/internal/common/errors"
	apphttp "vinreport-workers/internal/common/http"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/models"
)

func newTestClient(t *testing.T) *Client {
	return NewClient(apphttp.NewClient(2*time.Second), logger.NewTestLogger(t))
}

func TestCall_Success(t *testing.T) {
	var received models.DataRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &received))
		_, _ = w.Write([]byte(`{"errorCode":0,"errorMessage":"","result":{"Model":"Lada"}}`))
	}))
	defer srv.Close()

	params := models.NewParams(map[string]string{"token": "t", "sts": "S"})
	env, err := newTestClient(t).Call(context.Background(),
		Endpoint{Name: "data", URL: srv.URL},
		BuildDataRequest("avtokod-history", params, []string{"sts", "vin"}))

	require.NoError(t, err)
	assert.NoError(t, env.Err())
	assert.JSONEq(t, `{"Model":"Lada"}`, string(env.Result))
	assert.Equal(t, "avtokod-history", received.DataSet)
	require.Len(t, received.Terms, 2)
	assert.Nil(t, received.Terms[1].Value)
}

func TestCall_RemoteErrorOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errorCode":401,"errorMessage":"bad token","result":null}`))
	}))
	defer srv.Close()

	env, err := newTestClient(t).Call(context.Background(), Endpoint{Name: "data", URL: srv.URL}, struct{}{})
	require.NoError(t, err)

	re, ok := apperrors.AsRemote(env.Err())
	require.True(t, ok)
	assert.Equal(t, 401, re.Code)
	assert.Equal(t, "bad token", re.Message)
}

func TestCall_Non200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		// A valid envelope in the body must not be parsed.
		_, _ = w.Write([]byte(`{"errorCode":0,"errorMessage":"","result":true}`))
	}))
	defer srv.Close()

	env, err := newTestClient(t).Call(context.Background(), Endpoint{Name: "email", URL: srv.URL}, struct{}{})
	assert.Nil(t, env)

	te, ok := apperrors.AsTransport(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
	assert.Contains(t, te.Body, `"result":true`)
}

func TestCall_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t).Call(context.Background(), Endpoint{Name: "data", URL: url}, struct{}{})
	te, ok := apperrors.AsTransport(err)
	require.True(t, ok)
	assert.Equal(t, 0, te.Status)
}

func TestCall_MalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t).Call(context.Background(), Endpoint{Name: "data", URL: srv.URL}, struct{}{})
	require.Error(t, err)
	_, isTransport := apperrors.AsTransport(err)
	assert.False(t, isTransport)
}

func TestCall_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t).Call(ctx, Endpoint{Name: "data", URL: srv.URL}, struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}
