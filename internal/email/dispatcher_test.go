package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vinreport-workers/internal/common/errors"
	apphttp "vinreport-workers/internal/common/http"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/models"
)

func createTestParams() models.Params {
	return models.NewParams(map[string]string{
		"token": "tok",
		"email": "owner@example.com",
		"vin":   "XTA210990Y2765499",
	})
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "XTA210990Y2765499.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newEmailServer(t *testing.T, status int, response string, captured *models.EmailRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if captured != nil {
			assert.NoError(t, json.Unmarshal(data, captured))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGatewayDispatcher(t *testing.T, url string) *Dispatcher {
	client := gateway.NewClient(apphttp.NewClient(2*time.Second), logger.NewTestLogger(t))
	return NewDispatcher(NewGatewaySender(client, url), "", logger.NewTestLogger(t))
}

func TestSendEmail_Gateway(t *testing.T) {
	var captured models.EmailRequest
	srv := newEmailServer(t, http.StatusOK, `{"errorCode":0,"errorMessage":"","result":true}`, &captured)

	ok, err := newGatewayDispatcher(t, srv.URL).SendEmail(context.Background(), createTestParams(),
		"Отчёт по %vin|grz%", "Здравствуйте, %name|'клиент'%!", writeArtifact(t, "%PDF-1.4 body"))

	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "tok", *captured.Token)
	assert.Equal(t, "owner@example.com", *captured.ToEmail)
	assert.Equal(t, "Отчёт по XTA210990Y2765499", captured.Subject)
	assert.Equal(t, "Здравствуйте, клиент!", captured.Body)
	require.Len(t, captured.Attachments, 1)

	att := captured.Attachments[0]
	assert.Equal(t, "XTA210990Y2765499.pdf", att.Filename)
	assert.Equal(t, "base64", att.ContentEncoding)
	assert.Equal(t, "text/plain;charset=utf-8", att.ContentType)
	decoded, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(decoded))
}

func TestSendEmail_Gateway_ResultInterpretation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"missing result", `{"errorCode":0,"errorMessage":""}`, false},
		{"null result", `{"errorCode":0,"errorMessage":"","result":null}`, false},
		{"string true", `{"errorCode":0,"errorMessage":"","result":"true"}`, true},
		{"object result", `{"errorCode":0,"errorMessage":"","result":{"sent":true}}`, false},
		{"false", `{"errorCode":0,"errorMessage":"","result":false}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newEmailServer(t, http.StatusOK, tt.response, nil)
			ok, err := newGatewayDispatcher(t, srv.URL).SendEmail(context.Background(), createTestParams(),
				"s", "b", writeArtifact(t, "x"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestSendEmail_Gateway_RemoteError(t *testing.T) {
	srv := newEmailServer(t, http.StatusOK, `{"errorCode":3,"errorMessage":"mailbox full","result":false}`, nil)

	ok, err := newGatewayDispatcher(t, srv.URL).SendEmail(context.Background(), createTestParams(),
		"s", "b", writeArtifact(t, "x"))

	assert.False(t, ok)
	re, isRemote := apperrors.AsRemote(err)
	require.True(t, isRemote)
	assert.Equal(t, 3, re.Code)
	assert.Equal(t, "mailbox full", re.Message)
}

func TestSendEmail_Gateway_TransportError(t *testing.T) {
	srv := newEmailServer(t, http.StatusServiceUnavailable, `down`, nil)

	_, err := newGatewayDispatcher(t, srv.URL).SendEmail(context.Background(), createTestParams(),
		"s", "b", writeArtifact(t, "x"))

	te, ok := apperrors.AsTransport(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, te.Status)
}

func TestSendEmail_MissingAttachment(t *testing.T) {
	d := NewDispatcher(NewGatewaySender(nil, "http://unused"), "", logger.NewTestLogger(t))
	_, err := d.SendEmail(context.Background(), createTestParams(), "s", "b", filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestLoadBodyTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(path, []byte("Отчёт по %vin%"), 0o644))

	body, err := LoadBodyTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "Отчёт по %vin%", body)

	_, err = LoadBodyTemplate(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = LoadBodyTemplate("")
	assert.Error(t, err)
}
