package gateway

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinreport-workers/internal/models"
)

func TestBuildDataRequest(t *testing.T) {
	params := models.NewParams(map[string]string{"token": "tok", "sts": "S", "grz": "null"})

	req := BuildDataRequest("avtokod-history", params, []string{"sts", "vin", "grz"})

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"dataSet": "avtokod-history",
		"token": "tok",
		"terms": [
			{"name": "sts", "value": "S"},
			{"name": "vin", "value": null},
			{"name": "grz", "value": null}
		]
	}`, string(out))
}

func TestBuildEmailRequest(t *testing.T) {
	params := models.NewParams(map[string]string{"token": "tok", "email": "a@b.ru", "vin": "V1"})

	req := BuildEmailRequest(params, "Report %vin|grz%", "Hello, %name|'customer'%", "V1.pdf", []byte("PDF"))

	require.NotNil(t, req.Token)
	assert.Equal(t, "tok", *req.Token)
	require.NotNil(t, req.ToEmail)
	assert.Equal(t, "a@b.ru", *req.ToEmail)
	assert.Equal(t, "Report V1", req.Subject)
	assert.Equal(t, "Hello, customer", req.Body)

	require.Len(t, req.Attachments, 1)
	att := req.Attachments[0]
	assert.Equal(t, "base64", att.ContentEncoding)
	assert.Equal(t, "text/plain;charset=utf-8", att.ContentType)
	assert.Equal(t, "V1.pdf", att.Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PDF")), att.Content)
}

func TestBuildEmailRequestWith_NoAttachments(t *testing.T) {
	req := BuildEmailRequestWith(models.NewParams(nil), "s", "b")
	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"attachments":[]`)
	assert.Contains(t, string(out), `"to_email":null`)
}
