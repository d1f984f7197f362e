// internal/models/envelope.go
package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	apperrors "vinreport-workers/internal/common/errors"
)

// Envelope is the response wrapper shared by every gateway endpoint.
type Envelope struct {
	ErrorCode    int             `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Err returns a *errors.RemoteError when the envelope reports a failure.
func (e *Envelope) Err() error {
	if e.ErrorCode == 0 {
		return nil
	}
	return &apperrors.RemoteError{Code: e.ErrorCode, Message: e.ErrorMessage}
}

// HasResult reports whether result carries anything other than JSON null.
func (e *Envelope) HasResult() bool {
	trimmed := bytes.TrimSpace(e.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// BoolResult interprets result the lenient way the email endpoint needs:
// true, "true" (any case) and non-zero numbers are true, everything else false.
func (e *Envelope) BoolResult() bool {
	if !e.HasResult() {
		return false
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(e.Result))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return false
	}

	switch r := v.(type) {
	case bool:
		return r
	case string:
		return strings.EqualFold(r, "true")
	case json.Number:
		f, err := r.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

// Term is one named search criterion of a data request.
type Term struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// DataRequest is the body of a data set query.
type DataRequest struct {
	DataSet string  `json:"dataSet"`
	Token   *string `json:"token"`
	Terms   []Term  `json:"terms"`
}

const (
	AttachmentEncodingBase64 = "base64"
	AttachmentContentType    = "text/plain;charset=utf-8"
)

// Attachment is a file carried inline in an email request.
type Attachment struct {
	ContentEncoding string `json:"contentEncoding"`
	ContentType     string `json:"contentType"`
	Filename        string `json:"filename"`
	Content         string `json:"content"`
}

// NewAttachment base64-encodes raw file bytes.
func NewAttachment(filename, contentType string, raw []byte) Attachment {
	return Attachment{
		ContentEncoding: AttachmentEncodingBase64,
		ContentType:     contentType,
		Filename:        filename,
		Content:         base64.StdEncoding.EncodeToString(raw),
	}
}

// EmailRequest is the body of an email endpoint call.
type EmailRequest struct {
	Token       *string      `json:"token"`
	ToEmail     *string      `json:"to_email"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}
