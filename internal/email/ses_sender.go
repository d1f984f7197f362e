package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/macro"
)

const ProviderSES = "ses"

// RawEmailAPI is the part of the SES client the sender needs.
type RawEmailAPI interface {
	SendRawEmail(ctx context.Context, input *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error)
}

// SESSender sends the report as a multipart MIME message through SES.
type SESSender struct {
	client RawEmailAPI
	from   string
}

func NewSESSender(client RawEmailAPI, from string) (*SESSender, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client is required")
	}
	if from == "" {
		return nil, fmt.Errorf("ses from address is required")
	}
	return &SESSender{client: client, from: from}, nil
}

func (s *SESSender) Name() string { return ProviderSES }

func (s *SESSender) Send(ctx context.Context, msg Message) (bool, error) {
	to, ok := msg.Params.Get(gateway.ParamEmail)
	if !ok {
		return false, fmt.Errorf("ses send: recipient email is missing")
	}

	raw, err := buildMIME(s.from, to,
		macro.Resolve(msg.Subject, msg.Params),
		macro.Resolve(msg.Body, msg.Params),
		msg.Filename, msg.ContentType, msg.Content)
	if err != nil {
		return false, err
	}

	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.from),
		Destinations: []string{to},
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return false, fmt.Errorf("ses send: %w", err)
	}
	return out != nil && aws.ToString(out.MessageId) != "", nil
}

func buildMIME(from, to, subject, body, filename, contentType string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.BEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textHeader.Set("Content-Transfer-Encoding", "base64")
	part, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("mime body part: %w", err)
	}
	writeBase64Lines(part, []byte(body))

	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", mime.FormatMediaType(baseMediaType(contentType), map[string]string{"name": filename}))
	attHeader.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	attHeader.Set("Content-Transfer-Encoding", "base64")
	part, err = mw.CreatePart(attHeader)
	if err != nil {
		return nil, fmt.Errorf("mime attachment part: %w", err)
	}
	writeBase64Lines(part, content)

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mime close: %w", err)
	}
	return buf.Bytes(), nil
}

func baseMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" {
		return "application/octet-stream"
	}
	return mt
}

// writeBase64Lines wraps encoded output at 76 characters (RFC 2045).
func writeBase64Lines(w io.Writer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		_, _ = w.Write([]byte(encoded[:76] + "\r\n"))
		encoded = encoded[76:]
	}
	_, _ = w.Write([]byte(encoded + "\r\n"))
}
