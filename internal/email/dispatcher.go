// Package email delivers rendered reports as mail attachments.
package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/metrics"
	"vinreport-workers/internal/models"
)

// Message is one outbound mail. Subject and Body are macro templates,
// resolved against Params by the sender.
type Message struct {
	Params      models.Params
	Subject     string
	Body        string
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers a Message. The bool is the provider's verdict; an error
// means the provider could not be asked or refused with a code.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) (bool, error)
}

type Dispatcher struct {
	sender      Sender
	contentType string
	log         logger.Logger
}

func NewDispatcher(sender Sender, contentType string, log logger.Logger) *Dispatcher {
	if contentType == "" {
		contentType = models.AttachmentContentType
	}
	return &Dispatcher{
		sender:      sender,
		contentType: contentType,
		log:         logger.ForComponent(log, "email"),
	}
}

// SendEmail attaches the file at attachmentPath and sends it to the
// request's email address.
func (d *Dispatcher) SendEmail(ctx context.Context, params models.Params, subject, body, attachmentPath string) (bool, error) {
	content, err := os.ReadFile(attachmentPath)
	if err != nil {
		return false, fmt.Errorf("read attachment: %w", err)
	}

	ok, err := d.sender.Send(ctx, Message{
		Params:      params,
		Subject:     subject,
		Body:        body,
		Filename:    filepath.Base(attachmentPath),
		ContentType: d.contentType,
		Content:     content,
	})

	result := "sent"
	switch {
	case err != nil:
		result = "error"
	case !ok:
		result = "rejected"
	}
	metrics.EmailDispatches.WithLabelValues(d.sender.Name(), result).Inc()

	fields := map[string]interface{}{
		"provider":   d.sender.Name(),
		"attachment": filepath.Base(attachmentPath),
		"sizeBytes":  len(content),
		"result":     result,
	}
	if err != nil {
		fields["error"] = err.Error()
		d.log.Warn("email dispatch failed", fields)
		return false, err
	}
	d.log.Info("email dispatched", fields)
	return ok, nil
}

// LoadBodyTemplate reads a body template file. A missing file is an error.
func LoadBodyTemplate(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("email body template path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load email body template: %w", err)
	}
	return string(data), nil
}
