// Package gateway talks to the remote data and email endpoints. Every
// endpoint answers with the same {errorCode, errorMessage, result} envelope.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "vinreport-workers/internal/common/errors"
	apphttp "vinreport-workers/internal/common/http"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/metrics"
	"vinreport-workers/internal/models"
)

// Endpoint is a named remote URL. Name only labels logs and metrics.
type Endpoint struct {
	Name string
	URL  string
}

// Caller is what the aggregator and the email dispatcher need from a gateway.
type Caller interface {
	Call(ctx context.Context, ep Endpoint, body interface{}) (*models.Envelope, error)
}

type Client struct {
	http *apphttp.Client
	log  logger.Logger
}

func NewClient(hc *apphttp.Client, log logger.Logger) *Client {
	if hc == nil {
		hc = apphttp.NewClient(30 * time.Second)
	}
	return &Client{
		http: hc,
		log:  logger.ForComponent(log, "gateway"),
	}
}

// Call posts body to ep and decodes the envelope. A non-200 status yields a
// *errors.TransportError and the body is not parsed. So does a connection
// failure, with Status 0. The envelope's errorCode is left to the caller.
func (c *Client) Call(ctx context.Context, ep Endpoint, body interface{}) (*models.Envelope, error) {
	start := time.Now()
	fields := map[string]interface{}{"endpoint": ep.Name}

	resp, err := c.http.PostJSON(ctx, ep.URL, body)
	metrics.GatewayCallDuration.WithLabelValues(ep.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			metrics.GatewayCalls.WithLabelValues(ep.Name, metrics.OutcomeFailed).Inc()
			return nil, fmt.Errorf("call %s: %w", ep.Name, ctx.Err())
		}
		metrics.GatewayCalls.WithLabelValues(ep.Name, metrics.OutcomeTransport).Inc()
		c.log.Warn("gateway unreachable", merge(fields, map[string]interface{}{"error": err.Error()}))
		return nil, fmt.Errorf("call %s: %w", ep.Name, &apperrors.TransportError{Body: err.Error()})
	}

	if resp.StatusCode != http.StatusOK {
		metrics.GatewayCalls.WithLabelValues(ep.Name, metrics.OutcomeTransport).Inc()
		c.log.Warn("gateway returned non-200", merge(fields, map[string]interface{}{"status": resp.StatusCode}))
		return nil, &apperrors.TransportError{Status: resp.StatusCode, Body: string(resp.Body)}
	}

	var env models.Envelope
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		metrics.GatewayCalls.WithLabelValues(ep.Name, metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("decode %s envelope: %w", ep.Name, err)
	}

	outcome := metrics.OutcomeOK
	if env.ErrorCode != 0 {
		outcome = metrics.OutcomeRemote
	}
	metrics.GatewayCalls.WithLabelValues(ep.Name, outcome).Inc()

	c.log.Debug("gateway call finished", merge(fields, map[string]interface{}{
		"errorCode":  env.ErrorCode,
		"durationMs": time.Since(start).Milliseconds(),
	}))
	return &env, nil
}

func merge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
