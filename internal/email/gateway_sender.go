package email

import (
	"context"

	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/models"
)

const ProviderGateway = "gateway"

// GatewaySender posts the mail to the remote email endpoint.
type GatewaySender struct {
	caller   gateway.Caller
	endpoint gateway.Endpoint
}

func NewGatewaySender(caller gateway.Caller, emailURL string) *GatewaySender {
	return &GatewaySender{
		caller:   caller,
		endpoint: gateway.Endpoint{Name: "email", URL: emailURL},
	}
}

func (s *GatewaySender) Name() string { return ProviderGateway }

// Send returns the envelope's result, false when it is missing or not
// boolean-like. A nonzero errorCode comes back as *errors.RemoteError.
func (s *GatewaySender) Send(ctx context.Context, msg Message) (bool, error) {
	req := gateway.BuildEmailRequestWith(msg.Params, msg.Subject, msg.Body,
		models.NewAttachment(msg.Filename, msg.ContentType, msg.Content))

	env, err := s.caller.Call(ctx, s.endpoint, req)
	if err != nil {
		return false, err
	}
	if err := env.Err(); err != nil {
		return false, err
	}
	return env.BoolResult(), nil
}
