// Package app builds the report pipeline from a loaded configuration.
package app

import (
	"context"
	"fmt"

	"vinreport-workers/internal/aggregator"
	"vinreport-workers/internal/common/aws"
	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/common/database"
	apphttp "vinreport-workers/internal/common/http"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/validation"
	"vinreport-workers/internal/email"
	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/report"
)

// Pipeline is the set of long-lived components the workers share.
type Pipeline struct {
	Rules        *validation.Sets
	Gateway      *gateway.Client
	Aggregator   *aggregator.Aggregator
	Orchestrator *report.Orchestrator
	Dispatcher   *email.Dispatcher
	Redis        *database.RedisClient
}

// BuildPipeline wires the pipeline. The email dispatcher is only built when
// withEmail is set, so tools that never send mail skip provider setup.
func BuildPipeline(ctx context.Context, cfg *config.Config, withEmail bool, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	rules, err := validation.NewSets(Patterns(cfg.Validation))
	if err != nil {
		return nil, fmt.Errorf("compile validation rules: %w", err)
	}
	log.Debug("validation rules compiled", map[string]interface{}{
		"report":  rules.Report.Fields(),
		"send":    rules.Send.Fields(),
		"example": rules.Example.Fields(),
	})

	httpClient := apphttp.NewClient(config.GetDuration(cfg.Gateway.Timeout))
	gw := gateway.NewClient(httpClient, log)
	agg := aggregator.New(gw, aggregator.DefaultOptions(cfg.Gateway.DataURL), log)

	p := &Pipeline{Rules: rules, Gateway: gw, Aggregator: agg}

	var lease report.Lease = report.NopLease{}
	if cfg.Database.Redis.Enabled {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, err
		}
		p.Redis = rc
		lease = report.NewRedisLease(rc, cfg.Database.Redis.KeyPrefix, config.GetDuration(cfg.Database.Redis.LeaseTTL), 0)
	}

	subDatasets := cfg.Report.SubDatasets
	if len(subDatasets) == 0 {
		subDatasets = report.DefaultSubDatasets()
	}

	orch, err := report.NewOrchestrator(report.Options{
		Mask:              cfg.Report.Mask,
		CacheDisabled:     cfg.Report.CacheDisabled,
		TemplateRef:       cfg.Report.Template,
		Locale:            cfg.Report.Locale,
		SubDatasets:       subDatasets,
		GenerationTimeout: config.GetDuration(cfg.Report.GenerationTimeout),
	}, agg, report.NewHTMLRenderer(cfg.Report.TemplatesPath), report.NewStore(cfg.Report.CachePath), lease, log)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	p.Orchestrator = orch

	if withEmail {
		sender, err := newSender(ctx, cfg, gw)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Dispatcher = email.NewDispatcher(sender, cfg.Email.ContentType, log)
	}

	return p, nil
}

// Close releases the external connections.
func (p *Pipeline) Close() {
	if p.Redis != nil {
		p.Redis.Close()
	}
}

// Patterns overlays configured regular expressions on the defaults.
func Patterns(vc config.ValidationConfig) validation.Patterns {
	p := validation.DefaultPatterns()
	if vc.STS != "" {
		p.STS = vc.STS
	}
	if vc.VIN != "" {
		p.VIN = vc.VIN
	}
	if vc.GRZ != "" {
		p.GRZ = vc.GRZ
	}
	if vc.Email != "" {
		p.Email = vc.Email
	}
	return p
}

func newSender(ctx context.Context, cfg *config.Config, gw gateway.Caller) (email.Sender, error) {
	switch cfg.Email.Provider {
	case config.EmailProviderSES:
		client, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		return email.NewSESSender(client, cfg.AWS.SES.FromEmail)
	case config.EmailProviderGateway, "":
		return email.NewGatewaySender(gw, cfg.Gateway.EmailURL), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Email.Provider)
	}
}
