package app

import (
	"fmt"

	"vinreport-workers/internal/common/camunda"
	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/observability"
	examplesend "vinreport-workers/internal/workers/report/example-send"
	"vinreport-workers/internal/workers/report/generate"
	"vinreport-workers/internal/workers/report/send"
)

// RegisterWorkers builds the three report handlers and opens a job worker
// for each enabled task type. It returns the number of workers started.
func RegisterWorkers(cfg *config.Config, p *Pipeline, workers *camunda.Workers, obs *observability.Observability, log logger.Logger) (int, error) {
	started := 0

	genCfg := config.GetWorkerConfig(cfg, generate.TaskType)
	if genCfg.Enabled {
		h, err := generate.NewHandler(generate.FromWorkerConfig(genCfg), p.Rules.Report, p.Orchestrator, obs, log)
		if err != nil {
			return started, fmt.Errorf("%s: %w", generate.TaskType, err)
		}
		if workers.Start(generate.TaskType, genCfg, h.Handle) {
			started++
		}
	}

	sendCfg := config.GetWorkerConfig(cfg, send.TaskType)
	if sendCfg.Enabled {
		wc, err := send.LoadConfig(sendCfg, cfg.Email)
		if err != nil {
			return started, fmt.Errorf("%s: %w", send.TaskType, err)
		}
		h, err := send.NewHandler(wc, p.Rules.Send, p.Orchestrator, p.Dispatcher, obs, log)
		if err != nil {
			return started, fmt.Errorf("%s: %w", send.TaskType, err)
		}
		if workers.Start(send.TaskType, sendCfg, h.Handle) {
			started++
		}
	}

	exampleCfg := config.GetWorkerConfig(cfg, examplesend.TaskType)
	if exampleCfg.Enabled {
		wc, err := examplesend.LoadConfig(exampleCfg, cfg.Email, cfg.Report)
		if err != nil {
			return started, fmt.Errorf("%s: %w", examplesend.TaskType, err)
		}
		h, err := examplesend.NewHandler(wc, p.Rules.Example, p.Dispatcher, obs, log)
		if err != nil {
			return started, fmt.Errorf("%s: %w", examplesend.TaskType, err)
		}
		if workers.Start(examplesend.TaskType, exampleCfg, h.Handle) {
			started++
		}
	}

	return started, nil
}
