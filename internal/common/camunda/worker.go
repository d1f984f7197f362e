// internal/common/camunda/worker.go
package camunda

import (
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/common/logger"
)

// Workers opens job workers on one Zeebe client and closes them together.
type Workers struct {
	client zbc.Client
	log    logger.Logger

	mu      sync.Mutex
	running map[string]worker.JobWorker
}

func NewWorkers(client zbc.Client, log logger.Logger) *Workers {
	return &Workers{
		client:  client,
		log:     logger.ForComponent(log, "camunda"),
		running: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless it is disabled or already
// running. It reports whether a worker was opened.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		w.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.running[taskType]; ok {
		return false
	}

	w.running[taskType] = w.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	w.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Running lists the task types with an open worker.
func (w *Workers) Running() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.running))
	for t := range w.running {
		out = append(out, t)
	}
	return out
}

// Stop closes every worker and waits for in-flight jobs to finish.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jw := range w.running {
		w.log.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jw.Close()
		jw.AwaitClose()
		delete(w.running, taskType)
	}
}
