// Package report names, caches and generates vehicle history artifacts.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/metrics"
	"vinreport-workers/internal/macro"
	"vinreport-workers/internal/models"
)

var (
	ErrRenderFailed = errors.New("RENDER_FAILED")
	ErrStoreFailed  = errors.New("STORE_FAILED")
)

// Fetcher supplies the merged vehicle document. *aggregator.Aggregator
// implements it.
type Fetcher interface {
	FetchVehicleDocument(ctx context.Context, params models.Params) (*models.Document, error)
}

type Options struct {
	// Mask is the macro template the artifact name is resolved from.
	Mask          string
	CacheDisabled bool
	TemplateRef   string
	Locale        string
	SubDatasets   map[string]string
	// GenerationTimeout bounds one aggregate+render+store cycle. It is
	// independent of any single caller's deadline.
	GenerationTimeout time.Duration
}

func (o Options) Validate() error {
	if o.Mask == "" {
		return fmt.Errorf("report mask is required")
	}
	if o.TemplateRef == "" {
		return fmt.Errorf("report template is required")
	}
	return nil
}

// Orchestrator resolves the artifact name for a request, serves it from the
// store when present and otherwise generates it. Identical concurrent requests
// share one generation; differing requests for the same name run one after
// another, each re-checking the store first.
type Orchestrator struct {
	opts     Options
	fetcher  Fetcher
	renderer Renderer
	store    *Store
	lease    Lease
	log      logger.Logger

	inflight singleflight.Group
	names    nameLocks
}

func NewOrchestrator(opts Options, fetcher Fetcher, renderer Renderer, store *Store, lease Lease, log logger.Logger) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil || renderer == nil || store == nil {
		return nil, fmt.Errorf("fetcher, renderer and store are required")
	}
	if lease == nil {
		lease = NopLease{}
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.SubDatasets == nil {
		opts.SubDatasets = DefaultSubDatasets()
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 2 * time.Minute
	}
	o := &Orchestrator{
		opts:     opts,
		fetcher:  fetcher,
		renderer: renderer,
		store:    store,
		lease:    lease,
		log:      logger.ForComponent(log, "report"),
	}
	o.log.Info("artifact cache configured", map[string]interface{}{
		"cacheDir":      store.Dir(),
		"maskParams":    macro.Names(opts.Mask),
		"cacheDisabled": opts.CacheDisabled,
		"template":      opts.TemplateRef,
		"subDatasets":   SubDatasetNames(opts.SubDatasets),
	})
	return o, nil
}

// ArtifactName resolves the configured mask against params.
func (o *Orchestrator) ArtifactName(params models.Params) string {
	return macro.Resolve(o.opts.Mask, params)
}

// GetArtifact returns the artifact for params, generating it on a miss.
func (o *Orchestrator) GetArtifact(ctx context.Context, params models.Params) (*Artifact, error) {
	name := o.ArtifactName(params)
	if err := checkName(name); err != nil {
		return nil, err
	}
	log := o.log.WithFields(map[string]interface{}{"artifact": name})

	if o.opts.CacheDisabled {
		metrics.ReportCacheLookups.WithLabelValues(metrics.CacheDisabled).Inc()
	} else {
		art, hit, err := o.store.Lookup(name)
		if err != nil {
			return nil, err
		}
		if hit {
			metrics.ReportCacheLookups.WithLabelValues(metrics.CacheHit).Inc()
			log.Debug("cache hit", nil)
			return art, nil
		}
		metrics.ReportCacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		log.Debug("cache miss", nil)
	}

	ch := o.inflight.DoChan(flightKey(name, params), func() (interface{}, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.GenerationTimeout)
		defer cancel()
		return o.generateLeased(genCtx, name, params, log)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for %s: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			metrics.ReportGenerationsCollapsed.Inc()
		}
		art := *res.Val.(*Artifact)
		return &art, nil
	}
}

// flightKey identifies requests that may share one generation: same artifact
// name and the same parameters, token included.
func flightKey(name string, params models.Params) string {
	keys := params.Keys()
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		v, _ := params.Get(k)
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

func (o *Orchestrator) generateLeased(ctx context.Context, name string, params models.Params, log logger.Logger) (*Artifact, error) {
	unlock, err := o.names.lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	release, err := o.lease.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another flight or process may have finished it while we waited.
	if !o.opts.CacheDisabled {
		if art, hit, err := o.store.Lookup(name); err != nil {
			return nil, err
		} else if hit {
			log.Debug("artifact appeared while waiting for lease", nil)
			return art, nil
		}
	}

	return o.generate(ctx, name, params, log)
}

func (o *Orchestrator) generate(ctx context.Context, name string, params models.Params, log logger.Logger) (*Artifact, error) {
	start := time.Now()
	log.Info("generating report", nil)

	doc, err := o.fetcher.FetchVehicleDocument(ctx, params)
	if err != nil {
		return nil, err
	}

	data, err := o.renderer.Render(ctx, RenderRequest{
		Document:    doc,
		SubDatasets: SubDatasets(doc, o.opts.SubDatasets),
		TemplateRef: o.opts.TemplateRef,
		Locale:      o.opts.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	art, err := o.store.Write(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	elapsed := time.Since(start)
	metrics.ReportGenerationDuration.Observe(elapsed.Seconds())
	log.Info("report ready", map[string]interface{}{
		"sizeBytes":    art.Size,
		"historyFound": doc.HistoryFound,
		"durationMs":   elapsed.Milliseconds(),
	})
	return art, nil
}

// nameLocks serializes generations per artifact name within the process.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	sem  chan struct{}
	refs int
}

func (l *nameLocks) lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*nameLock)
	}
	nl, ok := l.locks[name]
	if !ok {
		nl = &nameLock{sem: make(chan struct{}, 1)}
		l.locks[name] = nl
	}
	nl.refs++
	l.mu.Unlock()

	select {
	case nl.sem <- struct{}{}:
		return func() {
			<-nl.sem
			l.drop(name, nl)
		}, nil
	case <-ctx.Done():
		l.drop(name, nl)
		return nil, fmt.Errorf("wait for %s: %w", name, ctx.Err())
	}
}

func (l *nameLocks) drop(name string, nl *nameLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nl.refs--
	if nl.refs == 0 {
		delete(l.locks, name)
	}
}
