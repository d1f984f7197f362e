// Package aggregator builds the vehicle document from the history and
// offence data sets.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/models"
)

const (
	HistoryDataSet = "avtokod-history"
	OffenceDataSet = "offence-avtokod-sts"
)

var ErrMalformedResult = errors.New("MALFORMED_RESULT")

// Options selects data sets and the terms sent with each.
type Options struct {
	Endpoint       gateway.Endpoint
	HistoryDataSet string
	HistoryTerms   []string
	OffenceDataSet string
	OffenceTerms   []string
}

// DefaultOptions targets the production data sets at dataURL.
func DefaultOptions(dataURL string) Options {
	return Options{
		Endpoint:       gateway.Endpoint{Name: "data", URL: dataURL},
		HistoryDataSet: HistoryDataSet,
		HistoryTerms:   append([]string(nil), models.IdentifyingFields...),
		OffenceDataSet: OffenceDataSet,
		OffenceTerms:   []string{"sts"},
	}
}

type Aggregator struct {
	caller gateway.Caller
	opts   Options
	log    logger.Logger
}

func New(caller gateway.Caller, opts Options, log logger.Logger) *Aggregator {
	return &Aggregator{
		caller: caller,
		opts:   opts,
		log:    logger.ForComponent(log, "aggregator"),
	}
}

// FetchVehicleDocument queries both data sets concurrently and merges them.
// A remote failure of either call is returned as-is; when both fail the
// history error wins.
func (a *Aggregator) FetchVehicleDocument(ctx context.Context, params models.Params) (*models.Document, error) {
	start := time.Now()

	var history, offence map[string]interface{}
	var histErr error

	// Plain Group: one failing call must not cancel the other, so the
	// history error can still take precedence.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		history, err = a.fetchHistory(ctx, params)
		histErr = err
		return err
	})
	g.Go(func() error {
		var err error
		offence, err = a.fetchOffence(ctx, params)
		return err
	})
	if err := g.Wait(); err != nil {
		if histErr != nil {
			return nil, histErr
		}
		return nil, err
	}

	doc := Merge(history, offence, params)
	_, hasFines := doc.Fines()
	a.log.Info("vehicle document assembled", map[string]interface{}{
		"historyFound": doc.HistoryFound,
		"hasFines":     hasFines,
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return doc, nil
}

// Merge attaches the offence record under "fines" and overwrites CommonInfo
// with the identifying fields from params. A nil history yields an empty
// root with HistoryFound false.
func Merge(history, offence map[string]interface{}, params models.Params) *models.Document {
	doc := &models.Document{Root: history, HistoryFound: history != nil}
	if doc.Root == nil {
		doc.Root = make(map[string]interface{})
	}

	if offence != nil {
		doc.Root[models.FinesKey] = offence
	}

	info := make(map[string]interface{}, len(models.IdentifyingFields))
	for _, f := range models.IdentifyingFields {
		if v, ok := params.Get(f); ok {
			info[f] = v
		} else {
			info[f] = nil
		}
	}
	doc.Root[models.CommonInfoKey] = info
	return doc
}

func (a *Aggregator) fetchHistory(ctx context.Context, params models.Params) (map[string]interface{}, error) {
	env, err := a.query(ctx, a.opts.HistoryDataSet, params, a.opts.HistoryTerms)
	if err != nil {
		return nil, err
	}
	v, err := decodeResult(env.Result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.opts.HistoryDataSet, err)
	}
	return asRecord(a.opts.HistoryDataSet, v)
}

func (a *Aggregator) fetchOffence(ctx context.Context, params models.Params) (map[string]interface{}, error) {
	env, err := a.query(ctx, a.opts.OffenceDataSet, params, a.opts.OffenceTerms)
	if err != nil {
		return nil, err
	}
	v, err := decodeResult(env.Result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.opts.OffenceDataSet, err)
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list: %w", a.opts.OffenceDataSet, ErrMalformedResult)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return asRecord(a.opts.OffenceDataSet, list[0])
}

func (a *Aggregator) query(ctx context.Context, dataSet string, params models.Params, terms []string) (*models.Envelope, error) {
	env, err := a.caller.Call(ctx, a.opts.Endpoint, gateway.BuildDataRequest(dataSet, params, terms))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dataSet, err)
	}
	if err := env.Err(); err != nil {
		a.log.Warn("data set returned an error", map[string]interface{}{
			"dataSet": dataSet,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%s: %w", dataSet, err)
	}
	return env, nil
}

// asRecord maps an empty structure to absent and rejects non-objects.
func asRecord(dataSet string, v interface{}) (map[string]interface{}, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		if len(r) == 0 {
			return nil, nil
		}
		return r, nil
	case []interface{}:
		if len(r) == 0 {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%s: expected an object, got %T: %w", dataSet, v, ErrMalformedResult)
}

func decodeResult(raw json.RawMessage) (interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return v, nil
}
