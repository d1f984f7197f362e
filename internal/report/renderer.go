package report

import (
	"context"
	"sort"

	"vinreport-workers/internal/models"
)

// DefaultLocale is the locale reports are rendered in.
const DefaultLocale = "ru-RU"

// RenderRequest is everything a renderer gets for one report.
type RenderRequest struct {
	Document    *models.Document
	SubDatasets map[string][]interface{}
	TemplateRef string
	Locale      string
}

// Renderer turns a merged document into artifact bytes.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// DefaultSubDatasets maps sub-dataset names to their path in the document.
func DefaultSubDatasets() map[string]string {
	return map[string]string{
		"SUB_DATA_SOURCE_OWNERS":           "VladHist.VladHistTable",
		"SUB_DATA_SOURCE_TECH_INSPECTIONS": "GTO_Part.GTO",
		"SUB_DATA_SOURCE_INSURANCE_CASES":  "Insurance_Part.Insurance",
		"SUB_DATA_SOURCE_ACCIDENTS":        "DTP_Part.DTP",
		"SUB_DATA_SOURCE_COMMERCIAL_USES":  "Kommercial_Part.Kommercial",
		"SUB_DATA_SOURCE_FINES":            models.FinesKey,
	}
}

// SubDatasets slices doc into independently iterable record sequences.
// An array yields its items, any other value a single record, and a
// missing path an empty sequence.
func SubDatasets(doc *models.Document, paths map[string]string) map[string][]interface{} {
	out := make(map[string][]interface{}, len(paths))
	for name, path := range paths {
		v, ok := doc.Lookup(path)
		switch {
		case !ok || v == nil:
			out[name] = []interface{}{}
		default:
			if list, isList := v.([]interface{}); isList {
				out[name] = list
			} else {
				out[name] = []interface{}{v}
			}
		}
	}
	return out
}

// SubDatasetNames returns the configured names in a stable order.
func SubDatasetNames(paths map[string]string) []string {
	names := make([]string, 0, len(paths))
	for n := range paths {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
