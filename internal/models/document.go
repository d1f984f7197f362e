// internal/models/document.go
package models

import (
	"encoding/json"
	"strings"
)

const (
	FinesKey      = "fines"
	CommonInfoKey = "CommonInfo"
)

// IdentifyingFields are copied verbatim from the request into CommonInfo.
var IdentifyingFields = []string{"sts", "vin", "grz"}

// Document is the merged vehicle history handed to the renderer.
//
// Root is always a usable object once aggregation finishes. HistoryFound is
// false when the history data set returned nothing, which keeps "no data"
// distinguishable from an empty history object.
type Document struct {
	Root         map[string]interface{}
	HistoryFound bool
}

// Fines returns the offence record attached under FinesKey.
func (d *Document) Fines() (interface{}, bool) {
	if d == nil || d.Root == nil {
		return nil, false
	}
	v, ok := d.Root[FinesKey]
	return v, ok
}

// CommonInfo returns the identifying block written from the request.
func (d *Document) CommonInfo() map[string]interface{} {
	if d == nil || d.Root == nil {
		return nil
	}
	info, _ := d.Root[CommonInfoKey].(map[string]interface{})
	return info
}

// Lookup walks a dotted path ("GTO_Part.GTO") through nested objects.
func (d *Document) Lookup(path string) (interface{}, bool) {
	if d == nil || d.Root == nil {
		return nil, false
	}
	var cur interface{} = d.Root
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (d Document) MarshalJSON() ([]byte, error) {
	if d.Root == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Root)
}
