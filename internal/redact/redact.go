// Package redact strips vendor-identifying data from payloads before they
// leave the trust boundary.
package redact

import "strings"

// Redactor rewrites decoded JSON payloads so nothing downstream can tell
// which vendor produced them. The zero value is not usable; construct with
// New or Default.
type Redactor struct {
	markers      []string
	vendorName   string
	platformName string
}

// Default vendor-identity markers. A field whose name contains any of these
// (case-insensitive) is dropped wherever it appears. The substrings cover
// vendor_id, vendor_name, vendor_contact, customerscout_id, cs_id and
// every other vendor-prefixed field the vendor emits.
var defaultMarkers = []string{
	"vendor",
	"customerscout",
	"cs_",
}

func New(markers []string, vendorName, platformName string) *Redactor {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &Redactor{
		markers:      lowered,
		vendorName:   vendorName,
		platformName: platformName,
	}
}

// Default returns a Redactor configured for the CustomerScout relay.
func Default() *Redactor {
	return New(defaultMarkers, "CustomerScout", "Rylie SEO")
}

// Redact returns a sanitized copy of payload. The input is never mutated:
// the caller may audit the verbatim payload before or after this call.
// Redaction is total (unmatched fields pass through) and idempotent.
func (r *Redactor) Redact(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	return r.redactObject(payload)
}

// RedactValue sanitizes an arbitrary decoded JSON value. The walk is a
// structural fold over the closed set of shapes encoding/json produces:
// object, array, string, number, bool, null.
func (r *Redactor) RedactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return r.redactObject(v)
	case []interface{}:
		return r.redactList(v)
	case string:
		return strings.ReplaceAll(v, r.vendorName, r.platformName)
	default:
		// numbers, bools, null: nothing vendor-identifying to carry
		return v
	}
}

func (r *Redactor) redactObject(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for key, value := range obj {
		if r.matchesMarker(key) {
			continue
		}
		out[key] = r.RedactValue(value)
	}
	return out
}

// redactList recurses element-wise only when every element is itself an
// object; lists of scalars pass through as a copy.
func (r *Redactor) redactList(list []interface{}) []interface{} {
	allObjects := len(list) > 0
	for _, item := range list {
		if _, ok := item.(map[string]interface{}); !ok {
			allObjects = false
			break
		}
	}

	out := make([]interface{}, len(list))
	if allObjects {
		for i, item := range list {
			out[i] = r.redactObject(item.(map[string]interface{}))
		}
		return out
	}
	copy(out, list)
	return out
}

func (r *Redactor) matchesMarker(key string) bool {
	lowered := strings.ToLower(key)
	for _, marker := range r.markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
