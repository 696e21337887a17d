package model

// Payload is a semi-structured value produced by a phase or task. The prompt
// contract upstream is loosely typed, so phase outputs stay as JSON-like maps;
// a failed task is represented by the same shape carrying an "error" key.
type Payload map[string]any

// ErrorPayload builds the degraded form of a failed task result.
func ErrorPayload(err error) Payload {
	if err == nil {
		return Payload{"error": "unknown error"}
	}
	return Payload{"error": err.Error()}
}

// IsError reports whether the payload is a degraded error marker.
func (p Payload) IsError() bool {
	if p == nil {
		return false
	}
	_, ok := p["error"]
	return ok
}

// ErrorMessage returns the error text of a degraded payload, or "".
func (p Payload) ErrorMessage() string {
	if p == nil {
		return ""
	}
	if msg, ok := p["error"].(string); ok {
		return msg
	}
	return ""
}

// Number reads a numeric field, accepting the types encoding/json produces.
func (p Payload) Number(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String reads a string field, returning "" when absent or mistyped.
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy. Phase context is threaded by accumulation, so
// each phase gets its own top-level map to write into.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
