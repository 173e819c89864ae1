package servicetype

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iota-uz/taxdesk/pkg/constants"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

const (
	DeclarationField   = "agreeToDeclaration"
	DeclarationMessage = "You must agree to the declaration"
	UserIDField        = "userId"
)

// Validate checks the payload against the definition's required fields and
// value rules. An empty result means the payload is valid.
func (d Definition) Validate(payload map[string]any) serrors.ValidationErrors {
	errs := serrors.ValidationErrors{}
	for _, f := range d.Fields {
		v, ok := normalizeValue(payload[f.Name], f.Kind)
		if !ok {
			errs.Add(f.Name, invalidMessage(f))
			continue
		}
		if isBlank(v) {
			errs.Add(f.Name, fmt.Sprintf("%s is required", f.Label))
			continue
		}
		if f.Rule == "" {
			continue
		}
		if msg, failed := serrors.ProcessValidatorErrors(constants.Validate.Var(v, f.Rule), f.Label, serrors.DefaultMessage); failed {
			errs.Add(f.Name, msg)
		}
	}
	if d.Declaration {
		if err := constants.Validate.Var(declared(payload[DeclarationField]), "required"); err != nil {
			errs.Add(DeclarationField, DeclarationMessage)
		}
	}
	return errs
}

// Normalize returns the payload as it is stored: strings trimmed, number
// fields parsed, and the owner and declaration keys split out.
func (d Definition) Normalize(payload map[string]any) (map[string]any, *bool) {
	kinds := make(map[string]Kind, len(d.Fields))
	for _, f := range d.Fields {
		kinds[f.Name] = f.Kind
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == UserIDField || k == DeclarationField {
			continue
		}
		if kind, ok := kinds[k]; ok {
			if nv, ok := normalizeValue(v, kind); ok {
				out[k] = nv
				continue
			}
		}
		if s, ok := v.(string); ok {
			out[k] = strings.TrimSpace(s)
			continue
		}
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil && finite(f) {
				out[k] = f
				continue
			}
			out[k] = n.String()
			continue
		}
		out[k] = v
	}

	if !d.Declaration {
		return out, nil
	}
	agreed := declared(payload[DeclarationField])
	return out, &agreed
}

// normalizeValue converts v to the field's kind: a string for KindText, a
// finite float64 for KindNumber. Anything else is reported with false.
func normalizeValue(v any, kind Kind) (any, bool) {
	switch kind {
	case KindNumber:
		return toNumber(v)
	default:
		return toText(v)
	}
}

func invalidMessage(f Field) string {
	if f.Kind == KindNumber {
		return fmt.Sprintf("%s must be a number", f.Label)
	}
	return fmt.Sprintf("%s is invalid", f.Label)
}

func toText(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		if !finite(t) {
			return v, false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return v, false
	}
}

func toNumber(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case float64:
		return t, finite(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil || !finite(f) {
			return t.String(), false
		}
		return f, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return s, false
		}
		return f, true
	default:
		return v, false
	}
}

// finite rejects NaN and the infinities, which encoding/json cannot write.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// declared accepts a JSON boolean or the string forms a form checkbox posts.
func declared(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "yes", "1":
			return true
		}
	}
	return false
}
