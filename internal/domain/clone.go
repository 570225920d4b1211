package domain

import (
	"maps"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

// NewID returns a fresh identifier for entities created inside the suite.
func NewID() string {
	return uuid.NewString()
}

type cloner interface {
	cloneValue() any
}

// CloneValue deep-copies the container shapes module-local data is built from
// (string-keyed maps and slices) plus the canonical entities of this package.
// Any other value is returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case cloner:
		return t.cloneValue()
	case map[string]any:
		return CloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i := range t {
			out[i] = CloneValue(t[i])
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]map[string]any, len(t))
		for i := range t {
			out[i] = CloneMap(t[i])
		}
		return out
	case []SignTypeDescriptor:
		return cloneEach(t, SignTypeDescriptor.Clone)
	case []SignInstance:
		return cloneEach(t, SignInstance.Clone)
	case []DesignTemplate:
		return cloneEach(t, DesignTemplate.Clone)
	case map[string]string:
		return maps.Clone(t)
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

func cloneEach[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i := range in {
		out[i] = clone(in[i])
	}
	return out
}

// CloneMap deep-copies a module-local record.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

func decodeLegacy(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(textFieldHook),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// decodeTolerant decodes data into T. When some keys do not decode, the
// remaining keys are decoded normally and the failing ones are returned
// untouched so the caller can carry them verbatim.
func decodeTolerant[T any](data map[string]any) (T, map[string]any) {
	var out T
	if err := decodeLegacy(data, &out); err == nil {
		return out, nil
	}
	clean := make(map[string]any, len(data))
	rejected := map[string]any{}
	for key, value := range data {
		var probe T
		if decodeLegacy(map[string]any{key: value}, &probe) != nil {
			rejected[key] = CloneValue(value)
			continue
		}
		clean[key] = value
	}
	out = *new(T)
	_ = decodeLegacy(clean, &out)
	return out, rejected
}

func mergeExtra(dst map[string]any, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = CloneValue(v)
	}
	return dst
}
