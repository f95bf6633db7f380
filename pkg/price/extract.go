package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MaxDepth bounds recursion into nested maps and slices.
const MaxDepth = 10

// ErrUnrecognizedPriceShape is returned when no numeric price can be located.
var ErrUnrecognizedPriceShape = errors.New("unrecognized price shape")

// KnownFields are tried, in order, before any other key of a map.
var KnownFields = []string{
	"ltp",
	"price",
	"last_price",
	"lastPrice",
	"LastTradedPrice",
	"closePrice",
	"lastPr",
}

// Extract returns a single float price from a broker response of unknown shape:
// a number, a numeric string, a map holding a known price field at any depth,
// or a slice whose first element holds a price.
func Extract(v any) (float64, error) {
	p, err := extract(v, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %T", ErrUnrecognizedPriceShape, v)
	}
	return p, nil
}

func extract(v any, depth int) (float64, error) {
	if depth > MaxDepth {
		return 0, ErrUnrecognizedPriceShape
	}

	switch x := v.(type) {
	case nil:
		return 0, ErrUnrecognizedPriceShape
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case json.Number:
		return parse(string(x))
	case string:
		return parse(x)
	case []byte:
		return parse(string(x))
	case map[string]any:
		return fromMap(x, depth)
	case []any:
		if len(x) == 0 {
			return 0, ErrUnrecognizedPriceShape
		}
		return extract(x[0], depth+1)
	}

	// Small or named numerics, typed maps and slices (map[string]string, []map[string]any, ...).
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	case rv.CanFloat():
		return finite(rv.Float())
	case rv.Kind() == reflect.String:
		return parse(rv.String())
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return 0, ErrUnrecognizedPriceShape
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromMap(m, depth)
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return 0, ErrUnrecognizedPriceShape
		}
		return extract(rv.Index(0).Interface(), depth+1)
	case reflect.Pointer:
		if rv.IsNil() {
			return 0, ErrUnrecognizedPriceShape
		}
		return extract(rv.Elem().Interface(), depth+1)
	}

	return 0, ErrUnrecognizedPriceShape
}

func fromMap(m map[string]any, depth int) (float64, error) {
	for _, k := range KnownFields {
		if val, ok := m[k]; ok {
			if p, err := extract(val, depth+1); err == nil {
				return p, nil
			}
		}
	}

	// Depth-first over the remaining values; sorted so the result is stable.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p, err := extract(m[k], depth+1); err == nil {
			return p, nil
		}
	}
	return 0, ErrUnrecognizedPriceShape
}

func parse(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, ErrUnrecognizedPriceShape
	}
	return finite(f)
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrUnrecognizedPriceShape
	}
	return f, nil
}
