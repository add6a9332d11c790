package filters

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Params holds raw request filters: filter name -> string, number or list.
type Params map[string]any

// ParamsFromQuery converts a query string into Params. Repeated keys become
// []string, single keys stay plain strings.
func ParamsFromQuery(q url.Values) Params {
	p := make(Params, len(q))
	for k, vs := range q {
		switch len(vs) {
		case 0:
			p[k] = ""
		case 1:
			p[k] = vs[0]
		default:
			p[k] = append([]string(nil), vs...)
		}
	}
	return p
}

// Map exposes the params as a plain map, e.g. for CheckObjectKeys.
func (p Params) Map() map[string]any {
	return map[string]any(p)
}

func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// truthy mirrors how loosely-typed query values are tested for presence:
// nil, "", 0 and false count as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		return t != "" && t != "0"
	case []string:
		return true
	case []any:
		return true
	default:
		return true
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, x := range t {
			parts[i] = toString(x)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// toInt parses numbers the way query parameters arrive: strings, ints,
// floats or json.Number. Fractions are truncated and values outside the int
// range saturate.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		switch {
		case t > math.MaxInt:
			return math.MaxInt, true
		case t < math.MinInt:
			return math.MinInt, true
		}
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		switch {
		case t >= float64(math.MaxInt):
			return math.MaxInt, true
		case t <= float64(math.MinInt):
			return math.MinInt, true
		}
		return int(t), true
	case json.Number:
		return toInt(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return toInt(f)
	default:
		return 0, false
	}
}
