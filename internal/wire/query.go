package wire

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// Reserved query parameters; every other parameter is a column filter
// written as col=eq.value, or col=is.null for a NULL match.
const (
	paramOrder = "order"
	paramLimit = "limit"
	opEqual    = "eq."
	opIsNull   = "is.null"
)

var (
	intColumns  = map[string]bool{types.ColumnPosition: true}
	timeColumns = map[string]bool{
		types.ColumnDueDate:   true,
		types.ColumnCreatedAt: true,
		types.ColumnUpdatedAt: true,
	}
)

// EncodeQuery renders q as URL query parameters.
func EncodeQuery(q types.Query) (url.Values, error) {
	v := url.Values{}
	for col, val := range q.Filter {
		if val == nil {
			v.Set(col, opIsNull)
			continue
		}
		s, err := formatValue(val)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", col, err)
		}
		v.Set(col, opEqual+s)
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		v.Set(paramOrder, q.OrderBy+"."+dir)
	}
	if q.Limit != 0 {
		v.Set(paramLimit, strconv.Itoa(q.Limit))
	}
	return v, nil
}

// DecodeQuery parses URL query parameters written by EncodeQuery.
func DecodeQuery(v url.Values) (types.Query, error) {
	q := types.Query{}
	for key, vals := range v {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]
		switch key {
		case paramOrder:
			col, dir, found := strings.Cut(raw, ".")
			if col == "" {
				return q, fmt.Errorf("order %q: %w", raw, types.ErrInvalidFilter)
			}
			switch {
			case !found || dir == "asc":
			case dir == "desc":
				q.Descending = true
			default:
				return q, fmt.Errorf("order %q: %w", raw, types.ErrInvalidFilter)
			}
			q.OrderBy = col
		case paramLimit:
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return q, fmt.Errorf("limit %q: %w", raw, types.ErrInvalidFilter)
			}
			q.Limit = n
		default:
			var val any
			if raw != opIsNull {
				s, ok := strings.CutPrefix(raw, opEqual)
				if !ok {
					return q, fmt.Errorf("filter %s=%q: %w", key, raw, types.ErrInvalidFilter)
				}
				parsed, err := parseValue(key, s)
				if err != nil {
					return q, fmt.Errorf("filter %s=%q: %w", key, raw, err)
				}
				val = parsed
			}
			if q.Filter == nil {
				q.Filter = types.Filter{}
			}
			q.Filter[key] = val
		}
	}
	return q, nil
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if x != math.Trunc(x) {
			return "", types.ErrInvalidFilter
		}
		return strconv.FormatInt(int64(x), 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", types.ErrInvalidFilter
	}
}

func parseValue(col, s string) (any, error) {
	switch {
	case intColumns[col]:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, types.ErrInvalidFilter
		}
		return n, nil
	case timeColumns[col]:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, types.ErrInvalidFilter
		}
		return t, nil
	default:
		return s, nil
	}
}
