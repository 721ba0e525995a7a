package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/orders-service/internal/apperr"
)

// Error describes the first schema violation found in a value.
type Error struct {
	Path   string // JSON pointer, "/" for the document root
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Path, e.Reason)
}

// Is makes every *Error match apperr.ErrValidation.
func (e *Error) Is(target error) bool { return target == apperr.ErrValidation }

// Validator checks decoded JSON values against a Schema. Structure (types,
// required properties, nesting) is walked here; bounds and formats are
// delegated to validator/v10 rules.
type Validator struct {
	v *validatorv10.Validate
}

// New returns a ready Validator. It is safe for concurrent use.
func New() *Validator {
	return &Validator{v: validatorv10.New()}
}

// Validate returns nil when value satisfies schema, otherwise an *Error.
// value is expected to come from Decode (or ToValue) so numbers are json.Number.
func (val *Validator) Validate(schema *Schema, value any) error {
	return val.check(schema, value, "")
}

func (val *Validator) check(s *Schema, value any, path string) error {
	if s == nil {
		return nil
	}
	if s.Type != "" && !hasType(value, s.Type) {
		return fail(path, fmt.Sprintf("must be %s", s.Type))
	}

	switch v := value.(type) {
	case map[string]any:
		return val.checkObject(s, v, path)
	case []any:
		return val.checkArray(s, v, path)
	case string:
		if s.Format == FormatDateTime {
			if err := val.v.Var(v, "datetime="+time.RFC3339); err != nil {
				return fail(path, fmt.Sprintf("must match format %q", s.Format))
			}
		}
	}

	if s.Minimum != nil {
		if n, ok := toFloat(value); ok {
			if err := val.v.Var(n, "gte="+strconv.FormatFloat(*s.Minimum, 'f', -1, 64)); err != nil {
				return fail(path, fmt.Sprintf("must be >= %v", *s.Minimum))
			}
		}
	}
	return nil
}

func (val *Validator) checkObject(s *Schema, obj map[string]any, path string) error {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			return fail(path, fmt.Sprintf("must have required property '%s'", name))
		}
	}
	if s.MinProperties != nil {
		if err := val.v.Var(obj, fmt.Sprintf("min=%d", *s.MinProperties)); err != nil {
			return fail(path, fmt.Sprintf("must NOT have fewer than %d properties", *s.MinProperties))
		}
	}
	if s.MaxProperties != nil {
		if err := val.v.Var(obj, fmt.Sprintf("max=%d", *s.MaxProperties)); err != nil {
			return fail(path, fmt.Sprintf("must NOT have more than %d properties", *s.MaxProperties))
		}
	}

	if s.Closed {
		extra := make([]string, 0)
		for name := range obj {
			if _, known := s.Properties[name]; !known {
				extra = append(extra, name)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return fail(path+"/"+extra[0], "must NOT have additional properties")
		}
	}

	// deterministic order so the reported violation is stable
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child, ok := obj[name]
		if !ok {
			continue
		}
		if err := val.check(s.Properties[name], child, path+"/"+name); err != nil {
			return err
		}
	}
	return nil
}

func (val *Validator) checkArray(s *Schema, arr []any, path string) error {
	if s.MinItems != nil {
		if err := val.v.Var(arr, fmt.Sprintf("min=%d", *s.MinItems)); err != nil {
			return fail(path, fmt.Sprintf("must NOT have fewer than %d items", *s.MinItems))
		}
	}
	for i, item := range arr {
		if err := val.check(s.Items, item, fmt.Sprintf("%s/%d", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func hasType(value any, t Type) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeNumber:
		_, ok := toFloat(value)
		return ok
	case TypeInteger:
		// integers must also fit an int64 so typed decoding agrees with the schema
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			var numErr *strconv.NumError
			// out of range numbers are still numbers
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return f, true
			}
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func fail(path, reason string) error {
	if path == "" {
		path = "/"
	}
	return &Error{Path: path, Reason: reason}
}
