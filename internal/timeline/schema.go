package timeline

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linuxmatters/jivemix/internal/errors"
)

// fieldValidator wraps go-playground/validator with timeline error
// conversion.
type fieldValidator struct {
	v *validator.Validate
}

func newValidator() *fieldValidator {
	v := validator.New()

	// Report document key names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" {
			return fld.Name
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return &fieldValidator{v: v}
}

// check validates s and returns a TIMELINE error listing every failing
// field.
func (fv *fieldValidator) check(s any) error {
	err := fv.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, errors.CodeTimeline, "timeline validation failed")
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[fieldPath(e.Namespace())] = friendlyMessage(e)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + fields[k]
	}
	return errors.Timelinef("invalid timeline: %s", strings.Join(parts, "; ")).WithDetails(fields)
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "min":
		return fmt.Sprintf("must have at least %s entries", e.Param())
	default:
		return "is invalid"
	}
}
