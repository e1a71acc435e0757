package render

import (
	"reflect"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
)

// InjectData renders the script that assigns data to window.<global> for
// client-side hydration. Nil data is written as {}.
//
// The JSON is HTML-escaped, so "</script>" inside string values cannot
// close the element early. Values that cannot be represented as JSON
// (channels, functions, NaN) fail with E010.
func InjectData(global string, data any) (string, error) {
	if isNil(data) {
		data = map[string]any{}
	}

	encoded, err := jsoncodec.Marshal(data)
	if err != nil {
		return "", errors.New("E010").Wrap(err)
	}

	return `<script type="text/javascript">window.` + global + " = " +
		escapeLineTerminators(string(encoded)) + "</script>", nil
}

// isNil reports whether data is nil or a typed nil map, pointer, slice
// or interface.
func isNil(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
