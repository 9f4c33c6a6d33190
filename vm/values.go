package vm

import (
	"fmt"
	"strconv"
)

// stringify renders a primitive runtime value in its canonical textual form,
// used both by the to_string intrinsic and by OP_ADD's mixed-type
// string concatenation.
func stringify(value any) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truthy(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}
