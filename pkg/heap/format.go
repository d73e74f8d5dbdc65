package heap

import (
	"fmt"
	"math"
	"strconv"

	"loxvm/pkg/value"
)

// Format renders v the way print shows it
func (h *Heap) Format(v value.Value) string {
	switch v.Kind {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return FormatNumber(v.AsNumber())
	case value.KindObject:
		return h.formatObject(v.AsRef())
	default:
		return fmt.Sprintf("<unknown %v>", v.Kind)
	}
}

// UpvalueCount returns the capture count of a function constant, 0 otherwise
func (h *Heap) UpvalueCount(v value.Value) int {
	if !h.IsType(v, TypeFunction) {
		return 0
	}
	return h.AsFunction(v.AsRef()).UpvalueCount
}

// FormatNumber matches C's %g: six significant digits, and inf/nan spelled
// the IEEE 754 way.
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', 6, 64)
}

func (h *Heap) formatObject(ref value.Ref) string {
	switch o := h.Get(ref).(type) {
	case *ObjString:
		return o.Chars
	case *ObjFunction:
		return h.formatFunction(o)
	case *ObjClosure:
		return h.formatFunction(h.AsFunction(o.Function))
	case *ObjNative:
		return "<native fn>"
	case *ObjUpvalue:
		return "upvalue"
	default:
		return "<object>"
	}
}

func (h *Heap) formatFunction(fn *ObjFunction) string {
	if fn.Name.IsNull() {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", h.AsString(fn.Name).Chars)
}
