// Package interp is the tree-walking evaluator: runtime values, the frame
// and heap store, lvalue handles, the standard library, file I/O, and the
// statement/expression evaluator itself.
package interp

import (
	"fmt"
	"sort"

	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
)

// Value is a runtime value: a semantic type paired with exactly the payload
// that type needs. Composite payloads (Array, Record, Set) are mutable
// through their slice/map so in-place lvalue writes are visible through
// every alias that shares them.
type Value struct {
	Type   types.Type
	I      int32
	R      float64
	B      bool
	C      rune
	S      string
	D      numeric.Date
	Arr    *ArrayValue
	Rec    *RecordValue
	Set    map[int32]bool
	Ptr    int64 // heap address; 0 means null
	Obj    int64 // object id; 0 means null
	Handle *FileHandle
}

// ArrayValue is a flat row-major element store plus the bounds needed to
// compute an offset from an index tuple.
type ArrayValue struct {
	Bounds []types.Bound
	Elems  []Value
}

func (a *ArrayValue) offset(indices []int32) (int, error) {
	off := 0
	for i, idx := range indices {
		b := a.Bounds[i]
		if idx < b.Low || idx > b.High {
			return 0, fmt.Errorf("index %d out of bounds [%d:%d]", idx, b.Low, b.High)
		}
		off = off*int(b.Size()) + int(idx-b.Low)
	}
	return off, nil
}

// Get returns the element at indices.
func (a *ArrayValue) Get(indices []int32) (Value, error) {
	off, err := a.offset(indices)
	if err != nil {
		return Value{}, err
	}
	return a.Elems[off], nil
}

// Set stores v at indices.
func (a *ArrayValue) Set(indices []int32, v Value) error {
	off, err := a.offset(indices)
	if err != nil {
		return err
	}
	a.Elems[off] = v
	return nil
}

// Clone deep-copies the array, including nested composite elements.
func (a *ArrayValue) Clone() *ArrayValue {
	out := &ArrayValue{Bounds: append([]types.Bound(nil), a.Bounds...), Elems: make([]Value, len(a.Elems))}
	for i, e := range a.Elems {
		out.Elems[i] = e.Clone()
	}
	return out
}

// RecordValue is an ordered field-name -> value store, order preserved for
// the binary codec and deterministic iteration.
type RecordValue struct {
	Names  []string
	Fields map[string]Value
}

func (r *RecordValue) Get(name string) Value { return r.Fields[name] }
func (r *RecordValue) Set(name string, v Value) {
	if _, ok := r.Fields[name]; !ok {
		r.Names = append(r.Names, name)
	}
	r.Fields[name] = v
}

// Clone deep-copies the record.
func (r *RecordValue) Clone() *RecordValue {
	out := &RecordValue{Names: append([]string(nil), r.Names...), Fields: make(map[string]Value, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v.Clone()
	}
	return out
}

// Clone deep-copies composite payloads (array, record, set) and leaves
// scalar/reference payloads (pointer, class, file handle) untouched, per
// the spec's "assignments copy the right-hand side: arrays/records/sets are
// deep-copied; pointer and class values are reference-copied" rule.
func (v Value) Clone() Value {
	out := v
	if v.Arr != nil {
		out.Arr = v.Arr.Clone()
	}
	if v.Rec != nil {
		out.Rec = v.Rec.Clone()
	}
	if v.Set != nil {
		out.Set = make(map[int32]bool, len(v.Set))
		for k := range v.Set {
			out.Set[k] = true
		}
	}
	return out
}

// Zero builds the lifecycle default value for t: "variables are created on
// block entry with default values".
func Zero(t types.Type) Value {
	switch tt := t.(type) {
	case *types.ArrayType:
		count := 1
		for _, b := range tt.Bounds {
			count *= int(b.Size())
		}
		elems := make([]Value, count)
		for i := range elems {
			elems[i] = Zero(tt.Element)
		}
		return Value{Type: t, Arr: &ArrayValue{Bounds: tt.Bounds, Elems: elems}}
	case *types.RecordType:
		rv := &RecordValue{Fields: make(map[string]Value, len(tt.Fields))}
		for _, f := range tt.Fields {
			rv.Set(f.Name, Zero(f.Type))
		}
		return Value{Type: t, Rec: rv}
	case *types.EnumType:
		return Value{Type: t, I: 0}
	case *types.SetType:
		return Value{Type: t, Set: map[int32]bool{}}
	case *types.PointerType:
		return Value{Type: t, Ptr: 0}
	case *types.ClassType:
		return Value{Type: t, Obj: 0}
	}
	switch t.Tag() {
	case types.Integer:
		return Value{Type: t, I: 0}
	case types.Real:
		return Value{Type: t, R: 0}
	case types.BooleanT:
		return Value{Type: t, B: false}
	case types.CharT:
		return Value{Type: t, C: 0}
	case types.StringT:
		return Value{Type: t, S: ""}
	case types.DateT:
		return Value{Type: t, D: numeric.Zero}
	case types.Null:
		return Value{Type: t}
	}
	return Value{Type: t}
}

// SetOrdinals returns the ordinals of a set value in ascending order.
func SetOrdinals(v Value) []int32 {
	out := make([]int32, 0, len(v.Set))
	for k := range v.Set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OutputString renders v the way OUTPUT/STRING() do (§6's OUTPUT conversion
// table). Callers must have already checked v's type is outputtable.
func OutputString(v Value) string {
	switch v.Type.Tag() {
	case types.Integer:
		return fmt.Sprintf("%d", v.I)
	case types.Real:
		return numeric.FormatReal(v.R)
	case types.BooleanT:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case types.CharT:
		return string(v.C)
	case types.StringT:
		return v.S
	case types.DateT:
		return v.D.String()
	case types.Enum:
		return EnumMemberName(v.Type.(*types.EnumType), v.I)
	}
	return ""
}

// EnumMemberName looks up the member spelling for an enum ordinal, used by
// OUTPUT/STRING on enum values that callers choose to render symbolically
// (not part of §6's core table, but convenient for diagnostics).
func EnumMemberName(t *types.EnumType, ord int32) string {
	if ord < 0 || int(ord) >= len(t.Members) {
		return fmt.Sprintf("%s(%d)", t.Name, ord)
	}
	return t.Members[ord]
}
