package types

import "testing"

func TestEqualBasic(t *testing.T) {
	if !Equal(IntegerType, IntegerType) {
		t.Error("Integer should equal Integer")
	}
	if Equal(IntegerType, RealType) {
		t.Error("Integer should not equal Real")
	}
}

func TestEqualArrays(t *testing.T) {
	a := &ArrayType{Bounds: []Bound{{1, 10}}, Element: IntegerType}
	b := &ArrayType{Bounds: []Bound{{1, 10}}, Element: IntegerType}
	c := &ArrayType{Bounds: []Bound{{1, 11}}, Element: IntegerType}
	if !Equal(a, b) {
		t.Error("identical array shapes should be equal")
	}
	if Equal(a, c) {
		t.Error("different bounds should not be equal")
	}
}

func TestEqualRecordsStructural(t *testing.T) {
	r1 := &RecordType{Fields: []Field{{"N", IntegerType}, {"D", DateType}}}
	r2 := &RecordType{Fields: []Field{{"N", IntegerType}, {"D", DateType}}}
	if !Equal(r1, r2) {
		t.Error("structurally identical records should be equal")
	}
}

func TestNullAssignableToPointerAndClass(t *testing.T) {
	pt := &PointerType{Target: IntegerType}
	ct := &ClassType{Name: "Animal"}
	if !Assignable(pt, NullType) {
		t.Error("NULL should be assignable to pointer type")
	}
	if !Assignable(ct, NullType) {
		t.Error("NULL should be assignable to class type")
	}
	if Assignable(IntegerType, NullType) {
		t.Error("NULL should not be assignable to INTEGER")
	}
}

func TestNotComparableTypes(t *testing.T) {
	arr := &ArrayType{Bounds: []Bound{{1, 2}}, Element: IntegerType}
	if ComparableEq(arr) {
		t.Error("arrays should not support =/<>")
	}
	if Ordered(arr) {
		t.Error("arrays should not support ordering")
	}
}

func TestIsFixedLayout(t *testing.T) {
	rec := &RecordType{Fields: []Field{{"N", IntegerType}, {"D", DateType}}}
	if !IsFixedLayout(rec) {
		t.Error("record of Integer+Date should be fixed layout")
	}
	recWithString := &RecordType{Fields: []Field{{"S", StringType}}}
	if IsFixedLayout(recWithString) {
		t.Error("record containing a String field must not be fixed layout")
	}
}
