package interp

import (
	"bytes"
	"testing"

	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
)

func TestRecordSize(t *testing.T) {
	rt := &types.RecordType{Fields: []types.Field{
		{Name: "N", Type: types.IntegerType},
		{Name: "D", Type: types.DateType},
		{Name: "Ok", Type: types.BooleanType},
	}}
	if got := recordSize(rt); got != 9 {
		t.Errorf("recordSize = %d, want 9 (4 + 4 + 1)", got)
	}

	at := &types.ArrayType{Bounds: []types.Bound{{Low: 1, High: 3}}, Element: types.IntegerType}
	if got := recordSize(at); got != 12 {
		t.Errorf("recordSize(ARRAY[1:3] OF INTEGER) = %d, want 12", got)
	}
}

func TestEncodeDecodeScalarRoundTrip(t *testing.T) {
	tests := []Value{
		{Type: types.IntegerType, I: -42},
		{Type: types.RealType, R: 3.5},
		{Type: types.BooleanType, B: true},
		{Type: types.CharType, C: 'Q'},
		{Type: types.DateType, D: numeric.Date{Year: 2024, Month: 2, Day: 29}},
	}
	for _, v := range tests {
		var buf bytes.Buffer
		if err := encodeValue(&buf, v); err != nil {
			t.Fatalf("encode %v: %v", v.Type, err)
		}
		r := bytes.NewReader(buf.Bytes())
		got, err := decodeValue(r, v.Type)
		if err != nil {
			t.Fatalf("decode %v: %v", v.Type, err)
		}
		if OutputString(got) != OutputString(v) {
			t.Errorf("round trip %v: got %s, want %s", v.Type, OutputString(got), OutputString(v))
		}
	}
}

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	rt := &types.RecordType{Fields: []types.Field{
		{Name: "N", Type: types.IntegerType},
		{Name: "D", Type: types.DateType},
	}}
	rec := &RecordValue{Fields: make(map[string]Value)}
	rec.Set("N", Value{Type: types.IntegerType, I: 7})
	rec.Set("D", Value{Type: types.DateType, D: numeric.Date{Year: 2024, Month: 2, Day: 29}})
	v := Value{Type: rt, Rec: rec}

	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() != recordSize(rt) {
		t.Errorf("encoded %d bytes, recordSize reports %d", buf.Len(), recordSize(rt))
	}
	r := bytes.NewReader(buf.Bytes())
	got, err := decodeValue(r, rt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Rec.Get("N").I != 7 {
		t.Errorf("N = %d, want 7", got.Rec.Get("N").I)
	}
	if got.Rec.Get("D").D != rec.Get("D").D {
		t.Errorf("D = %s, want %s", got.Rec.Get("D").D, rec.Get("D").D)
	}
}

func TestDecodeTruncatedRecordIsFileError(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2})
	_, err := decodeValue(r, types.IntegerType)
	if err == nil {
		t.Fatal("expected an error decoding a truncated integer")
	}
	if d, ok := perr.AsDiagnostic(err); !ok || d.Kind != perr.FileError {
		t.Errorf("want FileError, got %v", err)
	}
}
