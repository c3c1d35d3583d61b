package interp

import (
	"bytes"
	"encoding/binary"
	"os"
	"strings"

	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
	"github.com/pkg/errors"
)

// FileMode is the OPENFILE mode, case-insensitively matched from source.
type FileMode int

const (
	ModeRead FileMode = iota
	ModeWrite
	ModeAppend
	ModeRandom
)

// FileHandle is the runtime state behind an OPENFILE'd name: a text file
// (line-buffered read cursor, or an accumulating write buffer) or a random
// file (a growable byte buffer addressed by fixed-size records).
type FileHandle struct {
	Path   string
	Mode   FileMode
	Open   bool

	// text file state
	Lines    []string
	ReadPos  int
	WriteBuf []string

	// random file state
	Record     *types.RecordType
	RecordSize int
	Buf        []byte
	Pos        int64 // 1-based current record position
}

func parseFileMode(line int, s string) (FileMode, error) {
	switch strings.ToUpper(s) {
	case "READ":
		return ModeRead, nil
	case "WRITE":
		return ModeWrite, nil
	case "APPEND":
		return ModeAppend, nil
	case "RANDOM":
		return ModeRandom, nil
	}
	return 0, perr.New(perr.FileError, line, "unknown file mode %q", s)
}

func openTextFile(line int, path string, mode FileMode) (*FileHandle, error) {
	fh := &FileHandle{Path: path, Mode: mode, Open: true}
	if mode == ModeRead {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, perr.New(perr.FileError, line, "cannot open %q for READ: %v", path, errors.Cause(errors.Wrap(err, "open")))
		}
		text := strings.ReplaceAll(string(data), "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
		if text == "" {
			fh.Lines = nil
		} else {
			fh.Lines = strings.Split(text, "\n")
		}
	}
	return fh, nil
}

func openRandomFile(line int, path string, rec *types.RecordType) (*FileHandle, error) {
	fh := &FileHandle{Path: path, Mode: ModeRandom, Open: true, Record: rec, RecordSize: recordSize(rec), Pos: 1}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, perr.New(perr.FileError, line, "cannot open %q: %v", path, errors.Cause(errors.Wrap(err, "open")))
		}
		data = nil
	}
	fh.Buf = data
	return fh, nil
}

func closeTextFile(line int, fh *FileHandle) error {
	defer func() { fh.Open = false }()
	switch fh.Mode {
	case ModeWrite:
		content := joinLines(fh.WriteBuf)
		if err := os.WriteFile(fh.Path, []byte(content), 0644); err != nil {
			return perr.New(perr.FileError, line, "cannot write %q: %v", fh.Path, errors.Cause(errors.Wrap(err, "write")))
		}
	case ModeAppend:
		existing, err := os.ReadFile(fh.Path)
		if err != nil && !os.IsNotExist(err) {
			return perr.New(perr.FileError, line, "cannot read %q: %v", fh.Path, errors.Cause(errors.Wrap(err, "read")))
		}
		content := string(existing) + joinLines(fh.WriteBuf)
		if err := os.WriteFile(fh.Path, []byte(content), 0644); err != nil {
			return perr.New(perr.FileError, line, "cannot write %q: %v", fh.Path, errors.Cause(errors.Wrap(err, "write")))
		}
	}
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func closeRandomFile(line int, fh *FileHandle) error {
	defer func() { fh.Open = false }()
	if err := os.WriteFile(fh.Path, fh.Buf, 0644); err != nil {
		return perr.New(perr.FileError, line, "cannot write %q: %v", fh.Path, errors.Cause(errors.Wrap(err, "write")))
	}
	return nil
}

func (fh *FileHandle) eof() bool {
	if !fh.Open {
		return true
	}
	if fh.Mode == ModeRandom {
		if fh.RecordSize == 0 {
			return true
		}
		return fh.Pos > int64(len(fh.Buf))/int64(fh.RecordSize)
	}
	return fh.ReadPos >= len(fh.Lines)
}

// recordSize computes the fixed byte width of a statically legal
// random-file record type, per the codec table.
func recordSize(t types.Type) int {
	switch tt := t.(type) {
	case *types.RecordType:
		n := 0
		for _, f := range tt.Fields {
			n += recordSize(f.Type)
		}
		return n
	case *types.ArrayType:
		count := 1
		for _, b := range tt.Bounds {
			count *= int(b.Size())
		}
		return count * recordSize(tt.Element)
	}
	switch t.Tag() {
	case types.Integer, types.CharT, types.DateT, types.Enum:
		return 4
	case types.Real:
		return 8
	case types.BooleanT:
		return 1
	}
	return 0
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v.Type.Tag() {
	case types.Integer:
		return binary.Write(buf, binary.LittleEndian, v.I)
	case types.Real:
		return binary.Write(buf, binary.LittleEndian, v.R)
	case types.BooleanT:
		b := byte(0)
		if v.B {
			b = 1
		}
		return binary.Write(buf, binary.LittleEndian, b)
	case types.CharT:
		return binary.Write(buf, binary.LittleEndian, uint32(v.C))
	case types.DateT:
		return binary.Write(buf, binary.LittleEndian, v.D.DayNumber())
	case types.Enum:
		return binary.Write(buf, binary.LittleEndian, v.I)
	case types.Array:
		for _, e := range v.Arr.Elems {
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		return nil
	case types.Record:
		for _, name := range v.Rec.Names {
			if err := encodeValue(buf, v.Rec.Fields[name]); err != nil {
				return err
			}
		}
		return nil
	}
	return perr.New(perr.FileError, 0, "value of type %s cannot be stored in a random file", v.Type)
}

func decodeValue(r *bytes.Reader, t types.Type) (Value, error) {
	switch tt := t.(type) {
	case *types.ArrayType:
		count := 1
		for _, b := range tt.Bounds {
			count *= int(b.Size())
		}
		elems := make([]Value, count)
		for i := range elems {
			v, err := decodeValue(r, tt.Element)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{Type: t, Arr: &ArrayValue{Bounds: tt.Bounds, Elems: elems}}, nil
	case *types.RecordType:
		rv := &RecordValue{Fields: make(map[string]Value, len(tt.Fields))}
		for _, f := range tt.Fields {
			v, err := decodeValue(r, f.Type)
			if err != nil {
				return Value{}, err
			}
			rv.Set(f.Name, v)
		}
		return Value{Type: t, Rec: rv}, nil
	}
	switch t.Tag() {
	case types.Integer:
		var i int32
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, I: i}, nil
	case types.Real:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, R: f}, nil
	case types.BooleanT:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, B: b != 0}, nil
	case types.CharT:
		var c uint32
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, C: rune(c)}, nil
	case types.DateT:
		var d int32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, D: numeric.DateFromDayNumber(d)}, nil
	case types.Enum:
		var i int32
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, perr.New(perr.FileError, 0, "truncated record")
		}
		return Value{Type: t, I: i}, nil
	}
	return Value{}, perr.New(perr.FileError, 0, "type %s is not a valid random-file field", t)
}
