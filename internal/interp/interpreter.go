package interp

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/semantic"
	"github.com/mkyuone/prescribe/internal/types"
)

// builtinNames mirrors the checker's fixed standard-library surface.
var builtinNames = map[string]bool{
	"LENGTH": true, "RIGHT": true, "MID": true, "LCASE": true, "UCASE": true,
	"INT": true, "REAL": true, "STRING": true, "CHAR": true, "BOOLEAN": true,
	"DATE": true, "ORD": true, "ENUMVALUE": true, "SIZE": true, "RAND": true,
}

// Interp is one program run: the whole-program namespace, the heap, the
// call-independent global frame, the pre-tokenized stdin stream, the
// output buffer, and the PRNG state (seeded to 1 at construction).
type Interp struct {
	reg      *Registry
	heap     *Heap
	global   *Frame
	input    []string
	inputPos int
	out      strings.Builder
	rngState int64
	trace    func(line int)
}

// execCtx is the state threaded through one active call: its frame, the
// receiver object and defining class when executing a method/constructor
// body (nil/nil for a free procedure/function or the top-level program),
// and the in-flight return.
type execCtx struct {
	frame      *Frame
	object     *Object
	class      *semantic.ClassInfo
	returnType types.Type
	returning  bool
	returnVal  Value
}

// Run executes prog to completion against stdin, returning everything
// written to stdout so far even when it returns a non-nil error (the host
// boundary prints the buffered output before the diagnostic, per the
// concurrency model's I/O discipline).
func Run(prog *ast.Program, result *semantic.Result, stdin string) (string, error) {
	out, _, err := RunWithInput(prog, result, strings.Fields(stdin))
	return out, err
}

// RunWithInput is Run generalized over an already-tokenized input stream,
// returning the tokens left unconsumed. A container of several fenced
// blocks shares one stdin stream across otherwise-independent programs: each
// block gets a fresh namespace, heap and global frame, but picks up reading
// stdin where the previous block left off.
func RunWithInput(prog *ast.Program, result *semantic.Result, input []string) (string, []string, error) {
	return RunWithInputTraced(prog, result, input, nil)
}

// RunWithInputTraced is RunWithInput with an optional per-statement line
// hook installed before execution starts (see SetTrace).
func RunWithInputTraced(prog *ast.Program, result *semantic.Result, input []string, trace func(line int)) (string, []string, error) {
	reg, err := buildRegistry(prog, result)
	if err != nil {
		return "", input, err
	}
	it := &Interp{
		reg:      reg,
		heap:     NewHeap(),
		global:   NewFrame(),
		input:    input,
		rngState: 1,
	}
	it.trace = trace
	ctx := &execCtx{frame: it.global}
	if err := it.execBody(ctx, prog.Decls, prog.Statements); err != nil {
		return it.out.String(), it.input[it.inputPos:], err
	}
	return it.out.String(), it.input[it.inputPos:], nil
}

// SetTrace installs an optional per-statement line hook, used by the CLI's
// --trace flag; it never changes program semantics.
func (it *Interp) SetTrace(fn func(line int)) { it.trace = fn }

// execBody runs one block's declarations (binding locals into ctx.frame)
// then its statements, in the order the checker itself visits them.
func (it *Interp) execBody(ctx *execCtx, decls []ast.Decl, stmts []ast.Stmt) error {
	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.VarDecl:
			t, err := it.reg.resolveType(dd.Type)
			if err != nil {
				return err
			}
			ctx.frame.Define(dd.Name, NewCell(Zero(t)))
		case *ast.ConstDecl:
			v, ok := it.reg.Consts[dd.Name]
			if !ok {
				var err error
				v, err = it.reg.evalConst(dd.Value)
				if err != nil {
					return err
				}
			}
			ctx.frame.Define(dd.Name, NewCell(v))
		}
	}
	for _, s := range stmts {
		if err := it.execStmt(ctx, s); err != nil {
			return err
		}
		if ctx.returning {
			return nil
		}
	}
	return nil
}

func (it *Interp) execBlock(ctx *execCtx, b *ast.Block) error {
	for _, s := range b.Statements {
		if err := it.execStmt(ctx, s); err != nil {
			return err
		}
		if ctx.returning {
			return nil
		}
	}
	return nil
}

func (it *Interp) execStmt(ctx *execCtx, s ast.Stmt) error {
	if it.trace != nil {
		it.trace(s.Line())
	}
	switch st := s.(type) {
	case *ast.AssignStmt:
		return it.execAssign(ctx, st)
	case *ast.CallStmt:
		_, err := it.evalCall(ctx, st.Call)
		return err
	case *ast.IfStmt:
		cond, err := it.evalExpr(ctx, st.Cond)
		if err != nil {
			return err
		}
		if cond.B {
			return it.execBlock(ctx, st.Then)
		}
		if st.Else != nil {
			return it.execBlock(ctx, st.Else)
		}
		return nil
	case *ast.CaseStmt:
		return it.execCase(ctx, st)
	case *ast.ForStmt:
		return it.execFor(ctx, st)
	case *ast.WhileStmt:
		for {
			cond, err := it.evalExpr(ctx, st.Cond)
			if err != nil {
				return err
			}
			if !cond.B {
				return nil
			}
			if err := it.execBlock(ctx, st.Body); err != nil {
				return err
			}
			if ctx.returning {
				return nil
			}
		}
	case *ast.RepeatStmt:
		for {
			if err := it.execBlock(ctx, st.Body); err != nil {
				return err
			}
			if ctx.returning {
				return nil
			}
			cond, err := it.evalExpr(ctx, st.Until)
			if err != nil {
				return err
			}
			if cond.B {
				return nil
			}
		}
	case *ast.ReturnStmt:
		if st.Value != nil {
			v, err := it.evalExpr(ctx, st.Value)
			if err != nil {
				return err
			}
			ctx.returnVal = v
		}
		ctx.returning = true
		return nil
	case *ast.InputStmt:
		return it.execInput(ctx, st)
	case *ast.OutputStmt:
		return it.execOutput(ctx, st)
	case *ast.OpenFileStmt:
		return it.execOpenFile(ctx, st)
	case *ast.CloseFileStmt:
		return it.execCloseFile(ctx, st)
	case *ast.ReadFileStmt:
		return it.execReadFile(ctx, st)
	case *ast.WriteFileStmt:
		return it.execWriteFile(ctx, st)
	case *ast.SeekStmt:
		return it.execSeek(ctx, st)
	case *ast.GetRecordStmt:
		return it.execGetRecord(ctx, st)
	case *ast.PutRecordStmt:
		return it.execPutRecord(ctx, st)
	case *ast.SuperCallStmt:
		return it.execSuperCall(ctx, st)
	}
	return perr.New(perr.SyntaxError, s.Line(), "unrecognized statement")
}

func (it *Interp) execAssign(ctx *execCtx, st *ast.AssignStmt) error {
	v, err := it.evalExpr(ctx, st.Value)
	if err != nil {
		return err
	}
	h, err := it.resolveHandle(ctx, st.Target)
	if err != nil {
		return err
	}
	h.Set(v.Clone())
	return nil
}

func (it *Interp) execCase(ctx *execCtx, st *ast.CaseStmt) error {
	subj, err := it.evalExpr(ctx, st.Subject)
	if err != nil {
		return err
	}
	for _, br := range st.Branches {
		matched, err := it.caseBranchMatches(ctx, subj, br)
		if err != nil {
			return err
		}
		if matched {
			return it.execBlock(ctx, br.Body)
		}
	}
	if st.Otherwise != nil {
		return it.execBlock(ctx, st.Otherwise)
	}
	return nil
}

func (it *Interp) caseBranchMatches(ctx *execCtx, subj Value, br ast.CaseBranch) (bool, error) {
	for _, lbl := range br.Labels {
		if lbl.Low != nil {
			lo, err := it.evalExpr(ctx, lbl.Low)
			if err != nil {
				return false, err
			}
			hi, err := it.evalExpr(ctx, lbl.High)
			if err != nil {
				return false, err
			}
			if compareValues(subj, lo) >= 0 && compareValues(subj, hi) <= 0 {
				return true, nil
			}
			continue
		}
		lv, err := it.evalExpr(ctx, lbl.Single)
		if err != nil {
			return false, err
		}
		if compareValues(subj, lv) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (it *Interp) execFor(ctx *execCtx, st *ast.ForStmt) error {
	start, err := it.evalExpr(ctx, st.Start)
	if err != nil {
		return err
	}
	end, err := it.evalExpr(ctx, st.End)
	if err != nil {
		return err
	}
	step := int32(1)
	if st.Step != nil {
		sv, err := it.evalExpr(ctx, st.Step)
		if err != nil {
			return err
		}
		step = sv.I
	}
	if step == 0 {
		return perr.New(perr.RuntimeError, st.Line(), "FOR step is zero")
	}
	loopFrame := NewChildFrame(ctx.frame)
	cell := NewCell(Value{Type: types.IntegerType, I: start.I})
	loopFrame.Define(st.Counter, cell)
	loopCtx := &execCtx{frame: loopFrame, object: ctx.object, class: ctx.class, returnType: ctx.returnType}
	for i := start.I; (step > 0 && i <= end.I) || (step < 0 && i >= end.I); i += step {
		cell.Set(Value{Type: types.IntegerType, I: i})
		if err := it.execBlock(loopCtx, st.Body); err != nil {
			return err
		}
		if loopCtx.returning {
			ctx.returning = true
			ctx.returnVal = loopCtx.returnVal
			return nil
		}
		// guard against overflow when step carries i past the platform range
		next := int64(i) + int64(step)
		if next > int64(numeric.MaxInt32) || next < int64(numeric.MinInt32) {
			break
		}
	}
	return nil
}

func (it *Interp) execInput(ctx *execCtx, st *ast.InputStmt) error {
	tok, err := it.nextInputToken(st.Line())
	if err != nil {
		return err
	}
	h, err := it.resolveHandle(ctx, st.Target)
	if err != nil {
		return err
	}
	target := h.Get()
	v, err := parseInputToken(st.Line(), tok, target.Type)
	if err != nil {
		return err
	}
	h.Set(v)
	return nil
}

func (it *Interp) nextInputToken(line int) (string, error) {
	if it.inputPos >= len(it.input) {
		return "", perr.New(perr.RuntimeError, line, "input exhausted")
	}
	tok := it.input[it.inputPos]
	it.inputPos++
	return tok, nil
}

var (
	intTokenRe  = regexp.MustCompile(`^[+-]?\d+$`)
	realTokenRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?$`)
)

// parseInputToken implements the per-type INPUT token grammar shared by
// INPUT and READFILE.
func parseInputToken(line int, tok string, t types.Type) (Value, error) {
	switch tt := t.(type) {
	case *types.EnumType:
		for i, m := range tt.Members {
			if m == tok {
				return Value{Type: t, I: int32(i)}, nil
			}
		}
		return Value{}, perr.New(perr.RuntimeError, line, "%q is not a member of %s", tok, tt.Name)
	}
	switch t.Tag() {
	case types.Integer:
		if !intTokenRe.MatchString(tok) {
			return Value{}, perr.New(perr.RuntimeError, line, "%q is not a valid Integer", tok)
		}
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, perr.New(perr.RangeError, line, "%q is not a valid Integer", tok)
		}
		v, err := numeric.CheckInt32(line, n)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.IntegerType, I: v}, nil
	case types.Real:
		if !realTokenRe.MatchString(tok) {
			return Value{}, perr.New(perr.RuntimeError, line, "%q is not a valid Real", tok)
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, perr.New(perr.RuntimeError, line, "%q is not a valid Real", tok)
		}
		return Value{Type: types.RealType, R: f}, nil
	case types.BooleanT:
		switch strings.ToUpper(tok) {
		case "TRUE":
			return Value{Type: types.BooleanType, B: true}, nil
		case "FALSE":
			return Value{Type: types.BooleanType, B: false}, nil
		}
		return Value{}, perr.New(perr.RuntimeError, line, "%q is not TRUE or FALSE", tok)
	case types.CharT:
		rs := []rune(tok)
		if len(rs) != 1 {
			return Value{}, perr.New(perr.RuntimeError, line, "%q is not a single character", tok)
		}
		return Value{Type: types.CharType, C: rs[0]}, nil
	case types.StringT:
		return Value{Type: types.StringType, S: tok}, nil
	case types.DateT:
		d, err := numeric.ParseDate(line, tok)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.DateType, D: d}, nil
	}
	return Value{}, perr.New(perr.TypeError, line, "type %s cannot be read from input", t)
}

func (it *Interp) execOutput(ctx *execCtx, st *ast.OutputStmt) error {
	for _, e := range st.Values {
		v, err := it.evalExpr(ctx, e)
		if err != nil {
			return err
		}
		it.out.WriteString(OutputString(v))
	}
	it.out.WriteString("\n")
	return nil
}

func (it *Interp) execSuperCall(ctx *execCtx, st *ast.SuperCallStmt) error {
	base := ctx.class.Base
	args, err := it.evalArgs(ctx, st.Args)
	if err != nil {
		return err
	}
	if st.Method == "" {
		if base.Constructor == nil {
			return nil
		}
		_, err := it.invokeRoutine(ctx, base.Constructor.Decl, false, base.Constructor.Signature, args, st.Args, ctx.object, base)
		return err
	}
	m, owner := base.LookupMethod(st.Method)
	_, err = it.invokeRoutine(ctx, m.Decl, m.IsFunction, m.Signature, args, st.Args, ctx.object, owner)
	return err
}

func (it *Interp) execOpenFile(ctx *execCtx, st *ast.OpenFileStmt) error {
	h, err := it.resolveName(ctx, st.Handle)
	if err != nil {
		return err
	}
	cur := h.Get()
	pathV, err := it.evalExpr(ctx, st.Path)
	if err != nil {
		return err
	}
	if cur.Type.Tag() == types.RandomFile {
		rf := cur.Type.(*types.RandomFileType)
		fh, err := openRandomFile(st.Line(), pathV.S, rf.Record)
		if err != nil {
			return err
		}
		cur.Handle = fh
		h.Set(cur)
		return nil
	}
	modeV, err := it.evalExpr(ctx, st.Mode)
	if err != nil {
		return err
	}
	mode, err := parseFileMode(st.Line(), modeV.S)
	if err != nil {
		return err
	}
	fh, err := openTextFile(st.Line(), pathV.S, mode)
	if err != nil {
		return err
	}
	cur.Handle = fh
	h.Set(cur)
	return nil
}

func (it *Interp) fileHandleOf(ctx *execCtx, line int, name string) (*FileHandle, error) {
	h, err := it.resolveName(ctx, name)
	if err != nil {
		return nil, err
	}
	fh := h.Get().Handle
	if fh == nil || !fh.Open {
		return nil, perr.New(perr.FileError, line, "%q is not open", name)
	}
	return fh, nil
}

func (it *Interp) execCloseFile(ctx *execCtx, st *ast.CloseFileStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	if fh.Mode == ModeRandom {
		return closeRandomFile(st.Line(), fh)
	}
	return closeTextFile(st.Line(), fh)
}

func (it *Interp) execReadFile(ctx *execCtx, st *ast.ReadFileStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	if fh.eof() {
		return perr.New(perr.RuntimeError, st.Line(), "end of file reading %q", st.Handle)
	}
	line := strings.TrimSpace(fh.Lines[fh.ReadPos])
	fh.ReadPos++
	target, err := it.resolveHandle(ctx, st.Target)
	if err != nil {
		return err
	}
	v, err := parseInputToken(st.Line(), line, target.Get().Type)
	if err != nil {
		return err
	}
	target.Set(v)
	return nil
}

func (it *Interp) execWriteFile(ctx *execCtx, st *ast.WriteFileStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	v, err := it.evalExpr(ctx, st.Value)
	if err != nil {
		return err
	}
	fh.WriteBuf = append(fh.WriteBuf, OutputString(v))
	return nil
}

func (it *Interp) execSeek(ctx *execCtx, st *ast.SeekStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	pos, err := it.evalExpr(ctx, st.Pos)
	if err != nil {
		return err
	}
	if pos.I < 1 {
		return perr.New(perr.RangeError, st.Line(), "SEEK position must be >= 1, got %d", pos.I)
	}
	fh.Pos = int64(pos.I)
	return nil
}

func (it *Interp) execGetRecord(ctx *execCtx, st *ast.GetRecordStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	if fh.eof() {
		return perr.New(perr.RuntimeError, st.Line(), "GETRECORD past end of %q", st.Handle)
	}
	off := (fh.Pos - 1) * int64(fh.RecordSize)
	r := bytes.NewReader(fh.Buf[off : off+int64(fh.RecordSize)])
	v, err := decodeValue(r, fh.Record)
	if err != nil {
		return err
	}
	fh.Pos++
	target, err := it.resolveHandle(ctx, st.Target)
	if err != nil {
		return err
	}
	target.Set(v)
	return nil
}

func (it *Interp) execPutRecord(ctx *execCtx, st *ast.PutRecordStmt) error {
	fh, err := it.fileHandleOf(ctx, st.Line(), st.Handle)
	if err != nil {
		return err
	}
	v, err := it.evalExpr(ctx, st.Value)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return err
	}
	off := (fh.Pos - 1) * int64(fh.RecordSize)
	need := off + int64(fh.RecordSize)
	if int64(len(fh.Buf)) < need {
		grown := make([]byte, need)
		copy(grown, fh.Buf)
		fh.Buf = grown
	}
	copy(fh.Buf[off:off+int64(fh.RecordSize)], buf.Bytes())
	fh.Pos++
	return nil
}

// resolveHandle resolves e to a storable place.
func (it *Interp) resolveHandle(ctx *execCtx, e ast.Expr) (Handle, error) {
	switch x := e.(type) {
	case *ast.NameExpr:
		return it.resolveName(ctx, x.Name)
	case *ast.IndexExpr:
		base, err := it.evalExpr(ctx, x.Base)
		if err != nil {
			return nil, err
		}
		indices := make([]int32, len(x.Indices))
		for i, ix := range x.Indices {
			v, err := it.evalExpr(ctx, ix)
			if err != nil {
				return nil, err
			}
			indices[i] = v.I
		}
		for i, idx := range indices {
			b := base.Arr.Bounds[i]
			if idx < b.Low || idx > b.High {
				return nil, perr.New(perr.RangeError, x.Line(), "index %d out of bounds [%d:%d]", idx, b.Low, b.High)
			}
		}
		return &ArrayElemHandle{arr: base.Arr, indices: indices}, nil
	case *ast.FieldExpr:
		base, err := it.evalExpr(ctx, x.Base)
		if err != nil {
			return nil, err
		}
		if base.Type.Tag() == types.ClassT {
			if base.Obj == 0 {
				return nil, perr.New(perr.RuntimeError, x.Line(), "null dereference")
			}
			obj := it.heap.Object(base.Obj)
			return &RecordFieldHandle{rec: obj.Fields, field: x.Field}, nil
		}
		return &RecordFieldHandle{rec: base.Rec, field: x.Field}, nil
	case *ast.DerefExpr:
		base, err := it.evalExpr(ctx, x.Operand)
		if err != nil {
			return nil, err
		}
		if base.Ptr == 0 {
			return nil, perr.New(perr.RuntimeError, x.Line(), "null dereference")
		}
		return &HeapCellHandle{heap: it.heap, addr: base.Ptr}, nil
	}
	return nil, perr.New(perr.TypeError, e.Line(), "expression is not an lvalue")
}

func (it *Interp) resolveName(ctx *execCtx, name string) (Handle, error) {
	if ctx.frame != nil {
		if h, ok := ctx.frame.Lookup(name); ok {
			return h, nil
		}
	}
	if h, ok := it.global.Lookup(name); ok {
		return h, nil
	}
	if v, ok := it.reg.Consts[name]; ok {
		return NewCell(v), nil
	}
	if v, ok := it.reg.EnumConsts[name]; ok {
		return NewCell(v), nil
	}
	if ctx.object != nil && ctx.class != nil {
		if fld, _ := ctx.class.LookupField(name); fld != nil {
			return &RecordFieldHandle{rec: ctx.object.Fields, field: name}, nil
		}
	}
	return nil, perr.New(perr.NameError, 0, "undeclared identifier %q", name)
}

func (it *Interp) evalArgs(ctx *execCtx, exprs []ast.Expr) ([]Value, error) {
	out := make([]Value, len(exprs))
	for i, e := range exprs {
		v, err := it.evalExpr(ctx, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (it *Interp) evalExpr(ctx *execCtx, e ast.Expr) (Value, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return Value{Type: types.IntegerType, I: x.Value}, nil
	case *ast.RealLit:
		return Value{Type: types.RealType, R: x.Value}, nil
	case *ast.BoolLit:
		return Value{Type: types.BooleanType, B: x.Value}, nil
	case *ast.CharLit:
		return Value{Type: types.CharType, C: x.Value}, nil
	case *ast.StringLit:
		return Value{Type: types.StringType, S: x.Value}, nil
	case *ast.DateLit:
		d, err := numeric.ParseDate(x.Line(), x.Raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.DateType, D: d}, nil
	case *ast.NullLit:
		return Value{Type: types.NullType}, nil
	case *ast.NameExpr:
		h, err := it.resolveName(ctx, x.Name)
		if err != nil {
			return Value{}, err
		}
		return h.Get(), nil
	case *ast.BinaryExpr:
		return it.evalBinary(ctx, x)
	case *ast.UnaryExpr:
		return it.evalUnary(ctx, x)
	case *ast.DerefExpr:
		base, err := it.evalExpr(ctx, x.Operand)
		if err != nil {
			return Value{}, err
		}
		if base.Ptr == 0 {
			return Value{}, perr.New(perr.RuntimeError, x.Line(), "null dereference")
		}
		return *it.heap.Cell(base.Ptr), nil
	case *ast.CallExpr:
		return it.evalCall(ctx, x)
	case *ast.IndexExpr:
		base, err := it.evalExpr(ctx, x.Base)
		if err != nil {
			return Value{}, err
		}
		indices := make([]int32, len(x.Indices))
		for i, ix := range x.Indices {
			v, err := it.evalExpr(ctx, ix)
			if err != nil {
				return Value{}, err
			}
			indices[i] = v.I
		}
		v, gerr := base.Arr.Get(indices)
		if gerr != nil {
			return Value{}, perr.New(perr.RangeError, x.Line(), "%s", gerr)
		}
		return v, nil
	case *ast.FieldExpr:
		base, err := it.evalExpr(ctx, x.Base)
		if err != nil {
			return Value{}, err
		}
		if base.Type.Tag() == types.ClassT {
			if base.Obj == 0 {
				return Value{}, perr.New(perr.RuntimeError, x.Line(), "null dereference")
			}
			return it.heap.Object(base.Obj).Fields.Get(x.Field), nil
		}
		return base.Rec.Get(x.Field), nil
	case *ast.NewExpr:
		return it.evalNew(ctx, x)
	case *ast.EOFExpr:
		fh, err := it.fileHandleOf(ctx, x.Line(), x.Handle)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.BooleanType, B: fh.eof()}, nil
	}
	return Value{}, perr.New(perr.SyntaxError, e.Line(), "unrecognized expression")
}

func (it *Interp) evalUnary(ctx *execCtx, x *ast.UnaryExpr) (Value, error) {
	if x.Op == lexer.AT {
		h, err := it.resolveHandle(ctx, x.Operand)
		if err != nil {
			return Value{}, err
		}
		v := h.Get()
		addr := it.heap.Alloc(v)
		return Value{Type: &types.PointerType{Target: v.Type}, Ptr: addr}, nil
	}
	v, err := it.evalExpr(ctx, x.Operand)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case lexer.PLUS:
		return v, nil
	case lexer.MINUS:
		if v.Type.Tag() == types.Real {
			r, err := numeric.CheckReal(x.Line(), -v.R)
			if err != nil {
				return Value{}, err
			}
			return Value{Type: types.RealType, R: r}, nil
		}
		n, err := numeric.NegInt(x.Line(), v.I)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.IntegerType, I: n}, nil
	case lexer.NOT:
		return Value{Type: types.BooleanType, B: !v.B}, nil
	}
	return Value{}, perr.New(perr.SyntaxError, x.Line(), "unrecognized unary operator")
}

func (it *Interp) evalBinary(ctx *execCtx, x *ast.BinaryExpr) (Value, error) {
	l, err := it.evalExpr(ctx, x.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := it.evalExpr(ctx, x.Right)
	if err != nil {
		return Value{}, err
	}
	line := x.Line()
	switch x.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR:
		if l.Type.Tag() == types.Integer {
			var v int32
			var err error
			switch x.Op {
			case lexer.PLUS:
				v, err = numeric.AddInt(line, l.I, r.I)
			case lexer.MINUS:
				v, err = numeric.SubInt(line, l.I, r.I)
			case lexer.STAR:
				v, err = numeric.MulInt(line, l.I, r.I)
			}
			if err != nil {
				return Value{}, err
			}
			return Value{Type: types.IntegerType, I: v}, nil
		}
		var f float64
		switch x.Op {
		case lexer.PLUS:
			f = l.R + r.R
		case lexer.MINUS:
			f = l.R - r.R
		case lexer.STAR:
			f = l.R * r.R
		}
		f, err := numeric.CheckReal(line, f)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.RealType, R: f}, nil
	case lexer.SLASH:
		lf, rf := asReal(l), asReal(r)
		v, err := numeric.RealDivide(line, lf, rf)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.RealType, R: v}, nil
	case lexer.DIV, lexer.MOD:
		q, m, err := numeric.DivMod(line, l.I, r.I)
		if err != nil {
			return Value{}, err
		}
		if x.Op == lexer.DIV {
			return Value{Type: types.IntegerType, I: q}, nil
		}
		return Value{Type: types.IntegerType, I: m}, nil
	case lexer.AMP:
		return Value{Type: types.StringType, S: asString(l) + asString(r)}, nil
	case lexer.AND:
		return Value{Type: types.BooleanType, B: l.B && r.B}, nil
	case lexer.OR:
		return Value{Type: types.BooleanType, B: l.B || r.B}, nil
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		cmp := compareValues(l, r)
		var result bool
		switch x.Op {
		case lexer.EQ:
			result = cmp == 0
		case lexer.NEQ:
			result = cmp != 0
		case lexer.LT:
			result = cmp < 0
		case lexer.LTE:
			result = cmp <= 0
		case lexer.GT:
			result = cmp > 0
		case lexer.GTE:
			result = cmp >= 0
		}
		return Value{Type: types.BooleanType, B: result}, nil
	case lexer.IN:
		return Value{Type: types.BooleanType, B: r.Set[l.I]}, nil
	case lexer.UNION, lexer.INTERSECT, lexer.DIFF:
		out := map[int32]bool{}
		switch x.Op {
		case lexer.UNION:
			for k := range l.Set {
				out[k] = true
			}
			for k := range r.Set {
				out[k] = true
			}
		case lexer.INTERSECT:
			for k := range l.Set {
				if r.Set[k] {
					out[k] = true
				}
			}
		case lexer.DIFF:
			for k := range l.Set {
				if !r.Set[k] {
					out[k] = true
				}
			}
		}
		return Value{Type: l.Type, Set: out}, nil
	}
	return Value{}, perr.New(perr.SyntaxError, line, "unrecognized binary operator")
}

func (it *Interp) evalNew(ctx *execCtx, x *ast.NewExpr) (Value, error) {
	if x.IsClass {
		ci := it.reg.Classes[x.TypeName]
		obj := &Object{ClassName: x.TypeName, Fields: &RecordValue{Fields: make(map[string]Value)}}
		for _, f := range ci.AllFields() {
			obj.Fields.Set(f.Name, Zero(f.Type))
		}
		id := it.heap.NewObject(obj)
		if ci.Constructor != nil {
			args, err := it.evalArgs(ctx, x.Args)
			if err != nil {
				return Value{}, err
			}
			if _, err := it.invokeRoutine(ctx, ci.Constructor.Decl, false, ci.Constructor.Signature, args, x.Args, obj, ci); err != nil {
				return Value{}, err
			}
		}
		return Value{Type: &types.ClassType{Name: x.TypeName}, Obj: id}, nil
	}
	target, ok := it.reg.Types[x.TypeName]
	if !ok {
		return Value{}, perr.New(perr.NameError, x.Line(), "unknown type %q", x.TypeName)
	}
	addr := it.heap.Alloc(Zero(target))
	return Value{Type: &types.PointerType{Target: target}, Ptr: addr}, nil
}

// evalCall resolves and invokes a CALL target or a function-call expression:
// built-ins first, then global procedures/functions, then (for a bare name
// inside a method body, or a qualified Obj.Method call) dynamic method
// dispatch against the receiver's actual runtime class.
func (it *Interp) evalCall(ctx *execCtx, call *ast.CallExpr) (Value, error) {
	if name, ok := calleeName(call.Callee); ok && builtinNames[name] {
		return it.callBuiltin(ctx, name, call)
	}
	switch callee := call.Callee.(type) {
	case *ast.NameExpr:
		if fn, ok := it.reg.Funcs[callee.Name]; ok {
			args, err := it.evalArgs(ctx, call.Args)
			if err != nil {
				return Value{}, err
			}
			return it.invokeRoutine(ctx, fn, true, nil, args, call.Args, nil, nil)
		}
		if pr, ok := it.reg.Procs[callee.Name]; ok {
			args, err := it.evalArgs(ctx, call.Args)
			if err != nil {
				return Value{}, err
			}
			return it.invokeRoutine(ctx, pr, false, nil, args, call.Args, nil, nil)
		}
		if ctx.object != nil {
			dynClass := it.reg.Classes[ctx.object.ClassName]
			return it.dispatchMethod(ctx, ctx.object, dynClass, callee.Name, call)
		}
		return Value{}, perr.New(perr.NameError, call.Line(), "%q is not a known procedure or function", callee.Name)
	case *ast.FieldExpr:
		baseV, err := it.evalExpr(ctx, callee.Base)
		if err != nil {
			return Value{}, err
		}
		if baseV.Obj == 0 {
			return Value{}, perr.New(perr.RuntimeError, call.Line(), "null dereference")
		}
		obj := it.heap.Object(baseV.Obj)
		dynClass := it.reg.Classes[obj.ClassName]
		return it.dispatchMethod(ctx, obj, dynClass, callee.Field, call)
	}
	return Value{}, perr.New(perr.TypeError, call.Line(), "expression is not callable")
}

func calleeName(e ast.Expr) (string, bool) {
	if n, ok := e.(*ast.NameExpr); ok {
		return n.Name, true
	}
	return "", false
}

func (it *Interp) dispatchMethod(ctx *execCtx, obj *Object, class *semantic.ClassInfo, name string, call *ast.CallExpr) (Value, error) {
	m, owner := class.LookupMethod(name)
	if m == nil {
		return Value{}, perr.New(perr.NameError, call.Line(), "class %q has no method %q", class.Name, name)
	}
	args, err := it.evalArgs(ctx, call.Args)
	if err != nil {
		return Value{}, err
	}
	return it.invokeRoutine(ctx, m.Decl, m.IsFunction, m.Signature, args, call.Args, obj, owner)
}

// invokeRoutine runs one procedure/function/method/constructor body in a
// fresh frame: by-value parameters get a cloned cell, by-reference
// parameters alias the caller's resolved handle directly.
func (it *Interp) invokeRoutine(callerCtx *execCtx, decl ast.Node, isFunction bool, sig *semantic.Signature, args []Value, argExprs []ast.Expr, obj *Object, class *semantic.ClassInfo) (Value, error) {
	var params []ast.Param
	var decls []ast.Decl
	var body *ast.Block
	switch d := decl.(type) {
	case *ast.ProcDecl:
		params, decls, body = d.Params, d.Decls, d.Body
	case *ast.FuncDecl:
		params, decls, body = d.Params, d.Decls, d.Body
	case *ast.ConstructorDecl:
		params, decls, body = d.Params, d.Decls, d.Body
	}
	frame := NewFrame()
	for i, p := range params {
		if p.Mode == ast.ByRef {
			h, err := it.resolveHandle(callerCtx, argExprs[i])
			if err != nil {
				return Value{}, err
			}
			frame.Define(p.Name, h)
			continue
		}
		frame.Define(p.Name, NewCell(args[i].Clone()))
	}
	newCtx := &execCtx{frame: frame, object: obj, class: class}
	if sig != nil {
		newCtx.returnType = sig.Return
	}
	if err := it.execBody(newCtx, decls, body.Statements); err != nil {
		return Value{}, err
	}
	if isFunction {
		return newCtx.returnVal, nil
	}
	return Value{}, nil
}
