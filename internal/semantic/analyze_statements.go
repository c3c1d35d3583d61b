package semantic

import (
	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/types"
)

// isInputParseable reports whether t is a target type INPUT/READFILE know how
// to parse a token into, per §6's per-type table.
func isInputParseable(t types.Type) bool {
	switch t.Tag() {
	case types.Integer, types.Real, types.BooleanT, types.CharT, types.StringT, types.DateT, types.Enum:
		return true
	}
	return false
}

// checkBody runs the full two-phase bind-then-visit pass over one block's
// declarations (pre-declare names, resolve types/classes, bind nested class
// bodies, visit vars/consts/routines in order) and then checks its
// statements. Used for the program root and for every nested routine body,
// since the grammar allows PROCEDURE/FUNCTION/CLASS to nest inside a body's
// local declarations.
func (a *Analyzer) checkBody(decls []ast.Decl, stmts []ast.Stmt) error {
	if err := a.preDeclare(decls); err != nil {
		return err
	}
	if err := a.resolveTypesAndClasses(decls); err != nil {
		return err
	}
	for _, d := range decls {
		if cd, ok := d.(*ast.ClassDecl); ok {
			if err := a.checkClassBodies(a.syms.Classes[cd.Name]); err != nil {
				return err
			}
		}
	}
	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.VarDecl:
			if _, exists := a.syms.Current().ResolveLocal(dd.Name); exists {
				return perr.New(perr.NameError, dd.Line(), "%q already declared", dd.Name)
			}
			t, err := a.resolveTypeExpr(dd.Type)
			if err != nil {
				return err
			}
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindVar, Type: t, Decl: dd})
		case *ast.ConstDecl:
			if _, exists := a.syms.Current().ResolveLocal(dd.Name); exists {
				return perr.New(perr.NameError, dd.Line(), "%q already declared", dd.Name)
			}
			c, err := a.evalConst(dd.Value)
			if err != nil {
				return err
			}
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindConst, Type: c.Type, Const: c, Decl: dd})
		case *ast.ProcDecl:
			if err := a.checkRoutineBody(dd.Params, dd.Decls, dd.Body, nil, false); err != nil {
				return err
			}
		case *ast.FuncDecl:
			sym, _ := a.syms.Current().Resolve(dd.Name)
			if err := a.checkRoutineBody(dd.Params, dd.Decls, dd.Body, sym.Type, true); err != nil {
				return err
			}
		}
	}
	for _, s := range stmts {
		if err := a.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// checkRoutineBody checks one procedure/function/constructor/method body in
// a fresh child scope with its parameters bound.
func (a *Analyzer) checkRoutineBody(params []ast.Param, decls []ast.Decl, body *ast.Block, ret types.Type, inFunction bool) error {
	a.syms.Push()
	savedRet, savedFn := a.returnType, a.inFunction
	a.returnType, a.inFunction = ret, inFunction
	for _, p := range params {
		t, err := a.resolveTypeExpr(p.Type)
		if err != nil {
			a.syms.Pop()
			return err
		}
		a.syms.Define(&Symbol{Name: p.Name, Kind: KindParam, Type: t})
	}
	err := a.checkBody(decls, body.Statements)
	a.returnType, a.inFunction = savedRet, savedFn
	a.syms.Pop()
	return err
}

// checkClassBodies type-checks every method and the constructor of ci with
// a.currentClass set so field/method access control and implicit
// self-reference resolution apply.
func (a *Analyzer) checkClassBodies(ci *ClassInfo) error {
	savedClass := a.currentClass
	a.currentClass = ci
	defer func() { a.currentClass = savedClass }()
	for _, m := range ci.Decl.Members {
		switch {
		case m.Proc != nil:
			if err := a.checkRoutineBody(m.Proc.Params, m.Proc.Decls, m.Proc.Body, nil, false); err != nil {
				return err
			}
		case m.Func != nil:
			sym, _ := ci.LookupMethod(m.Func.Name)
			if err := a.checkRoutineBody(m.Func.Params, m.Func.Decls, m.Func.Body, sym.Type, true); err != nil {
				return err
			}
		case m.Ctor != nil:
			if err := a.checkRoutineBody(m.Ctor.Params, m.Ctor.Decls, m.Ctor.Body, nil, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) checkBlock(b *ast.Block) error {
	for _, s := range b.Statements {
		if err := a.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.AssignStmt:
		return a.checkAssign(st)
	case *ast.CallStmt:
		t, err := a.checkCall(st.Call)
		if err != nil {
			return err
		}
		if t != nil {
			return perr.New(perr.TypeError, st.Line(), "CALL target must be a procedure or procedure-returning method")
		}
		return nil
	case *ast.IfStmt:
		ct, err := a.checkExpr(st.Cond)
		if err != nil {
			return err
		}
		if ct.Tag() != types.BooleanT {
			return perr.New(perr.TypeError, st.Line(), "IF condition must be Boolean")
		}
		if err := a.checkBlock(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return a.checkBlock(st.Else)
		}
		return nil
	case *ast.CaseStmt:
		return a.checkCase(st)
	case *ast.ForStmt:
		return a.checkFor(st)
	case *ast.WhileStmt:
		ct, err := a.checkExpr(st.Cond)
		if err != nil {
			return err
		}
		if ct.Tag() != types.BooleanT {
			return perr.New(perr.TypeError, st.Line(), "WHILE condition must be Boolean")
		}
		return a.checkBlock(st.Body)
	case *ast.RepeatStmt:
		if err := a.checkBlock(st.Body); err != nil {
			return err
		}
		ut, err := a.checkExpr(st.Until)
		if err != nil {
			return err
		}
		if ut.Tag() != types.BooleanT {
			return perr.New(perr.TypeError, st.Line(), "UNTIL condition must be Boolean")
		}
		return nil
	case *ast.ReturnStmt:
		return a.checkReturn(st)
	case *ast.InputStmt:
		if !isLvalue(st.Target) {
			return perr.New(perr.TypeError, st.Line(), "INPUT target must be an lvalue")
		}
		tt, err := a.checkExpr(st.Target)
		if err != nil {
			return err
		}
		if !isInputParseable(tt) {
			return perr.New(perr.TypeError, st.Line(), "INPUT target type is not readable")
		}
		return nil
	case *ast.OutputStmt:
		for _, v := range st.Values {
			vt, err := a.checkExpr(v)
			if err != nil {
				return err
			}
			if !isOutputtableScalar(vt) {
				return perr.New(perr.TypeError, v.Line(), "OUTPUT value must be a scalar type")
			}
		}
		return nil
	case *ast.OpenFileStmt:
		return a.checkOpenFile(st)
	case *ast.CloseFileStmt:
		_, err := a.resolveFileHandle(st.Line(), st.Handle, types.TextFile, types.RandomFile)
		return err
	case *ast.ReadFileStmt:
		ft, err := a.resolveFileHandle(st.Line(), st.Handle, types.TextFile)
		if err != nil {
			return err
		}
		_ = ft
		if !isLvalue(st.Target) {
			return perr.New(perr.TypeError, st.Line(), "READFILE target must be an lvalue")
		}
		tt, err := a.checkExpr(st.Target)
		if err != nil {
			return err
		}
		if !isInputParseable(tt) {
			return perr.New(perr.TypeError, st.Line(), "READFILE target type is not readable")
		}
		return nil
	case *ast.WriteFileStmt:
		if _, err := a.resolveFileHandle(st.Line(), st.Handle, types.TextFile); err != nil {
			return err
		}
		vt, err := a.checkExpr(st.Value)
		if err != nil {
			return err
		}
		if !isOutputtableScalar(vt) {
			return perr.New(perr.TypeError, st.Line(), "WRITEFILE value must be a scalar type")
		}
		return nil
	case *ast.SeekStmt:
		if _, err := a.resolveFileHandle(st.Line(), st.Handle, types.RandomFile); err != nil {
			return err
		}
		pt, err := a.checkExpr(st.Pos)
		if err != nil {
			return err
		}
		if pt.Tag() != types.Integer {
			return perr.New(perr.TypeError, st.Line(), "SEEK position must be Integer")
		}
		return nil
	case *ast.GetRecordStmt:
		ft, err := a.resolveFileHandle(st.Line(), st.Handle, types.RandomFile)
		if err != nil {
			return err
		}
		if !isLvalue(st.Target) {
			return perr.New(perr.TypeError, st.Line(), "GETRECORD target must be an lvalue")
		}
		tt, err := a.checkExpr(st.Target)
		if err != nil {
			return err
		}
		rf := ft.(*types.RandomFileType)
		if !types.Equal(tt, rf.Record) {
			return perr.New(perr.TypeError, st.Line(), "GETRECORD target must match the file's record type %s", rf.Record)
		}
		return nil
	case *ast.PutRecordStmt:
		ft, err := a.resolveFileHandle(st.Line(), st.Handle, types.RandomFile)
		if err != nil {
			return err
		}
		vt, err := a.checkExpr(st.Value)
		if err != nil {
			return err
		}
		rf := ft.(*types.RandomFileType)
		if !types.Assignable(rf.Record, vt) {
			return perr.New(perr.TypeError, st.Line(), "PUTRECORD value must match the file's record type %s", rf.Record)
		}
		return nil
	case *ast.SuperCallStmt:
		return a.checkSuperCall(st)
	}
	return perr.New(perr.SyntaxError, s.Line(), "unrecognized statement")
}

func (a *Analyzer) checkAssign(st *ast.AssignStmt) error {
	if !isLvalue(st.Target) {
		return perr.New(perr.TypeError, st.Line(), "assignment target must be an lvalue")
	}
	if name, ok := st.Target.(*ast.NameExpr); ok {
		if sym, ok := a.syms.Resolve(name.Name); ok {
			if sym.Kind == KindConst || sym.Kind == KindEnumMember {
				return perr.New(perr.AccessError, st.Line(), "cannot assign to constant %q", name.Name)
			}
			if sym.IsLoopVar {
				return perr.New(perr.AccessError, st.Line(), "cannot assign to loop counter %q", name.Name)
			}
		}
	}
	tt, err := a.checkExpr(st.Target)
	if err != nil {
		return err
	}
	vt, err := a.checkExpr(st.Value)
	if err != nil {
		return err
	}
	if !types.Assignable(tt, vt) {
		dst, dok := tt.(*types.ClassType)
		src, sok := vt.(*types.ClassType)
		if !dok || !sok || !a.syms.Classes[src.Name].IsDescendantOf(a.syms.Classes[dst.Name]) {
			return perr.New(perr.TypeError, st.Line(), "cannot assign %s to %s", vt, tt)
		}
	}
	return nil
}

func (a *Analyzer) checkCase(st *ast.CaseStmt) error {
	subjT, err := a.checkExpr(st.Subject)
	if err != nil {
		return err
	}
	switch subjT.Tag() {
	case types.Integer, types.CharT, types.Enum, types.DateT:
	default:
		return perr.New(perr.TypeError, st.Line(), "CASE subject must be Integer, Char, Enum, or Date")
	}
	seen := map[interface{}]bool{}
	for _, br := range st.Branches {
		for _, lbl := range br.Labels {
			if lbl.Low != nil {
				lo, err := a.evalConst(lbl.Low)
				if err != nil {
					return err
				}
				hi, err := a.evalConst(lbl.High)
				if err != nil {
					return err
				}
				if !types.Equal(subjT, lo.Type) || !types.Equal(subjT, hi.Type) {
					return perr.New(perr.TypeError, st.Line(), "CASE range label type must match the subject type")
				}
				continue
			}
			c, err := a.evalConst(lbl.Single)
			if err != nil {
				return err
			}
			if !types.Equal(subjT, c.Type) {
				return perr.New(perr.TypeError, lbl.Single.Line(), "CASE label type must match the subject type")
			}
			key := constKey(c)
			if seen[key] {
				return perr.New(perr.SyntaxError, lbl.Single.Line(), "duplicate CASE label")
			}
			seen[key] = true
		}
		if err := a.checkBlock(br.Body); err != nil {
			return err
		}
	}
	if st.Otherwise != nil {
		return a.checkBlock(st.Otherwise)
	}
	return nil
}

func constKey(c *Const) interface{} {
	switch c.Type.Tag() {
	case types.Integer, types.Enum:
		return c.I
	case types.CharT:
		return c.C
	case types.DateT:
		return c.D.String()
	default:
		return c.S
	}
}

func (a *Analyzer) checkFor(st *ast.ForStmt) error {
	if st.NextName != st.Counter {
		return perr.New(perr.SyntaxError, st.Line(), "NEXT %s does not match FOR counter %s", st.NextName, st.Counter)
	}
	startT, err := a.checkExpr(st.Start)
	if err != nil {
		return err
	}
	endT, err := a.checkExpr(st.End)
	if err != nil {
		return err
	}
	if startT.Tag() != types.Integer || endT.Tag() != types.Integer {
		return perr.New(perr.TypeError, st.Line(), "FOR start/end must be Integer")
	}
	if st.Step != nil {
		stepT, err := a.checkExpr(st.Step)
		if err != nil {
			return err
		}
		if stepT.Tag() != types.Integer {
			return perr.New(perr.TypeError, st.Line(), "FOR step must be Integer")
		}
	}
	a.syms.Push()
	a.syms.Define(&Symbol{Name: st.Counter, Kind: KindVar, Type: types.IntegerType, IsLoopVar: true})
	err = a.checkBlock(st.Body)
	a.syms.Pop()
	return err
}

func (a *Analyzer) checkReturn(st *ast.ReturnStmt) error {
	if a.inFunction {
		if st.Value == nil {
			return perr.New(perr.TypeError, st.Line(), "RETURN inside a FUNCTION requires a value")
		}
		vt, err := a.checkExpr(st.Value)
		if err != nil {
			return err
		}
		if !types.Assignable(a.returnType, vt) {
			return perr.New(perr.TypeError, st.Line(), "cannot return %s from a function returning %s", vt, a.returnType)
		}
		return nil
	}
	if st.Value != nil {
		return perr.New(perr.TypeError, st.Line(), "RETURN with a value is only allowed inside a FUNCTION")
	}
	return nil
}

// resolveFileHandle resolves name as a declared file-typed variable and
// checks its static type tag is one of allowed.
func (a *Analyzer) resolveFileHandle(line int, name string, allowed ...types.Tag) (types.Type, error) {
	sym, ok := a.syms.Resolve(name)
	if !ok {
		return nil, perr.New(perr.NameError, line, "undeclared file handle %q", name)
	}
	for _, tag := range allowed {
		if sym.Type != nil && sym.Type.Tag() == tag {
			return sym.Type, nil
		}
	}
	return nil, perr.New(perr.TypeError, line, "%q is not a file handle of the required kind", name)
}

func (a *Analyzer) checkOpenFile(st *ast.OpenFileStmt) error {
	if _, err := a.resolveFileHandle(st.Line(), st.Handle, types.TextFile, types.RandomFile); err != nil {
		return err
	}
	pt, err := a.checkExpr(st.Path)
	if err != nil {
		return err
	}
	if pt.Tag() != types.StringT {
		return perr.New(perr.TypeError, st.Line(), "OPENFILE path must be String")
	}
	mt, err := a.checkExpr(st.Mode)
	if err != nil {
		return err
	}
	if mt.Tag() != types.StringT {
		return perr.New(perr.TypeError, st.Line(), "OPENFILE mode must be String")
	}
	return nil
}

func (a *Analyzer) checkSuperCall(st *ast.SuperCallStmt) error {
	if a.currentClass == nil || a.currentClass.Base == nil {
		return perr.New(perr.TypeError, st.Line(), "SUPER requires a base class")
	}
	base := a.currentClass.Base
	if st.Method == "" {
		var sig *Signature
		if base.Constructor != nil {
			sig = base.Constructor.Signature
		}
		return a.checkArgs(st.Line(), sig, st.Args)
	}
	m, _ := base.LookupMethod(st.Method)
	if m == nil {
		return perr.New(perr.NameError, st.Line(), "base class %q has no method %q", base.Name, st.Method)
	}
	return a.checkArgs(st.Line(), m.Signature, st.Args)
}
