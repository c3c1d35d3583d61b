// Package parser implements a recursive-descent parser from the Lexer's
// token stream to the ast package's node model.
//
// Precedence, lowest to highest: OR; AND; comparisons including IN; set
// operators UNION/INTERSECT/DIFF; concatenation &; additive + -;
// multiplicative * / DIV MOD; unary + - NOT @ ^; primary. Every level
// evaluates left to right; the parser never special-cases short circuiting.
package parser

import (
	"fmt"

	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
)

// Parser consumes a fully-tokenized source buffer and builds an AST. It
// stops at the first malformed construct, per the spec's "any unexpected
// token -> SyntaxError" rule.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// New tokenizes src and returns a ready Parser, or the lexical *errors.Diagnostic
// if tokenizing itself fails.
func New(src string) (*Parser, error) {
	toks, err := lexer.All(src)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, perr.New(perr.SyntaxError, le.Pos.Line, "%s", le.Message)
		}
		return nil, perr.New(perr.SyntaxError, 0, "%s", err.Error())
	}
	return &Parser{toks: toks}, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) fail(format string, args ...any) error {
	return perr.New(perr.SyntaxError, p.cur().Pos.Line, format, args...)
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type != tt {
		return lexer.Token{}, p.fail("expected %s, got %s %q", tt, p.cur().Type, p.cur().Literal)
	}
	return p.advance(), nil
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

// ParseProgram parses a full "PROGRAM ... ENDPROGRAM" unit.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	start := p.cur().Pos.Line
	if _, err := p.expect(lexer.PROGRAM); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decls, stmts, err := p.parseDeclsAndStatements(lexer.ENDPROGRAM)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ENDPROGRAM); err != nil {
		return nil, err
	}
	return &ast.Program{LineNo: start, Name: nameTok.Literal, Decls: decls, Statements: stmts}, nil
}

// isDeclStart reports whether the current token can start a declaration.
func (p *Parser) isDeclStart() bool {
	switch p.cur().Type {
	case lexer.DECLARE, lexer.CONSTANT, lexer.TYPE, lexer.PROCEDURE, lexer.FUNCTION, lexer.CLASS:
		return true
	}
	return false
}

func (p *Parser) parseDeclsAndStatements(end lexer.TokenType) ([]ast.Decl, []ast.Stmt, error) {
	var decls []ast.Decl
	for p.isDeclStart() {
		d, err := p.parseDecl()
		if err != nil {
			return nil, nil, err
		}
		decls = append(decls, d)
	}
	var stmts []ast.Stmt
	for !p.at(end) && !p.at(lexer.EOFTOK) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, s)
	}
	return decls, stmts, nil
}

func (p *Parser) parseDecl() (ast.Decl, error) {
	switch p.cur().Type {
	case lexer.DECLARE:
		return p.parseVarDecl()
	case lexer.CONSTANT:
		return p.parseConstDecl()
	case lexer.TYPE:
		return p.parseTypeDecl()
	case lexer.PROCEDURE:
		return p.parseProcDecl()
	case lexer.FUNCTION:
		return p.parseFuncDecl()
	case lexer.CLASS:
		return p.parseClassDecl()
	default:
		return nil, p.fail("expected a declaration, got %s", p.cur().Type)
	}
}

func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // DECLARE
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	return &ast.VarDecl{LineNo: line, Name: name.Literal, Type: t}, nil
}

func (p *Parser) parseConstDecl() (*ast.ConstDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // CONSTANT
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ConstDecl{LineNo: line, Name: name.Literal, Value: val}, nil
}

func (p *Parser) parseTypeDecl() (*ast.TypeDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // TYPE
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.EQ); err != nil {
		return nil, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	return &ast.TypeDecl{LineNo: line, Name: name.Literal, Type: t}, nil
}

// parseTypeExpr parses a type expression: basic, ARRAY[...] OF T, RECORD...
// ENDRECORD, (enum members), SET OF Name, POINTER TO T, TEXTFILE,
// RANDOMFILE OF Name, or a bare name (alias/class reference).
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	line := p.cur().Pos.Line
	switch p.cur().Type {
	case lexer.INTEGER, lexer.REALTYPE, lexer.BOOLEAN, lexer.CHAR, lexer.STRING, lexer.DATETYPE:
		name := p.advance().Literal
		return &ast.BasicType{LineNo: line, Name: name}, nil
	case lexer.ARRAY:
		p.advance()
		if _, err := p.expect(lexer.LBRACKET); err != nil {
			return nil, err
		}
		var bounds []ast.ArrayBound
		for {
			lo, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			hi, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, ast.ArrayBound{Low: lo, High: hi})
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.OF); err != nil {
			return nil, err
		}
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayType{LineNo: line, Bounds: bounds, Element: elem}, nil
	case lexer.RECORD:
		p.advance()
		var fields []ast.RecordField
		for !p.at(lexer.ENDRECORD) {
			fline := p.cur().Pos.Line
			fname, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			ftype, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.RecordField{LineNo: fline, Name: fname.Literal, Type: ftype})
		}
		p.advance() // ENDRECORD
		return &ast.RecordType{LineNo: line, Fields: fields}, nil
	case lexer.LPAREN:
		p.advance()
		var members []string
		for {
			m, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			members = append(members, m.Literal)
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.EnumType{LineNo: line, Members: members}, nil
	case lexer.SET:
		p.advance()
		if _, err := p.expect(lexer.OF); err != nil {
			return nil, err
		}
		ofName, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.SetType{LineNo: line, OfName: ofName.Literal}, nil
	case lexer.POINTER:
		p.advance()
		if _, err := p.expect(lexer.TO); err != nil {
			return nil, err
		}
		target, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.PointerType{LineNo: line, Target: target}, nil
	case lexer.IDENT:
		switch p.cur().Literal {
		case "TEXTFILE":
			p.advance()
			return &ast.TextFileType{LineNo: line}, nil
		case "RANDOMFILE":
			p.advance()
			if _, err := p.expect(lexer.OF); err != nil {
				return nil, err
			}
			rec, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			return &ast.RandomFileType{LineNo: line, Record: rec}, nil
		default:
			name := p.advance().Literal
			return &ast.NamedType{LineNo: line, Name: name}, nil
		}
	default:
		return nil, p.fail("expected a type, got %s", p.cur().Type)
	}
}

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
		line := p.cur().Pos.Line
		mode := ast.ByValue
		switch p.cur().Type {
		case lexer.BYVAL:
			p.advance()
		case lexer.BYREF:
			mode = ast.ByRef
			p.advance()
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{LineNo: line, Name: name.Literal, Type: t, Mode: mode})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseProcDecl() (*ast.ProcDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // PROCEDURE
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	decls, stmts, err := p.parseDeclsAndStatements(lexer.ENDPROCEDURE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ENDPROCEDURE); err != nil {
		return nil, err
	}
	return &ast.ProcDecl{LineNo: line, Name: name.Literal, Params: params, Decls: decls, Body: &ast.Block{LineNo: line, Statements: stmts}}, nil
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // FUNCTION
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RETURNS); err != nil {
		return nil, err
	}
	rt, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	decls, stmts, err := p.parseDeclsAndStatements(lexer.ENDFUNCTION)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ENDFUNCTION); err != nil {
		return nil, err
	}
	return &ast.FuncDecl{LineNo: line, Name: name.Literal, Params: params, ReturnType: rt, Decls: decls, Body: &ast.Block{LineNo: line, Statements: stmts}}, nil
}

func (p *Parser) parseClassDecl() (*ast.ClassDecl, error) {
	line := p.cur().Pos.Line
	p.advance() // CLASS
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	base := ""
	if p.at(lexer.EXTENDS) {
		p.advance()
		baseTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		base = baseTok.Literal
	}
	access := ast.AccessDefault
	var members []ast.ClassMember
	for !p.at(lexer.ENDCLASS) {
		switch p.cur().Type {
		case lexer.PUBLIC:
			p.advance()
			access = ast.Public
			continue
		case lexer.PRIVATE:
			p.advance()
			access = ast.Private
			continue
		case lexer.DECLARE:
			field, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			members = append(members, ast.ClassMember{Access: access, Field: field})
		case lexer.PROCEDURE:
			proc, err := p.parseProcDecl()
			if err != nil {
				return nil, err
			}
			members = append(members, ast.ClassMember{Access: access, Proc: proc})
		case lexer.FUNCTION:
			fn, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			members = append(members, ast.ClassMember{Access: access, Func: fn})
		case lexer.CONSTRUCTOR:
			cline := p.cur().Pos.Line
			p.advance()
			params, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			decls, stmts, err := p.parseDeclsAndStatements(lexer.ENDCONSTRUCTOR)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.ENDCONSTRUCTOR); err != nil {
				return nil, err
			}
			ctor := &ast.ConstructorDecl{LineNo: cline, Params: params, Decls: decls, Body: &ast.Block{LineNo: cline, Statements: stmts}}
			members = append(members, ast.ClassMember{Access: access, Ctor: ctor})
		default:
			return nil, p.fail("unexpected token %s in class body", p.cur().Type)
		}
	}
	p.advance() // ENDCLASS
	return &ast.ClassDecl{LineNo: line, Name: name.Literal, Base: base, Members: members}, nil
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) parseBlockUntil(ends ...lexer.TokenType) (*ast.Block, error) {
	line := p.cur().Pos.Line
	var stmts []ast.Stmt
	for !p.atAny(ends...) && !p.at(lexer.EOFTOK) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &ast.Block{LineNo: line, Statements: stmts}, nil
}

func (p *Parser) atAny(tts ...lexer.TokenType) bool {
	for _, tt := range tts {
		if p.at(tt) {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	switch p.cur().Type {
	case lexer.IF:
		return p.parseIf()
	case lexer.CASE:
		return p.parseCase()
	case lexer.FOR:
		return p.parseFor()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.REPEAT:
		return p.parseRepeat()
	case lexer.CALL:
		p.advance()
		callee, err := p.parsePostfixChain()
		if err != nil {
			return nil, err
		}
		call, ok := callee.(*ast.CallExpr)
		if !ok {
			return nil, perr.New(perr.SyntaxError, line, "CALL target must be a procedure or method call")
		}
		return &ast.CallStmt{LineNo: line, Call: call}, nil
	case lexer.RETURN:
		p.advance()
		if p.atStatementEnd() {
			return &ast.ReturnStmt{LineNo: line}, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{LineNo: line, Value: v}, nil
	case lexer.INPUT:
		p.advance()
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.InputStmt{LineNo: line, Target: target}, nil
	case lexer.OUTPUT:
		p.advance()
		var values []ast.Expr
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		for p.at(lexer.COMMA) {
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &ast.OutputStmt{LineNo: line, Values: values}, nil
	case lexer.OPENFILE:
		return p.parseOpenFile()
	case lexer.CLOSEFILE:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.CloseFileStmt{LineNo: line, Handle: h.Literal}, nil
	case lexer.READFILE:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ReadFileStmt{LineNo: line, Handle: h.Literal, Target: target}, nil
	case lexer.WRITEFILE:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.WriteFileStmt{LineNo: line, Handle: h.Literal, Value: v}, nil
	case lexer.SEEK:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		pos, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.SeekStmt{LineNo: line, Handle: h.Literal, Pos: pos}, nil
	case lexer.GETRECORD:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		target, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.GetRecordStmt{LineNo: line, Handle: h.Literal, Target: target}, nil
	case lexer.PUTRECORD:
		p.advance()
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COMMA); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.PutRecordStmt{LineNo: line, Handle: h.Literal, Value: v}, nil
	case lexer.SUPER:
		return p.parseSuperCall()
	default:
		return p.parseAssignOrCall()
	}
}

// atStatementEnd reports whether the current token cannot start an
// expression, used to detect a bare "RETURN" with no value.
func (p *Parser) atStatementEnd() bool {
	switch p.cur().Type {
	case lexer.EOFTOK, lexer.ENDPROCEDURE, lexer.ENDFUNCTION, lexer.ENDCONSTRUCTOR,
		lexer.ENDPROGRAM, lexer.ENDIF, lexer.ELSE, lexer.ENDWHILE, lexer.ENDCASE,
		lexer.OTHERWISE, lexer.NEXT, lexer.UNTIL:
		return true
	}
	return false
}

func (p *Parser) parseSuperCall() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // SUPER
	method := ""
	if p.at(lexer.DOT) {
		p.advance()
		m, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		method = m.Literal
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &ast.SuperCallStmt{LineNo: line, Method: method, Args: args}, nil
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(lexer.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parseAssignOrCall parses "lvalue <- expr" or a bare function/procedure
// call used as a statement (without the CALL keyword).
func (p *Parser) parseAssignOrCall() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	target, err := p.parsePostfixChain()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.ASSIGN) {
		p.advance()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{LineNo: line, Target: target, Value: value}, nil
	}
	if call, ok := target.(*ast.CallExpr); ok {
		return &ast.CallStmt{LineNo: line, Call: call}, nil
	}
	return nil, p.fail("expected assignment or call statement")
}

func (p *Parser) parseOpenFile() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // OPENFILE
	h, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	path, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	mode, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.OpenFileStmt{LineNo: line, Handle: h.Literal, Path: path, Mode: mode}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // IF
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.THEN); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlockUntil(lexer.ELSE, lexer.ENDIF)
	if err != nil {
		return nil, err
	}
	var elseBlock *ast.Block
	if p.at(lexer.ELSE) {
		p.advance()
		elseBlock, err = p.parseBlockUntil(lexer.ENDIF)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.ENDIF); err != nil {
		return nil, err
	}
	return &ast.IfStmt{LineNo: line, Cond: cond, Then: thenBlock, Else: elseBlock}, nil
}

func (p *Parser) parseCaseLabel() (ast.CaseLabel, error) {
	lit, err := p.parseExpr()
	if err != nil {
		return ast.CaseLabel{}, err
	}
	if p.at(lexer.TO) {
		p.advance()
		hi, err := p.parseExpr()
		if err != nil {
			return ast.CaseLabel{}, err
		}
		return ast.CaseLabel{Low: lit, High: hi}, nil
	}
	return ast.CaseLabel{Single: lit}, nil
}

func (p *Parser) parseCase() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // CASE
	subj, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.OF); err != nil {
		return nil, err
	}
	var branches []ast.CaseBranch
	var otherwise *ast.Block
	for !p.at(lexer.ENDCASE) {
		if p.at(lexer.OTHERWISE) {
			p.advance()
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			otherwise, err = p.parseBlockUntil(lexer.ENDCASE, lexer.OTHERWISE)
			if err != nil {
				return nil, err
			}
			break
		}
		var labels []ast.CaseLabel
		lbl, err := p.parseCaseLabel()
		if err != nil {
			return nil, err
		}
		labels = append(labels, lbl)
		for p.at(lexer.COMMA) {
			p.advance()
			lbl, err := p.parseCaseLabel()
			if err != nil {
				return nil, err
			}
			labels = append(labels, lbl)
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		body, err := p.parseCaseBranchBody()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.CaseBranch{Labels: labels, Body: body})
	}
	if _, err := p.expect(lexer.ENDCASE); err != nil {
		return nil, err
	}
	return &ast.CaseStmt{LineNo: line, Subject: subj, Branches: branches, Otherwise: otherwise}, nil
}

// parseCaseBranchBody parses statements until ENDCASE, OTHERWISE, or what
// looks like the start of the next case label (a statement that is not a
// recognized statement-start token is ambiguous with a label, so case
// bodies in Prescribe are a single statement; this keeps the grammar LL(1)
// without a colon-lookahead scan).
func (p *Parser) parseCaseBranchBody() (*ast.Block, error) {
	line := p.cur().Pos.Line
	if p.at(lexer.ENDCASE) || p.at(lexer.OTHERWISE) {
		return &ast.Block{LineNo: line}, nil
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Block{LineNo: line, Statements: []ast.Stmt{s}}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // FOR
	counter, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TO); err != nil {
		return nil, err
	}
	end, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var step ast.Expr
	if p.at(lexer.STEP) {
		p.advance()
		step, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlockUntil(lexer.NEXT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.NEXT); err != nil {
		return nil, err
	}
	// The parser does not verify the NEXT identifier matches the loop
	// counter; the checker does (per the spec).
	nextName, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{LineNo: line, Counter: counter.Literal, NextName: nextName.Literal, Start: start, End: end, Step: step, Body: body}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // WHILE
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil(lexer.ENDWHILE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ENDWHILE); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{LineNo: line, Cond: cond, Body: body}, nil
}

func (p *Parser) parseRepeat() (ast.Stmt, error) {
	line := p.cur().Pos.Line
	p.advance() // REPEAT
	body, err := p.parseBlockUntil(lexer.UNTIL)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.UNTIL); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.RepeatStmt{LineNo: line, Body: body, Until: cond}, nil
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func isRelOp(tt lexer.TokenType) bool {
	switch tt {
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE, lexer.IN:
		return true
	}
	return false
}

func (p *Parser) parseRel() (ast.Expr, error) {
	left, err := p.parseSetOp()
	if err != nil {
		return nil, err
	}
	for isRelOp(p.cur().Type) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseSetOp()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func isSetOp(tt lexer.TokenType) bool {
	return tt == lexer.UNION || tt == lexer.INTERSECT || tt == lexer.DIFF
}

func (p *Parser) parseSetOp() (ast.Expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for isSetOp(p.cur().Type) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseConcat() (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AMP) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func isMulOp(tt lexer.TokenType) bool {
	switch tt {
	case lexer.STAR, lexer.SLASH, lexer.DIV, lexer.MOD:
		return true
	}
	return false
}

func (p *Parser) parseMul() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for isMulOp(p.cur().Type) {
		line := p.cur().Pos.Line
		op := p.advance().Type
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{LineNo: line, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	line := p.cur().Pos.Line
	switch p.cur().Type {
	case lexer.PLUS, lexer.MINUS, lexer.NOT:
		op := p.advance().Type
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{LineNo: line, Op: op, Operand: operand}, nil
	case lexer.AT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{LineNo: line, Op: lexer.AT, Operand: operand}, nil
	case lexer.CARET:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.DerefExpr{LineNo: line, Operand: operand}, nil
	default:
		return p.parsePostfixChain()
	}
}

// parsePostfixChain parses a primary expression followed by any sequence of
// index, field-access, or call suffixes.
func (p *Parser) parsePostfixChain() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		line := p.cur().Pos.Line
		switch p.cur().Type {
		case lexer.LBRACKET:
			p.advance()
			var indices []ast.Expr
			for {
				idx, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				indices = append(indices, idx)
				if p.at(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{LineNo: line, Base: expr, Indices: indices}
		case lexer.DOT:
			p.advance()
			field, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.FieldExpr{LineNo: line, Base: expr, Field: field.Literal}
		case lexer.LPAREN:
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{LineNo: line, Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	line := p.cur().Pos.Line
	switch p.cur().Type {
	case lexer.INT:
		tok := p.advance()
		var v int64
		fmt.Sscanf(tok.Literal, "%d", &v)
		return &ast.IntLit{LineNo: line, Value: int32(v)}, nil
	case lexer.REALNUM:
		tok := p.advance()
		var v float64
		fmt.Sscanf(tok.Literal, "%g", &v)
		return &ast.RealLit{LineNo: line, Value: v}, nil
	case lexer.BOOLLIT:
		tok := p.advance()
		return &ast.BoolLit{LineNo: line, Value: tok.Literal == "TRUE"}, nil
	case lexer.CHARLIT:
		tok := p.advance()
		return &ast.CharLit{LineNo: line, Value: []rune(tok.Literal)[0]}, nil
	case lexer.STRINGLIT:
		tok := p.advance()
		return &ast.StringLit{LineNo: line, Value: tok.Literal}, nil
	case lexer.NULLKW:
		p.advance()
		return &ast.NullLit{LineNo: line}, nil
	case lexer.DATEKW, lexer.DATETYPE:
		p.advance()
		if p.at(lexer.STRINGLIT) {
			tok := p.advance()
			return &ast.DateLit{LineNo: line, Raw: tok.Literal}, nil
		}
		if p.at(lexer.LPAREN) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{LineNo: line, Callee: &ast.NameExpr{LineNo: line, Name: "DATE"}, Args: args}, nil
		}
		return nil, p.fail("expected string literal or '(' after DATE")
	case lexer.EOFFUNC:
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		h, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.EOFExpr{LineNo: line, Handle: h.Literal}, nil
	case lexer.NEW:
		p.advance()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if p.at(lexer.LPAREN) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &ast.NewExpr{LineNo: line, TypeName: name.Literal, Args: args, IsClass: true}, nil
		}
		return &ast.NewExpr{LineNo: line, TypeName: name.Literal, IsClass: false}, nil
	case lexer.INTEGER, lexer.REALTYPE, lexer.STRING, lexer.CHAR, lexer.BOOLEAN:
		// Built-in conversion functions spelled identically to a basic type
		// keyword (REAL(), STRING(), CHAR(), BOOLEAN()); only valid here when
		// immediately followed by '('.
		name := p.advance().Literal
		if !p.at(lexer.LPAREN) {
			return nil, p.fail("unexpected type keyword %s in expression", name)
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{LineNo: line, Callee: &ast.NameExpr{LineNo: line, Name: name}, Args: args}, nil
	case lexer.IDENT:
		name := p.advance().Literal
		return &ast.NameExpr{LineNo: line, Name: name}, nil
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, p.fail("unexpected token %s %q in expression", p.cur().Type, p.cur().Literal)
	}
}
