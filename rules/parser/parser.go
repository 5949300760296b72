/*
Package parser implements the rules DSL's recursive-descent parser (§4.7).

Grounded on factory/policy.go's validate-then-build pipeline and
calvinalkan-agent-task/internal/spec/spec.go's hand-written recursive
descent over a token stream — no library in the example corpus offers a
parser combinator or generated-grammar toolkit, so this stays hand-written
in that idiom (stdlib-only choice justified in DESIGN.md).
*/
package parser

import (
	"fmt"

	"github.com/warp/docuhearth/rules/ast"
	"github.com/warp/docuhearth/rules/lexer"
)

// acceptedServices is the set of service names the parser allows (§4.7:
// "Accepted services: cloud.firestore and firebase.storage; anything else
// -> syntax error").
var acceptedServices = map[string]bool{
	"cloud.firestore": true,
	"firebase.storage": true,
}

// Error is a single parse error with position info.
type Error struct {
	Pos     lexer.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Parser consumes a token stream and produces an *ast.File.
type Parser struct {
	toks     []lexer.Token
	pos      int
	recovery bool
	errors   []error
}

// New creates a Parser over a token stream produced by lexer.Tokenize.
func New(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse runs in strict mode: the first error aborts parsing and is
// returned.
func Parse(toks []lexer.Token) (*ast.File, error) {
	p := New(toks)
	f := p.parseFile()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return f, nil
}

// ParseRecover runs in recovery mode (§4.7: "recovery-mode (returns
// best-effort AST plus accumulated errors)"): parsing continues past
// errors, skipping to the next plausible synchronization point, and every
// error encountered is returned alongside whatever AST could be built.
func ParseRecover(toks []lexer.Token) (*ast.File, []error) {
	p := New(toks)
	p.recovery = true
	f := p.parseFile()
	return f, p.errors
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) lexer.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atKeyword(lit string) bool {
	t := p.cur()
	return t.Kind == lexer.Ident && t.Literal == lit
}

func (p *Parser) errorf(pos lexer.Position, format string, args ...any) {
	p.errors = append(p.errors, &Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// expect consumes the current token if it matches kind, else records an
// error and (in recovery mode) returns the zero token without consuming.
func (p *Parser) expect(kind lexer.Kind) lexer.Token {
	if p.cur().Kind == kind {
		return p.advance()
	}
	p.errorf(p.cur().Pos, "expected %s, got %s %q", kind, p.cur().Kind, p.cur().Literal)
	return lexer.Token{Kind: kind}
}

// expectKeyword consumes the current token if it is the ident `lit`.
func (p *Parser) expectKeyword(lit string) lexer.Token {
	if p.atKeyword(lit) {
		return p.advance()
	}
	p.errorf(p.cur().Pos, "expected keyword %q, got %q", lit, p.cur().Literal)
	return lexer.Token{}
}

// synchronize skips tokens until a plausible recovery point (recovery mode
// only): the start of a new top-level construct, or a statement-ending
// semicolon/closing brace.
func (p *Parser) synchronize() {
	for p.cur().Kind != lexer.EOF {
		switch p.cur().Kind {
		case lexer.Semi:
			p.advance()
			return
		case lexer.RBrace:
			return
		}
		if p.atKeyword("service") || p.atKeyword("match") || p.atKeyword("allow") || p.atKeyword("function") {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{RulesVersion: "1"}

	if p.atKeyword("rules_version") {
		p.advance()
		p.expect(lexer.Assign)
		v := p.expect(lexer.String)
		f.RulesVersion = v.Literal
		p.expect(lexer.Semi)
	}

	for p.cur().Kind != lexer.EOF {
		if !p.atKeyword("service") {
			p.errorf(p.cur().Pos, "expected service declaration, got %q", p.cur().Literal)
			if p.recovery {
				p.synchronize()
				continue
			}
			break
		}
		svc := p.parseService()
		if svc != nil {
			f.Services = append(f.Services, svc)
		}
		if !p.recovery && len(p.errors) > 0 {
			break
		}
	}
	return f
}

func (p *Parser) parseService() *ast.Service {
	pos := p.cur().Pos
	p.advance() // "service"
	name := p.parseQualifiedName()
	if !acceptedServices[name] {
		p.errorf(pos, "unsupported service %q", name)
	}
	svc := &ast.Service{Pos: pos, Name: name}
	p.expect(lexer.LBrace)
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.EOF {
		if !p.atKeyword("match") {
			p.errorf(p.cur().Pos, "expected match block, got %q", p.cur().Literal)
			if p.recovery {
				p.synchronize()
				continue
			}
			break
		}
		mb := p.parseMatchBlock()
		if mb != nil {
			svc.Matches = append(svc.Matches, mb)
		}
		if !p.recovery && len(p.errors) > 0 {
			break
		}
	}
	p.expect(lexer.RBrace)
	return svc
}

func (p *Parser) parseQualifiedName() string {
	name := p.expect(lexer.Ident).Literal
	for p.cur().Kind == lexer.Dot {
		p.advance()
		name += "." + p.expect(lexer.Ident).Literal
	}
	return name
}

func (p *Parser) parseMatchBlock() *ast.MatchBlock {
	pos := p.cur().Pos
	p.advance() // "match"
	pattern := p.expect(lexer.Path).Literal
	mb := &ast.MatchBlock{Pos: pos, Pattern: pattern}
	p.expect(lexer.LBrace)
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.EOF {
		switch {
		case p.atKeyword("match"):
			if child := p.parseMatchBlock(); child != nil {
				mb.Matches = append(mb.Matches, child)
			}
		case p.atKeyword("allow"):
			if a := p.parseAllowStmt(); a != nil {
				mb.Allows = append(mb.Allows, a)
			}
		case p.atKeyword("function"):
			if fn := p.parseFunctionDecl(); fn != nil {
				mb.Functions = append(mb.Functions, fn)
			}
		default:
			p.errorf(p.cur().Pos, "expected match/allow/function, got %q", p.cur().Literal)
			if p.recovery {
				p.synchronize()
				continue
			}
			p.expect(lexer.RBrace)
			return mb
		}
		if !p.recovery && len(p.errors) > 0 {
			break
		}
	}
	p.expect(lexer.RBrace)
	return mb
}

var allowedOps = map[string]bool{
	"read": true, "write": true, "get": true, "list": true,
	"create": true, "update": true, "delete": true,
}

func (p *Parser) parseAllowStmt() *ast.AllowStmt {
	pos := p.cur().Pos
	p.advance() // "allow"
	a := &ast.AllowStmt{Pos: pos}

	op := p.expect(lexer.Ident).Literal
	if !allowedOps[op] {
		p.errorf(pos, "unknown allow operation %q", op)
	}
	a.Ops = append(a.Ops, op)
	for p.cur().Kind == lexer.Comma {
		p.advance()
		op := p.expect(lexer.Ident).Literal
		if !allowedOps[op] {
			p.errorf(p.cur().Pos, "unknown allow operation %q", op)
		}
		a.Ops = append(a.Ops, op)
	}

	if p.cur().Kind == lexer.Colon {
		p.advance()
		p.expectKeyword("if")
		a.Cond = p.parseExpr()
	}
	p.expect(lexer.Semi)
	return a
}

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	pos := p.cur().Pos
	p.advance() // "function"
	fn := &ast.FunctionDecl{Pos: pos, Name: p.expect(lexer.Ident).Literal}
	p.expect(lexer.LParen)
	if p.cur().Kind != lexer.RParen {
		fn.Params = append(fn.Params, p.expect(lexer.Ident).Literal)
		for p.cur().Kind == lexer.Comma {
			p.advance()
			fn.Params = append(fn.Params, p.expect(lexer.Ident).Literal)
		}
	}
	p.expect(lexer.RParen)
	p.expect(lexer.LBrace)
	p.expectKeyword("return")
	fn.Body = p.parseExpr()
	p.expect(lexer.Semi)
	p.expect(lexer.RBrace)
	return fn
}

// ParseExpr parses a standalone expression, such as the contents of a
// $(expr) path interpolation, rather than a full rules file.
func ParseExpr(toks []lexer.Token) (ast.Expr, error) {
	p := New(toks)
	x := p.parseExpr()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return x, nil
}

// ---- expressions, by precedence (§4.7 grammar Expr..Primary) ----

func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	x := p.parseAnd()
	for p.cur().Kind == lexer.OrOr {
		op := p.advance()
		y := p.parseAnd()
		x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: "||", X: x, Y: y}
	}
	return x
}

func (p *Parser) parseAnd() ast.Expr {
	x := p.parseEq()
	for p.cur().Kind == lexer.AndAnd {
		op := p.advance()
		y := p.parseEq()
		x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: "&&", X: x, Y: y}
	}
	return x
}

func (p *Parser) parseEq() ast.Expr {
	x := p.parseRel()
	for {
		switch {
		case p.cur().Kind == lexer.Eq:
			op := p.advance()
			x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: "==", X: x, Y: p.parseRel()}
		case p.cur().Kind == lexer.NotEq:
			op := p.advance()
			x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: "!=", X: x, Y: p.parseRel()}
		case p.atKeyword("in"):
			op := p.advance()
			x = &ast.Binary{Pos: op.Pos, Op: lexer.Ident, OpLit: "in", X: x, Y: p.parseRel()}
		case p.atKeyword("is"):
			op := p.advance()
			x = &ast.Binary{Pos: op.Pos, Op: lexer.Ident, OpLit: "is", X: x, Y: p.parseRel()}
		default:
			return x
		}
	}
}

func (p *Parser) parseRel() ast.Expr {
	x := p.parseAdd()
	for {
		var opLit string
		switch p.cur().Kind {
		case lexer.Lt:
			opLit = "<"
		case lexer.Gt:
			opLit = ">"
		case lexer.LtEq:
			opLit = "<="
		case lexer.GtEq:
			opLit = ">="
		default:
			return x
		}
		op := p.advance()
		x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: opLit, X: x, Y: p.parseAdd()}
	}
}

func (p *Parser) parseAdd() ast.Expr {
	x := p.parseMul()
	for p.cur().Kind == lexer.Plus || p.cur().Kind == lexer.Minus {
		op := p.advance()
		x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: op.Literal, X: x, Y: p.parseMul()}
	}
	return x
}

func (p *Parser) parseMul() ast.Expr {
	x := p.parseUnary()
	for p.cur().Kind == lexer.Star || p.cur().Kind == lexer.Slash || p.cur().Kind == lexer.Percent {
		op := p.advance()
		x = &ast.Binary{Pos: op.Pos, Op: op.Kind, OpLit: op.Literal, X: x, Y: p.parseUnary()}
	}
	return x
}

func (p *Parser) parseUnary() ast.Expr {
	if p.cur().Kind == lexer.Bang || p.cur().Kind == lexer.Minus {
		op := p.advance()
		return &ast.Unary{Pos: op.Pos, Op: op.Kind, X: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case lexer.Dot:
			pos := p.advance().Pos
			name := p.expect(lexer.Ident).Literal
			x = &ast.Member{Pos: pos, X: x, Name: name}
		case lexer.LBrack:
			pos := p.advance().Pos
			idx := p.parseExpr()
			p.expect(lexer.RBrack)
			x = &ast.Member{Pos: pos, X: x, Computed: idx}
		case lexer.LParen:
			pos := p.advance().Pos
			var args []ast.Expr
			if p.cur().Kind != lexer.RParen {
				args = append(args, p.parseExpr())
				for p.cur().Kind == lexer.Comma {
					p.advance()
					args = append(args, p.parseExpr())
				}
			}
			p.expect(lexer.RParen)
			x = &ast.Call{Pos: pos, Callee: x, Args: args}
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case lexer.Number:
		p.advance()
		return &ast.BasicLit{Pos: t.Pos, Kind: lexer.Number, Text: t.Literal}
	case lexer.String:
		p.advance()
		return &ast.BasicLit{Pos: t.Pos, Kind: lexer.String, Text: t.Literal}
	case lexer.Path:
		p.advance()
		return &ast.PathLit{Pos: t.Pos, Pattern: t.Literal}
	case lexer.LParen:
		p.advance()
		x := p.parseExpr()
		p.expect(lexer.RParen)
		return &ast.Paren{Pos: t.Pos, X: x}
	case lexer.LBrack:
		p.advance()
		lit := &ast.ListLit{Pos: t.Pos}
		if p.cur().Kind != lexer.RBrack {
			lit.Elems = append(lit.Elems, p.parseExpr())
			for p.cur().Kind == lexer.Comma {
				p.advance()
				lit.Elems = append(lit.Elems, p.parseExpr())
			}
		}
		p.expect(lexer.RBrack)
		return lit
	case lexer.Ident:
		if t.Literal == "true" || t.Literal == "false" || t.Literal == "null" {
			p.advance()
			return &ast.BasicLit{Pos: t.Pos, Kind: lexer.Ident, Text: t.Literal}
		}
		p.advance()
		return &ast.Ident{Pos: t.Pos, Name: t.Literal}
	}
	p.errorf(t.Pos, "unexpected token %s %q in expression", t.Kind, t.Literal)
	p.advance()
	return &ast.BasicLit{Pos: t.Pos, Kind: lexer.Ident, Text: "null"}
}
