/*
Package ast defines the rules DSL's syntax tree (§4.7 grammar).

Grounded on generic/policy.go's nested-struct idiom: a small family of
plain structs, one per grammar production, carrying only the data the
evaluator needs plus a Position for diagnostics.
*/
package ast

import "github.com/warp/docuhearth/rules/lexer"

// File is the root node: one optional rules_version statement followed by
// zero or more service declarations (§4.7 "File").
type File struct {
	RulesVersion string // defaults to "1" when absent (§6)
	Services     []*Service
}

// Service is a "service <name> { ... }" block (§4.7 "Service"). Name is the
// dotted qualified name, e.g. "cloud.firestore".
type Service struct {
	Pos     lexer.Position
	Name    string
	Matches []*MatchBlock
}

// MatchBlock is a "match <path> { ... }" block, which may nest further
// match blocks, allow statements, and function declarations (§4.7
// "MatchBlock").
type MatchBlock struct {
	Pos       lexer.Position
	Pattern   string // raw path literal, e.g. "/users/{uid}"
	Matches   []*MatchBlock
	Allows    []*AllowStmt
	Functions []*FunctionDecl
}

// AllowStmt is "allow <ops> [: if <expr>];" (§4.7 "AllowStmt").
type AllowStmt struct {
	Pos  lexer.Position
	Ops  []string // subset of {read, write, get, list, create, update, delete}
	Cond Expr     // nil means unconditionally allowed
}

// FunctionDecl is "function <name>(<params>) { return <expr>; }" (§4.7
// "FunctionDecl").
type FunctionDecl struct {
	Pos    lexer.Position
	Name   string
	Params []string
	Body   Expr
}

// Expr is the interface every expression node implements.
type Expr interface {
	exprPos() lexer.Position
}

// BasicLit is a literal: number, string, bool, or null.
type BasicLit struct {
	Pos  lexer.Position
	Kind lexer.Kind // Number, String, or Ident (for true/false/null)
	Text string
}

func (n *BasicLit) exprPos() lexer.Position { return n.Pos }

// Ident is a bare identifier reference (request, resource, database, a
// function parameter, a user function name, etc).
type Ident struct {
	Pos  lexer.Position
	Name string
}

func (n *Ident) exprPos() lexer.Position { return n.Pos }

// PathLit is a path literal appearing inside an expression, e.g. as an
// argument to get()/exists().
type PathLit struct {
	Pos     lexer.Position
	Pattern string
}

func (n *PathLit) exprPos() lexer.Position { return n.Pos }

// ListLit is a bracketed expression list, e.g. ['a', 'b'].
type ListLit struct {
	Pos   lexer.Position
	Elems []Expr
}

func (n *ListLit) exprPos() lexer.Position { return n.Pos }

// Unary is a prefix operator application: "!x" or "-x".
type Unary struct {
	Pos lexer.Position
	Op  lexer.Kind // Bang or Minus
	X   Expr
}

func (n *Unary) exprPos() lexer.Position { return n.Pos }

// Binary is an infix operator application, covering ||, &&, ==, !=, in,
// is, <, >, <=, >=, +, -, *, /, %.
type Binary struct {
	Pos   lexer.Position
	Op    lexer.Kind
	OpLit string // literal operator text; distinguishes "in"/"is" (lexed as Ident) from symbolic ops
	X, Y  Expr
}

func (n *Binary) exprPos() lexer.Position { return n.Pos }

// Paren is a parenthesized expression, kept as its own node so diagnostics
// can point at the parens if needed; the evaluator unwraps it immediately.
type Paren struct {
	Pos lexer.Position
	X   Expr
}

func (n *Paren) exprPos() lexer.Position { return n.Pos }

// Member is dot or computed member access: "x.y" or "x[y]".
type Member struct {
	Pos      lexer.Position
	X        Expr
	Name     string // set for dot access
	Computed Expr   // set for computed access; nil when Name is used
}

func (n *Member) exprPos() lexer.Position { return n.Pos }

// Call is a function/method call: "f(args)" or "recv.method(args)".
type Call struct {
	Pos      lexer.Position
	Callee   Expr // Ident for a bare call, Member for a method call
	Args     []Expr
}

func (n *Call) exprPos() lexer.Position { return n.Pos }
