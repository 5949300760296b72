package eval

import (
	"fmt"
	"strings"

	"github.com/warp/docuhearth/rules/ast"
	"github.com/warp/docuhearth/rules/lexer"
	"github.com/warp/docuhearth/rules/parser"
	"github.com/warp/docuhearth/rules/regexguard"
)

// MaxDepth is the evaluator's recursion-depth cap (§4.9: "a recursion-depth
// cap (100)").
const MaxDepth = 100

// ErrDepthExceeded is returned when evaluation recurses past MaxDepth.
var ErrDepthExceeded = fmt.Errorf("eval: recursion depth exceeded (max %d)", MaxDepth)

// Adapter resolves get()/exists() built-ins against the Document Store
// (§4.9: "Supplies request/resource/database and cross-document
// get/exists to evaluator"). Implemented by rules/context.
type Adapter interface {
	Get(path string) (Value, error)
	Exists(path string) (bool, error)
}

// Context is the EvaluatorContext of §4.9: the three top-level identifiers
// plus any path-pattern wildcard bindings, and the Adapter for
// cross-document lookups.
type Context struct {
	Request  Value
	Resource Value
	Database string
	Params   map[string]Value // wildcard bindings from the matched path pattern

	Adapter   Adapter
	Functions map[string]*ast.FunctionDecl // user functions visible at this scope
}

func (c *Context) identifier(name string) (Value, bool) {
	switch name {
	case "request":
		return c.Request, true
	case "resource":
		return c.Resource, true
	case "database":
		return String(c.Database), true
	}
	if v, ok := c.Params[name]; ok {
		return v, true
	}
	return Value{}, false
}

// Evaluator walks an AST expression against a Context.
type Evaluator struct{}

// New creates an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Eval evaluates expr against ctx. A non-nil error means the expression
// could not be evaluated (unknown identifier, type mismatch, division by
// zero, rejected regex, depth cap) — per §7, this is reported as a denial,
// never a crash.
func (ev *Evaluator) Eval(expr ast.Expr, ctx *Context) (Value, error) {
	return ev.eval(expr, ctx, 0)
}

func (ev *Evaluator) eval(expr ast.Expr, ctx *Context, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrDepthExceeded
	}
	switch n := expr.(type) {
	case *ast.BasicLit:
		return ev.evalBasicLit(n)
	case *ast.Ident:
		if v, ok := ctx.identifier(n.Name); ok {
			return v, nil
		}
		return Value{}, fmt.Errorf("eval: unknown identifier %q at %s", n.Name, n.Pos)
	case *ast.PathLit:
		return ev.evalPathLit(n, ctx, depth)
	case *ast.ListLit:
		vals := make([]Value, len(n.Elems))
		for i, e := range n.Elems {
			v, err := ev.eval(e, ctx, depth+1)
			if err != nil {
				return Value{}, err
			}
			vals[i] = v
		}
		return List(vals), nil
	case *ast.Paren:
		return ev.eval(n.X, ctx, depth+1)
	case *ast.Unary:
		return ev.evalUnary(n, ctx, depth)
	case *ast.Binary:
		return ev.evalBinary(n, ctx, depth)
	case *ast.Member:
		return ev.evalMember(n, ctx, depth)
	case *ast.Call:
		return ev.evalCall(n, ctx, depth)
	default:
		return Value{}, fmt.Errorf("eval: unsupported expression node %T", expr)
	}
}

func (ev *Evaluator) evalBasicLit(n *ast.BasicLit) (Value, error) {
	switch n.Kind {
	case lexer.String:
		return String(n.Text), nil
	case lexer.Number:
		if strings.Contains(n.Text, ".") {
			var f float64
			if _, err := fmt.Sscanf(n.Text, "%g", &f); err != nil {
				return Value{}, fmt.Errorf("eval: invalid number literal %q", n.Text)
			}
			return Float(f), nil
		}
		var i int64
		if _, err := fmt.Sscanf(n.Text, "%d", &i); err != nil {
			return Value{}, fmt.Errorf("eval: invalid number literal %q", n.Text)
		}
		return Int(i), nil
	case lexer.Ident:
		switch n.Text {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null(), nil
		}
	}
	return Value{}, fmt.Errorf("eval: unsupported literal %q", n.Text)
}

// evalPathLit resolves $(expr) interpolations inside a path literal, then
// returns the resolved string as a Path value (§4.6, §4.9: "Path arguments
// may contain $(expr) interpolations, resolved before lookup").
func (ev *Evaluator) evalPathLit(n *ast.PathLit, ctx *Context, depth int) (Value, error) {
	resolved, err := ev.resolveInterpolations(n.Pattern, ctx, depth)
	if err != nil {
		return Value{}, err
	}
	return Path(resolved), nil
}

func (ev *Evaluator) resolveInterpolations(pattern string, ctx *Context, depth int) (string, error) {
	var out strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '$' && i+1 < len(runes) && runes[i+1] == '(' {
			depthParen := 1
			j := i + 2
			for j < len(runes) && depthParen > 0 {
				if runes[j] == '(' {
					depthParen++
				} else if runes[j] == ')' {
					depthParen--
					if depthParen == 0 {
						break
					}
				}
				j++
			}
			if depthParen != 0 {
				return "", fmt.Errorf("eval: unbalanced $(...) interpolation in path %q", pattern)
			}
			inner := string(runes[i+2 : j])
			toks, err := lexer.New(inner).Tokenize()
			if err != nil {
				return "", fmt.Errorf("eval: invalid interpolation %q: %w", inner, err)
			}
			innerExpr, err := parser.ParseExpr(toks)
			if err != nil {
				return "", fmt.Errorf("eval: invalid interpolation %q: %w", inner, err)
			}
			v, err := ev.eval(innerExpr, ctx, depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(v.String())
			i = j
			continue
		}
		out.WriteRune(runes[i])
	}
	return out.String(), nil
}

func (ev *Evaluator) evalUnary(n *ast.Unary, ctx *Context, depth int) (Value, error) {
	x, err := ev.eval(n.X, ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case lexer.Bang:
		return Bool(!x.Truthy()), nil
	case lexer.Minus:
		num, isInt, ok := x.AsNumber()
		if !ok {
			return Value{}, fmt.Errorf("eval: unary - requires a number at %s", n.Pos)
		}
		if isInt {
			return Int(-int64(num)), nil
		}
		return Float(-num), nil
	}
	return Value{}, fmt.Errorf("eval: unsupported unary operator at %s", n.Pos)
}

// evalBinary implements §4.9's short-circuit &&/|| and the remaining
// binary operators.
func (ev *Evaluator) evalBinary(n *ast.Binary, ctx *Context, depth int) (Value, error) {
	switch n.OpLit {
	case "&&":
		x, err := ev.eval(n.X, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		if !x.Truthy() {
			return Bool(false), nil
		}
		y, err := ev.eval(n.Y, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		return Bool(y.Truthy()), nil
	case "||":
		x, err := ev.eval(n.X, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		if x.Truthy() {
			return Bool(true), nil
		}
		y, err := ev.eval(n.Y, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		return Bool(y.Truthy()), nil
	}

	x, err := ev.eval(n.X, ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	y, err := ev.eval(n.Y, ctx, depth+1)
	if err != nil {
		return Value{}, err
	}

	switch n.OpLit {
	case "==":
		return Bool(Equal(x, y)), nil
	case "!=":
		return Bool(!Equal(x, y)), nil
	case "in":
		list, ok := y.AsList()
		if !ok {
			return Value{}, fmt.Errorf("eval: right-hand side of 'in' must be a list at %s", n.Pos)
		}
		for _, e := range list {
			if Equal(x, e) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case "is":
		return evalIs(x, n.Y, n.Pos)
	case "+":
		if xs, ok := x.AsString(); ok {
			if ys, ok := y.AsString(); ok {
				return String(xs + ys), nil
			}
		}
		return numericBinary(x, y, n.Pos, func(a, b float64) (float64, error) { return a + b, nil })
	case "-":
		return numericBinary(x, y, n.Pos, func(a, b float64) (float64, error) { return a - b, nil })
	case "*":
		return numericBinary(x, y, n.Pos, func(a, b float64) (float64, error) { return a * b, nil })
	case "/":
		return numericBinary(x, y, n.Pos, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("eval: division by zero at %s", n.Pos)
			}
			return a / b, nil
		})
	case "%":
		return numericBinary(x, y, n.Pos, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("eval: modulo by zero at %s", n.Pos)
			}
			bi, ai := int64(b), int64(a)
			return float64(ai % bi), nil
		})
	case "<", ">", "<=", ">=":
		return compareNumeric(x, y, n.OpLit, n.Pos)
	}
	return Value{}, fmt.Errorf("eval: unsupported binary operator %q at %s", n.OpLit, n.Pos)
}

// evalIs implements the "is" type test: the right-hand side is a bare type
// name (request.resource.data.x is string).
func evalIs(x Value, rhs ast.Expr, pos lexer.Position) (Value, error) {
	ident, ok := rhs.(*ast.Ident)
	if !ok {
		return Value{}, fmt.Errorf("eval: right-hand side of 'is' must be a type name at %s", pos)
	}
	switch ident.Name {
	case "bool":
		return Bool(x.Kind() == KindBool), nil
	case "int", "float", "number":
		return Bool(x.Kind() == KindNumber), nil
	case "string":
		return Bool(x.Kind() == KindString), nil
	case "list":
		return Bool(x.Kind() == KindList), nil
	case "map":
		return Bool(x.Kind() == KindMap), nil
	case "timestamp":
		return Bool(x.Kind() == KindTimestamp), nil
	case "path":
		return Bool(x.Kind() == KindPath), nil
	default:
		return Value{}, fmt.Errorf("eval: unknown type name %q at %s", ident.Name, ident.Pos)
	}
}

func numericBinary(x, y Value, pos lexer.Position, combine func(a, b float64) (float64, error)) (Value, error) {
	xn, xInt, xOK := x.AsNumber()
	yn, yInt, yOK := y.AsNumber()
	if !xOK || !yOK {
		return Value{}, fmt.Errorf("eval: arithmetic requires numeric operands at %s", pos)
	}
	result, err := combine(xn, yn)
	if err != nil {
		return Value{}, err
	}
	if xInt && yInt {
		return Int(int64(result)), nil
	}
	return Float(result), nil
}

func compareNumeric(x, y Value, op string, pos lexer.Position) (Value, error) {
	xn, _, xOK := x.AsNumber()
	yn, _, yOK := y.AsNumber()
	if !xOK || !yOK {
		return Value{}, fmt.Errorf("eval: comparison requires numeric operands at %s", pos)
	}
	switch op {
	case "<":
		return Bool(xn < yn), nil
	case ">":
		return Bool(xn > yn), nil
	case "<=":
		return Bool(xn <= yn), nil
	case ">=":
		return Bool(xn >= yn), nil
	}
	return Value{}, fmt.Errorf("eval: unsupported comparison %q at %s", op, pos)
}

// evalMember implements §4.9's null-safe dot/computed member access.
func (ev *Evaluator) evalMember(n *ast.Member, ctx *Context, depth int) (Value, error) {
	x, err := ev.eval(n.X, ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	if x.Kind() == KindNull {
		return Null(), nil
	}
	if n.Computed != nil {
		idx, err := ev.eval(n.Computed, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		if list, ok := x.AsList(); ok {
			num, isInt, ok := idx.AsNumber()
			if !ok || !isInt {
				return Value{}, fmt.Errorf("eval: list index must be an integer at %s", n.Pos)
			}
			i := int(num)
			if i < 0 || i >= len(list) {
				return Null(), nil
			}
			return list[i], nil
		}
		if m, ok := x.AsMap(); ok {
			key, ok := idx.AsString()
			if !ok {
				return Value{}, fmt.Errorf("eval: map index must be a string at %s", n.Pos)
			}
			v, ok := m[key]
			if !ok {
				return Null(), nil
			}
			return v, nil
		}
		return Null(), nil
	}
	return x.Get(n.Name), nil
}

// evalCall dispatches built-in functions (get/exists), methods by receiver
// type (§4.9), and user-declared functions.
func (ev *Evaluator) evalCall(n *ast.Call, ctx *Context, depth int) (Value, error) {
	if ident, ok := n.Callee.(*ast.Ident); ok {
		switch ident.Name {
		case "get":
			return ev.callGet(n, ctx, depth)
		case "exists":
			return ev.callExists(n, ctx, depth)
		}
		if fn, ok := ctx.Functions[ident.Name]; ok {
			return ev.callUserFunction(fn, n, ctx, depth)
		}
		return Value{}, fmt.Errorf("eval: unknown function %q at %s", ident.Name, n.Pos)
	}

	member, ok := n.Callee.(*ast.Member)
	if !ok {
		return Value{}, fmt.Errorf("eval: unsupported call target at %s", n.Pos)
	}
	recv, err := ev.eval(member.X, ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a, ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return dispatchMethod(recv, member.Name, args, n.Pos)
}

func dispatchMethod(recv Value, method string, args []Value, pos lexer.Position) (Value, error) {
	switch recv.Kind() {
	case KindString:
		s, _ := recv.AsString()
		switch method {
		case "matches":
			if len(args) != 1 {
				return Value{}, fmt.Errorf("eval: matches() takes one argument at %s", pos)
			}
			pattern, ok := args[0].AsString()
			if !ok {
				return Value{}, fmt.Errorf("eval: matches() argument must be a string at %s", pos)
			}
			ok2, err := regexguard.New(0).Match(pattern, s)
			if err != nil {
				return Value{}, fmt.Errorf("eval: %v at %s", err, pos)
			}
			return Bool(ok2), nil
		case "size":
			return sizeOf(recv)
		}
	case KindList:
		list, _ := recv.AsList()
		switch method {
		case "size":
			return sizeOf(recv)
		case "hasAny":
			if len(args) != 1 {
				return Value{}, fmt.Errorf("eval: hasAny() takes one argument at %s", pos)
			}
			other, ok := args[0].AsList()
			if !ok {
				return Value{}, fmt.Errorf("eval: hasAny() argument must be a list at %s", pos)
			}
			for _, a := range other {
				for _, e := range list {
					if Equal(a, e) {
						return Bool(true), nil
					}
				}
			}
			return Bool(false), nil
		case "hasAll":
			if len(args) != 1 {
				return Value{}, fmt.Errorf("eval: hasAll() takes one argument at %s", pos)
			}
			other, ok := args[0].AsList()
			if !ok {
				return Value{}, fmt.Errorf("eval: hasAll() argument must be a list at %s", pos)
			}
			for _, a := range other {
				found := false
				for _, e := range list {
					if Equal(a, e) {
						found = true
						break
					}
				}
				if !found {
					return Bool(false), nil
				}
			}
			return Bool(true), nil
		}
	}
	return Value{}, fmt.Errorf("eval: unsupported method %q on %s at %s", method, recv.Kind(), pos)
}

func (ev *Evaluator) callGet(n *ast.Call, ctx *Context, depth int) (Value, error) {
	if ctx.Adapter == nil || len(n.Args) != 1 {
		return Value{}, fmt.Errorf("eval: get() requires exactly one path argument at %s", n.Pos)
	}
	pathVal, err := ev.eval(n.Args[0], ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	path, ok := pathVal.AsPath()
	if !ok {
		if s, ok := pathVal.AsString(); ok {
			path = s
		} else {
			return Value{}, fmt.Errorf("eval: get() argument must be a path at %s", n.Pos)
		}
	}
	return ctx.Adapter.Get(path)
}

func (ev *Evaluator) callExists(n *ast.Call, ctx *Context, depth int) (Value, error) {
	if ctx.Adapter == nil || len(n.Args) != 1 {
		return Value{}, fmt.Errorf("eval: exists() requires exactly one path argument at %s", n.Pos)
	}
	pathVal, err := ev.eval(n.Args[0], ctx, depth+1)
	if err != nil {
		return Value{}, err
	}
	path, ok := pathVal.AsPath()
	if !ok {
		if s, ok := pathVal.AsString(); ok {
			path = s
		} else {
			return Value{}, fmt.Errorf("eval: exists() argument must be a path at %s", n.Pos)
		}
	}
	ok2, err := ctx.Adapter.Exists(path)
	if err != nil {
		return Value{}, err
	}
	return Bool(ok2), nil
}

func (ev *Evaluator) callUserFunction(fn *ast.FunctionDecl, n *ast.Call, ctx *Context, depth int) (Value, error) {
	if len(n.Args) != len(fn.Params) {
		return Value{}, fmt.Errorf("eval: function %q expects %d arguments, got %d at %s", fn.Name, len(fn.Params), len(n.Args), n.Pos)
	}
	params := make(map[string]Value, len(ctx.Params)+len(fn.Params))
	for k, v := range ctx.Params {
		params[k] = v
	}
	for i, p := range fn.Params {
		v, err := ev.eval(n.Args[i], ctx, depth+1)
		if err != nil {
			return Value{}, err
		}
		params[p] = v
	}
	callCtx := &Context{
		Request: ctx.Request, Resource: ctx.Resource, Database: ctx.Database,
		Params: params, Adapter: ctx.Adapter, Functions: ctx.Functions,
	}
	return ev.eval(fn.Body, callCtx, depth+1)
}
