package engine

import (
	"time"

	"github.com/warp/docuhearth/rules/ast"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/rules/eval"
	"github.com/warp/docuhearth/rules/match"
	"github.com/warp/docuhearth/store"
)

// compiledRule is one match block with at least one allow statement,
// flattened to its full document-relative pattern (§4.8).
type compiledRule struct {
	pattern match.Pattern
	allows  []*ast.AllowStmt
}

// ruleset is a compiled, ready-to-evaluate service ruleset.
type ruleset struct {
	service   rctx.Service
	rules     []compiledRule
	functions map[string]*ast.FunctionDecl
}

// compile flattens an *ast.File's service declarations into a ruleset,
// treating each service's first top-level match block as the transparent
// "/databases/{database}/documents" (or "/b/{bucket}/o") wrapper real rule
// files always open with — only its children's patterns are matched
// against the document-relative path.
func compile(file *ast.File, service rctx.Service) *ruleset {
	rs := &ruleset{service: service, functions: make(map[string]*ast.FunctionDecl)}
	wantName := service.String()
	for _, svc := range file.Services {
		if svc.Name != wantName {
			continue
		}
		for _, top := range svc.Matches {
			collectFunctions(top, rs.functions)
			for _, child := range top.Matches {
				rs.addBlock(child, nil)
			}
		}
	}
	return rs
}

func collectFunctions(mb *ast.MatchBlock, into map[string]*ast.FunctionDecl) {
	for _, fn := range mb.Functions {
		into[fn.Name] = fn
	}
	for _, child := range mb.Matches {
		collectFunctions(child, into)
	}
}

func (rs *ruleset) addBlock(mb *ast.MatchBlock, prefix []match.Segment) {
	collectFunctions(mb, rs.functions)
	pat := match.Compile(mb.Pattern)
	full := append(append([]match.Segment(nil), prefix...), pat.Segments...)
	if len(mb.Allows) > 0 {
		rs.rules = append(rs.rules, compiledRule{pattern: match.Pattern{Segments: full}, allows: mb.Allows})
	}
	for _, child := range mb.Matches {
		rs.addBlock(child, full)
	}
}

// authorize evaluates ruleset rs against relPath (the document path with the
// "projects/P/databases/D/documents/" prefix stripped) for op, returning
// (true, "") if permitted and (false, reason) otherwise. A rule evaluation
// error is also a denial, with the error text as the reason (§7: "Rules
// evaluation errors... surface as denial with a diagnostic message").
func authorize(rs *ruleset, relPath string, op rctx.Operation, req rctx.Request, doc store.Document, exists bool, adapter eval.Adapter) (bool, string) {
	var best *compiledRule
	var bestLen int
	var bestResult match.Result
	for i := range rs.rules {
		r := &rs.rules[i]
		result := match.Match(r.pattern, relPath)
		if !result.Matched {
			continue
		}
		if len(r.pattern.Segments) >= bestLen {
			best = r
			bestLen = len(r.pattern.Segments)
			bestResult = result
		}
	}
	if best == nil {
		return false, "no match block covers this path"
	}

	params := make(map[string]eval.Value, len(bestResult.Wildcards))
	for k, v := range bestResult.Wildcards {
		params[k] = eval.String(v)
	}

	if rs.service == rctx.FirebaseStorage {
		adapter = nil // storage rules get no cross-object get()/exists()
	}

	evalCtx := &eval.Context{
		Request:   rctx.BuildRequest(req),
		Resource:  rctx.BuildResource(rs.service, relPath, doc, exists),
		Database:  "(default)",
		Params:    params,
		Adapter:   adapter,
		Functions: rs.functions,
	}

	interp := eval.New()
	for _, a := range best.allows {
		if !opMatches(a.Ops, op) {
			continue
		}
		if a.Cond == nil {
			return true, ""
		}
		v, err := interp.Eval(a.Cond, evalCtx)
		if err != nil {
			return false, err.Error()
		}
		if v.Truthy() {
			return true, ""
		}
	}
	return false, "no allow condition for this operation evaluated to true"
}

func opMatches(ops []string, op rctx.Operation) bool {
	for _, o := range ops {
		switch o {
		case "read":
			if op == rctx.OpGet || op == rctx.OpList {
				return true
			}
		case "write":
			if op == rctx.OpCreate || op == rctx.OpUpdate || op == rctx.OpDelete {
				return true
			}
		case string(op):
			return true
		}
	}
	return false
}

// now returns the current wall-clock time in UTC, used for transaction
// start and activity stamps, the rollback audit entry, and sweeps.
func now() time.Time { return time.Now().UTC() }
