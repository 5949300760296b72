package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/rules/ast"
	"github.com/warp/docuhearth/rules/lexer"
	"github.com/warp/docuhearth/rules/parser"
)

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	toks, err := lexer.New(src).Tokenize()
	require.NoError(t, err)
	f, err := parser.Parse(toks)
	require.NoError(t, err)
	return f
}

func TestParse_MinimalRuleset(t *testing.T) {
	f := mustParse(t, `
rules_version = '2';
service cloud.firestore {
  match /databases/{database}/documents {
    match /users/{uid} {
      allow read, write: if request.auth.uid == uid;
    }
  }
}`)
	require.Equal(t, "2", f.RulesVersion)
	require.Len(t, f.Services, 1)
	require.Equal(t, "cloud.firestore", f.Services[0].Name)
	require.Len(t, f.Services[0].Matches, 1)

	docsBlock := f.Services[0].Matches[0]
	require.Equal(t, "/databases/{database}/documents", docsBlock.Pattern)
	require.Len(t, docsBlock.Matches, 1)

	usersBlock := docsBlock.Matches[0]
	require.Len(t, usersBlock.Allows, 1)
	require.Equal(t, []string{"read", "write"}, usersBlock.Allows[0].Ops)
	require.NotNil(t, usersBlock.Allows[0].Cond)
}

func TestParse_UnsupportedServiceIsError(t *testing.T) {
	toks, err := lexer.New(`service not.a.real.service { }`).Tokenize()
	require.NoError(t, err)
	_, err = parser.Parse(toks)
	require.Error(t, err)
}

func TestParse_FunctionDecl(t *testing.T) {
	f := mustParse(t, `
service cloud.firestore {
  match /x/{id} {
    function isOwner(uid) {
      return request.auth.uid == uid;
    }
    allow read: if isOwner(resource.data.owner);
  }
}`)
	fn := f.Services[0].Matches[0].Functions[0]
	require.Equal(t, "isOwner", fn.Name)
	require.Equal(t, []string{"uid"}, fn.Params)
}

func TestParse_ExpressionPrecedence(t *testing.T) {
	f := mustParse(t, `
service cloud.firestore {
  match /x/{id} {
    allow read: if 1 + 2 * 3 == 7 && true || false;
  }
}`)
	cond := f.Services[0].Matches[0].Allows[0].Cond
	or, ok := cond.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "||", or.OpLit)
}

func TestParse_MethodCallAndMemberAccess(t *testing.T) {
	f := mustParse(t, `
service cloud.firestore {
  match /x/{id} {
    allow read: if resource.data.name.matches('^a.*') && request.resource.data.tags.hasAny(['x']);
  }
}`)
	require.NotNil(t, f.Services[0].Matches[0].Allows[0].Cond)
}

func TestParseRecover_AccumulatesErrorsAndKeepsGoing(t *testing.T) {
	toks, err := lexer.New(`
service cloud.firestore {
  match /x/{id} {
    allow bogus_op;
    allow read;
  }
}`).Tokenize()
	require.NoError(t, err)

	f, errs := parser.ParseRecover(toks)
	require.NotEmpty(t, errs)
	require.NotNil(t, f)
	require.Len(t, f.Services[0].Matches[0].Allows, 2)
}
