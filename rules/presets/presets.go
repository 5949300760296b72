/*
Package presets bundles canned rulesets for quick starts (§9 D.4), mirroring
the teacher's hard-coded default PTO/rewards policies in timeoff/policies.go
and rewards/policies.go: a small named table of ready-made configurations
callers can load without authoring their own source file.
*/
package presets

import (
	"fmt"

	"github.com/warp/docuhearth/rules/ast"
	"github.com/warp/docuhearth/rules/lexer"
	"github.com/warp/docuhearth/rules/parser"
)

// Name identifies one bundled preset.
type Name string

const (
	AllowAll   Name = "allow-all"
	DenyAll    Name = "deny-all"
	OwnerOnly  Name = "owner-only"
)

// source holds the raw .rules text per (service, preset) pair.
var source = map[string]string{
	"cloud.firestore/allow-all": `
rules_version = "1";
service cloud.firestore {
  match /databases/{database}/documents {
    match /{document=**} {
      allow read, write: if true;
    }
  }
}
`,
	"cloud.firestore/deny-all": `
rules_version = "1";
service cloud.firestore {
  match /databases/{database}/documents {
    match /{document=**} {
      allow read, write: if false;
    }
  }
}
`,
	"cloud.firestore/owner-only": `
rules_version = "1";
service cloud.firestore {
  match /databases/{database}/documents {
    match /users/{uid} {
      allow read, write: if request.auth != null && request.auth.uid == uid;
    }
    match /{document=**} {
      allow read, write: if false;
    }
  }
}
`,
	"firebase.storage/allow-all": `
rules_version = "1";
service firebase.storage {
  match /b/{bucket}/o {
    match /{allPaths=**} {
      allow read, write: if true;
    }
  }
}
`,
	"firebase.storage/deny-all": `
rules_version = "1";
service firebase.storage {
  match /b/{bucket}/o {
    match /{allPaths=**} {
      allow read, write: if false;
    }
  }
}
`,
	"firebase.storage/owner-only": `
rules_version = "1";
service firebase.storage {
  match /b/{bucket}/o {
    match /users/{uid}/{allPaths=**} {
      allow read, write: if request.auth != null && request.auth.uid == uid;
    }
    match /{allPaths=**} {
      allow read, write: if false;
    }
  }
}
`,
}

// Service names accepted by Load (mirrors rules/context.Service.String()).
const (
	ServiceFirestore = "cloud.firestore"
	ServiceStorage   = "firebase.storage"
)

// Load parses the named preset for the given service into a ready-to-use
// *ast.File.
func Load(service string, name Name) (*ast.File, error) {
	src, ok := source[service+"/"+string(name)]
	if !ok {
		return nil, fmt.Errorf("presets: no preset %q for service %q", name, service)
	}
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, fmt.Errorf("presets: lexer error in bundled preset %q/%q: %w", service, name, err)
	}
	file, err := parser.Parse(toks)
	if err != nil {
		return nil, fmt.Errorf("presets: parse error in bundled preset %q/%q: %w", service, name, err)
	}
	return file, nil
}

// Names lists every bundled preset name, in a stable order.
func Names() []Name {
	return []Name{AllowAll, DenyAll, OwnerOnly}
}
