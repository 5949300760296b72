/*
scenarios.go seeds a fresh Engine with a canned set of documents plus a
bundled ruleset, the same role LoadScenario played for demo HR data in the
teacher — generalized here from "load rows into a sqlite Store" to "commit
writes into an in-memory Engine", and from an HTTP-triggered reload to a
startup-time, flag-selected one-shot load.
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/engine"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/value"
)

// Scenario is one bundled demo dataset.
type Scenario struct {
	ID          string
	Name        string
	Description string
}

// Scenarios lists the seed datasets the -seed flag accepts.
var Scenarios = []Scenario{
	{ID: "blog", Name: "Blog", Description: "A few posts and comments owned by two users."},
	{ID: "notes", Name: "Personal notes", Description: "A single user's private notes collection."},
}

// LoadScenario commits the named scenario's documents into e under the
// given project, using an allow-all authoring request (scenarios are
// seeded before any ruleset restricts writes, matching how demo data is
// loaded ahead of the access-control layer being exercised).
func LoadScenario(e *engine.Engine, project, id string) error {
	switch id {
	case "blog":
		return loadBlogScenario(e, project)
	case "notes":
		return loadNotesScenario(e, project)
	default:
		return fmt.Errorf("api: unknown scenario %q", id)
	}
}

func docPath(project, collection, id string) string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents/%s/%s", project, collection, id)
}

func seedWrite(path string, fields map[string]value.Value) commit.Write {
	return commit.Write{Kind: commit.Update, Path: path, Fields: fields}
}

func loadBlogScenario(e *engine.Engine, project string) error {
	now := time.Now().UTC()
	writes := []commit.Write{
		seedWrite(docPath(project, "users", "alice"), map[string]value.Value{
			"name": value.String("Alice"),
		}),
		seedWrite(docPath(project, "users", "bob"), map[string]value.Value{
			"name": value.String("Bob"),
		}),
		seedWrite(docPath(project, "posts", "p1"), map[string]value.Value{
			"owner":     value.String("alice"),
			"title":     value.String("Hello, world"),
			"published": value.Bool(true),
			"createdAt": value.Timestamp(now),
		}),
		seedWrite(docPath(project, "posts", "p2"), map[string]value.Value{
			"owner":     value.String("bob"),
			"title":     value.String("Draft post"),
			"published": value.Bool(false),
			"createdAt": value.Timestamp(now),
		}),
	}
	_, _, err := e.Commit(writes, "", rctx.Request{Operation: rctx.OpCreate, Time: now})
	return err
}

func loadNotesScenario(e *engine.Engine, project string) error {
	now := time.Now().UTC()
	writes := []commit.Write{
		seedWrite(docPath(project, "notes", "n1"), map[string]value.Value{
			"owner": value.String("alice"),
			"body":  value.String("Buy milk"),
		}),
		seedWrite(docPath(project, "notes", "n2"), map[string]value.Value{
			"owner": value.String("alice"),
			"body":  value.String("Finish the report"),
		}),
	}
	_, _, err := e.Commit(writes, "", rctx.Request{Operation: rctx.OpCreate, Time: now})
	return err
}
