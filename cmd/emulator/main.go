/*
main.go is the emulator's entry point: parses flags, wires the Engine to
an optional audit log and a bundled or file-loaded ruleset, seeds demo
data, and serves the REST API with graceful shutdown.

Grounded on cmd/server/main.go's flag-parse -> wire -> serve -> graceful-
shutdown sequence, generalized from a fixed sqlite-backed PTO server to a
document-database emulator with a pluggable ruleset and audit sink.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/docuhearth/api"
	"github.com/warp/docuhearth/auditlog"
	"github.com/warp/docuhearth/engine"
	"github.com/warp/docuhearth/rules/ast"
	rctx "github.com/warp/docuhearth/rules/context"
	"github.com/warp/docuhearth/rules/lexer"
	"github.com/warp/docuhearth/rules/parser"
	"github.com/warp/docuhearth/rules/presets"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	project := flag.String("project", "demo-project", "project id used for seeded/demo document paths")
	rulesPath := flag.String("rules", "", "path to a .rules file; empty uses the allow-all preset")
	seed := flag.String("seed", "", "name of a bundled demo scenario to load at startup (blog, notes)")
	auditDB := flag.String("audit-db", ":memory:", "sqlite DSN for the operations audit log; \"\" disables auditing")
	flag.Parse()

	rulesFile, err := loadRules(*rulesPath)
	if err != nil {
		log.Fatalf("failed to load rules: %v", err)
	}

	e := engine.New(*project, rulesFile, rctx.CloudFirestore)

	if *seed != "" {
		allowAll, err := presets.Load(presets.ServiceFirestore, presets.AllowAll)
		if err != nil {
			log.Fatalf("failed to load seed preset: %v", err)
		}
		seeder := engine.New(*project, allowAll, rctx.CloudFirestore)
		if err := api.LoadScenario(seeder, *project, *seed); err != nil {
			log.Fatalf("failed to load scenario %q: %v", *seed, err)
		}
		e = seeder
		e.SetRules(rulesFile, rctx.CloudFirestore)
	}

	if *auditDB != "" {
		auditor, err := auditlog.Open(*auditDB)
		if err != nil {
			log.Fatalf("failed to open audit log: %v", err)
		}
		defer auditor.Close()
		e.SetAuditor(auditor)
	}

	handler := api.NewHandler(e)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go api.NewSweeper(e).Run(sweepCtx)

	go func() {
		log.Printf("emulator listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("stopped")
}

// loadRules parses path as a .rules file, or returns the allow-all preset
// if path is empty.
func loadRules(path string) (*ast.File, error) {
	if path == "" {
		return presets.Load(presets.ServiceFirestore, presets.AllowAll)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	toks, err := lexer.New(string(src)).Tokenize()
	if err != nil {
		return nil, fmt.Errorf("lexing %q: %w", path, err)
	}
	return parser.Parse(toks)
}
