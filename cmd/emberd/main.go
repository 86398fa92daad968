// Command emberd is a thin demo binary wiring config, a routing table, and
// the reactor-per-core server together, generalized from the teacher's
// examples/basic/main.go.
package main

import (
	"encoding/json"
	"log"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/httpresp"
	"github.com/emberhttp/ember/router"
	"github.com/emberhttp/ember/server"
)

func main() {
	cfg := config.New()

	table := router.NewTable()
	mustAdd(table, "GET", "/", func(ctx *router.Context) {
		ctx.Response.Status = 200
		ctx.Response.Headers.Set("Content-Type", "text/plain")
		ctx.Response.Body = []byte("Welcome to Ember!")
	})
	mustAdd(table, "GET", "/api/status", func(ctx *router.Context) {
		writeJSON(ctx, 200, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
			"server":  "ember",
		})
	})
	mustAdd(table, "GET", "/api/users/{id}", func(ctx *router.Context) {
		id, _ := ctx.Param("id")
		writeJSON(ctx, 200, map[string]string{"user_id": id})
	})
	mustAdd(table, "GET", "/api/search", func(ctx *router.Context) {
		query, _ := ctx.Query("q")
		writeJSON(ctx, 200, map[string]string{"query": query})
	})
	mustAdd(table, "GET", "/debug/vars", func(ctx *router.Context) {
		writeJSON(ctx, 200, server.Snapshot())
	})
	table.Build()

	requestID := router.Middleware{
		Before: func(ctx *router.Context) {
			ctx.Response.Headers.Set("X-Request-Id", httpresp.NewInstanceID())
		},
	}
	chain := router.NewChain().Use(requestID)

	log.Printf("ember: starting on port %d [%s]", cfg.Port, cfg.Env)
	if err := server.New(cfg, table, chain).Run(); err != nil {
		log.Fatalf("ember: %v", err)
	}
}

func mustAdd(table *router.Table, method, pattern string, handler router.HandlerFunc) {
	route, err := router.NewRoute(method, pattern, handler)
	if err != nil {
		log.Fatalf("ember: %v", err)
	}
	table.Add(route)
}

func writeJSON(ctx *router.Context, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Response.Status = 500
		return
	}
	ctx.Response.Status = status
	ctx.Response.Headers.Set("Content-Type", "application/json")
	ctx.Response.Body = body
}
