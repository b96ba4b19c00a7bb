// Package gateway wires the chatbot session registry to its network surfaces.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────┐
//	│                      Gateway                      │
//	│                                                   │
//	│  gRPC :50052                 HTTP :8080           │
//	│  ├─ chatbot.v1.ChatbotService  ├─ /health         │
//	│  ├─ grpc.health.v1.Health      ├─ /health/ready   │
//	│  └─ reflection (optional)      ├─ /api/sessions   │
//	│                                └─ /metrics        │
//	│                                                   │
//	│  agent.Router ──► session.Registry ──► store      │
//	│   (backends +      (sweep loop)        (ledger)   │
//	│    cooldowns)                                     │
//	└───────────────────────────────────────────────────┘
//
// # Lifecycle
//
// New builds every component without binding any port. Run binds the
// listeners, starts the sweep loop, marks the health service SERVING and
// blocks until its context is canceled or a server fails. Shutdown then
// drains gRPC, stops HTTP, drops all sessions and closes the ledger.
//
// # Listeners
//
// By default the servers listen on server.grpc_addr and server.http_addr.
// An empty http_addr disables the HTTP server. With tailscale.enabled the
// gateway joins the tailnet through tsnet instead and listens on :50052
// (gRPC) and :80 (HTTP) of the node named by tailscale.hostname.
//
// # Backends
//
// The echo backend is always registered. The openai and anthropic backends
// are registered when their api_key is set. Every backend gets its own ask
// cooldown of cooldown.ask_interval, shared by all sessions that use it.
//
// # HTTP API
//
//	GET /health                    liveness, always 200
//	GET /health/ready              200 while the sweep loop runs
//	GET /api/sessions              live session snapshots
//	GET /api/sessions/{id}         one snapshot
//	GET /api/sessions/{id}/events  ledger entries, newest first
//	GET /metrics                   Prometheus exposition
//
// The /api routes require a bearer token when auth.jwt_secret is set.
package gateway
