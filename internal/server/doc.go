// Package server provides HTTP routing, middleware, the JSON API and the terminal OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers method patterns on
// an [http.ServeMux]. [Middleware] wraps handlers in reverse order (last added executes first). [Logging] and
// [Instrument] log and count every request by its route pattern.
//
// # API
//
// [App] serves one local user. The bowl_session cookie names a tab; each tab owns a session hub, a
// [dnd.Controller] and an onboarding gate, while the durable store and the signed-in identity are shared.
//
//	GET  /api/state?guest=true      board, tier, capacity and dialog state
//	POST /api/tasks                 {"text": "..."}
//	POST /api/drop                  {"active_id": "...", "over": {"kind": "slot|task", "id": "..."}}
//	POST /api/swap                  {"task_id": "..."}
//	POST /api/complete
//	POST /api/onboarding/confirm    "Don't Show Again"
//	POST /api/onboarding/close
//	GET  /api/reflection
//	POST /api/auth/{signin,signup,signout}
//	GET  /auth/{provider}[/callback]
//	POST /api/upgrade/{order,capture}
//	GET  /metrics, /health
//
// Refused or failed user actions answer with {"notice": {"title": ..., "description": ...}}.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves a single authorization code callback for `bowl account signin --provider`. It checks the
// state parameter, exchanges the code for the account email and sends the result through a channel.
package server
