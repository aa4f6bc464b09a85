// Package server provides HTTP routing, middleware, and the local OAuth landing server.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs first, wrapping everything added after it.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns.
//
// # OAuth Landing Server
//
// The backend owns the OAuth exchange. The browser is sent to the backend's login endpoint,
// the provider redirects back to this server, and [CallbackHandler] forwards the raw
// query to the backend's completion endpoint. The returned bearer token and profile are
// handed to the session manager with Login.
//
// The handler uses the view router to recognise an OAuth return, so a hit on
// /auth/google or any URL carrying a code is treated the same way.
//
// It only processes one callback; later hits are rejected.
//
// [RunCallback] starts a temporary server on the configured address (127.0.0.1:3000 by default), waits for exactly one result
// or for the context to end, and shuts down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
