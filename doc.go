// Package session owns the authenticated session lifecycle for an
// application: establishing identity through a pluggable identity
// provider, synchronizing a durable profile record, keeping a
// short-lived access credential silently renewed, persisting session
// state across requests through a cookie, and coordinating the
// redirect back to the page a user originally asked for.
//
// Session controller:
//   - Controller is the single source of truth for "who is the current
//     user". It subscribes once to the provider's change stream, and
//     provider events are the only writer of session status. Imperative
//     calls (SignIn, SignOut) delegate to the provider and let the
//     resulting event drive the state change.
//   - Profile records are created lazily on first login (idempotent
//     upsert) and their last-login timestamp is touched on every
//     subsequent one. A profile-store failure after the provider has
//     vouched for the identity is absorbed: the session still reaches
//     the authenticated status with whatever profile data is available.
//
// Credential refresher:
//   - Refresher keeps at most one pending renewal timer per session and
//     fires a safety margin before the credential expires. A failed
//     renewal is logged and dropped; the next provider event recovers
//     scheduling.
//
// Redirect coordinator:
//   - RedirectCoordinator captures the return-to destination presented
//     with the login surface, rejects anything that is not a same-origin
//     relative path, and navigates there exactly once after the first
//     authenticated transition.
//
// The package ships a bun-backed profile store, a local password-based
// identity provider, and go-router helpers for cookie-driven route
// guards so the lifecycle can run end to end without external services.
package session
