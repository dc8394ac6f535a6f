// Package flows contains pure-function orchestrators for the client's session operations.
//
// Each flow function (RunGrant, RunRefresh, RunLogout) accepts a typed dependency struct
// and returns a result without side effects beyond those dependencies. The root Client
// builds the dependency structs once and keeps its own methods thin.
//
// # Architecture boundaries
//
// Flows coordinate the session store, the backend exchange and the redirect callback.
// They do NOT own any of these resources; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goDesk (to avoid import cycles).
//   - Perform HTTP directly. All I/O is mediated through dependency functions.
package flows
