// Package internal holds helpers that are private to goDesk.
//
// # Sub-packages
//
//   - deskfake: in-process helpdesk backend used by tests, the load tester and examples
//   - flows: pure-function orchestrators for grant, refresh and logout
//   - logctx: request-scoped logger propagation
//   - notify: buffered async dispatcher for notifications
//   - redact: masking of identifiers before they reach logs
//
// # What this package must NOT do
//
//   - Export types that appear in the public goDesk API.
//   - Be imported by any package outside the goDesk module.
package internal
