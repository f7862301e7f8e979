// Package dispatch resolves incoming URLs to registered command templates
// and runs them.
//
// A URL scheme://host/path?query#fragment is split into the scheme, the
// host and a selector (path plus the query and fragment when present). The
// scheme and host pick a command template from the registration store; every
// occurrence of the placeholder in the template's arguments is replaced with
// the selector, and the resulting command is spawned and waited on.
//
// Error handling:
//   - Malformed URL or missing host → ParseError
//   - Unknown scheme or host → LookupError
//   - Empty template, spawn failure, non-zero exit → DispatchError
//
// There is no retry, timeout or fallback handler. A dispatch is one spawn
// and one wait.
package dispatch
