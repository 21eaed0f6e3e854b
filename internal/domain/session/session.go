// Package session holds the credential and session types for the Mektep
// Portal. A Session is derived from Credentials by a successful login and is
// revalidated rather than ever being explicitly cleared.
package session

// Credentials identify a user against the remote Mektep platform.
// Immutable once constructed.
type Credentials struct {
	// Username is the portal login name.
	Username string `json:"username"`

	// Password is the portal password. It is persisted in plaintext as part
	// of the session cache document so that a stale token can be refreshed
	// by re-login without prompting the user.
	Password string `json:"password"`

	// Server optionally selects a regional portal server.
	Server string `json:"server,omitempty"`
}

// Session is the authenticated state derived from Credentials.
type Session struct {
	Credentials

	// Token is the opaque bearer token. Empty means unauthenticated. It is
	// set only by a successful login and treated as stale (revalidated)
	// rather than cleared.
	Token string `json:"token"`

	// DisplayName is the human-readable name returned by the login endpoint.
	DisplayName string `json:"display_name"`
}

// Authenticated reports whether the session carries a token. The token may
// still be stale; Validate decides that.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
