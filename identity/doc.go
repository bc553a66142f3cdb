// Package identity turns a session into "who is calling and what may they do".
//
// Authenticate reads the user id kept in the session, loads that user and
// the scopes granted to them, and returns one of exactly two shapes:
//
//   - Credentials{"authenticated", <scope codes in ascending order>...} and a
//     UserPrincipal, or
//   - Credentials{"unauthenticated"} and Anonymous.
//
// The reason a session failed to authenticate (unknown user, broken id,
// store error, inactive account) is logged but never returned, so callers
// cannot be turned into an oracle for account state.
//
// A session pointing to a user that cannot be loaded is cleared. A session
// pointing to an inactive user is left alone; reactivating the account
// restores the session without a new login.
package identity
