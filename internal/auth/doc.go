// Package auth owns the OAuth token lifecycle for the label account.
//
// [Manager] hands out a valid access token to every caller, refreshing
// behind the scenes when the stored token is expired or about to expire.
// Concurrent callers share a single refresh request. [LoginFlow] performs
// the initial PKCE authorization, either by driving the provider's login
// form directly or by walking the user through their browser.
package auth
