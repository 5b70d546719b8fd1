// Package github implements the providers.Provider interface for GitHub
// OAuth Apps, including the /user/emails fallback for users whose email
// is not public on their profile.
package github
