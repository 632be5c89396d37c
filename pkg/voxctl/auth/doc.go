// Package auth locates, validates, refreshes, and prioritizes Claude
// credentials across environment variables, inherited file descriptors,
// and the platform credential store, and manages the persistent device
// identity. It never prompts; callers own re-authentication when
// resolution reports no credential.
package auth
