// Package xteps runs named, reported steps and cleans up after them.
//
// A step is a unit of work that is timed and reported to the configured
// listeners. Steps that belong together form a Chain. A chain owns a hook
// registry for rollback actions and a resource container for closeable
// context values. When a step fails, the chain's hooks run and its resources
// are closed before the failure is returned, and the failure is the exact
// error value the step returned:
//
//	chain := xteps.New()
//	browser := xteps.WithCloseableContext(chain, openBrowser())
//	err := browser.
//	    Step("open login page", func(b *Browser) error { return b.Open("/login") }).
//	    Hook(func() error { return deleteTestUser() }).
//	    Step("log in", func(b *Browser) error { return b.Login(user) }).
//	    Finish()
//
// Cleanup failures never replace the step failure. They are attached to it as
// secondary failures, see package failure.
//
// Process-wide settings (reporter listeners, hook orders, logging) come from
// Configure or ConfigureFromFile, see package config.
package xteps
