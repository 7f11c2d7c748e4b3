// Package state persists the campaign document: every known user with
// their lifecycle flags, the daily greet counter, and the per-channel
// dedup sets for the scraper.
//
// The document is a single JSON file rewritten wholesale on every
// mutation, via write-to-temp-then-rename so a crash never leaves a
// partial file behind. Mutation helpers targeting unknown user ids are
// deliberate no-ops.
package state
