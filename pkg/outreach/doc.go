// Package outreach drives the per-user contact lifecycle: first-contact
// greets under daily, session and hourly budgets, and reactive
// invitations when a greeted user writes back. Message text is drawn
// from randomized template pools so no two contacts read identically.
package outreach
