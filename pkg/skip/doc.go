// Package skip delivers an operator's single-key abort signal for
// long-running scrape phases, reading the controlling terminal in raw
// mode so no Enter press is needed.
package skip
