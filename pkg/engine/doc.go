// Package engine orchestrates the campaign loop: discovery scrapes
// raced against the operator's skip key, bounded outreach sessions,
// mimicry passes, and long randomized pauses, with state flushed on
// every interrupt path.
package engine
