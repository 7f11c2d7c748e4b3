// Package scraper discovers candidate users by expanding the discussion
// threads attached to a source channel's recent posts. Discovery is
// bounded per run, deduped per post, and persists its progress after
// every fully processed post so an interrupt never rediscovers work.
package scraper
