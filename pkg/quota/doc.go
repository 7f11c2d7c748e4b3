// Package quota enforces the campaign's pacing and ceilings: the daily
// greet quota, the per-session cap, an hourly token bucket for DM sends,
// and every randomized inter-action delay. These are independent knobs;
// the controller only hands out durations and yes/no answers, callers do
// the waiting and the sending.
package quota
