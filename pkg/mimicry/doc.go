// Package mimicry simulates organic account activity between outreach
// cycles so the traffic pattern is not pure automation. All of its
// actions are best-effort and isolated from campaign state.
package mimicry
