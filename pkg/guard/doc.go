// Package guard classifies failures from remote platform operations.
//
// Every remote call the engine makes goes through a Guard, which collapses
// the platform's heterogeneous failures into a closed set of outcomes:
// success, skipped (rate-limit wait or unclassified, try again later), and
// blocked (recipient privacy). The severe abuse-flood signal is handled
// inside the guard itself: persist state, cool down, retry. This boundary
// is what keeps one hostile target from halting the whole campaign.
package guard
