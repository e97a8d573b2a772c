// Package scheduler implements the recurring event queue that drives
// statusfeed. It is a single-goroutine scheduler over a min-heap of events
// ordered by due time, then priority, then insertion order.
//
// Every event carries the delay it was entered with. Once fired it is
// re-armed for the moment it actually ran plus that delay, so a stalled
// action shifts its own cadence instead of triggering a burst of catch-up
// firings. Events entered with a zero delay are one-shot.
//
// The wait between firings is capped at 60 seconds so wall-clock steps and
// system suspend are noticed, and is cut short whenever the head of the
// queue changes.
package scheduler
