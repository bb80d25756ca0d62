// Package scheduling is the read-side facade over leads, jobs and settings.
//
// For a lead it fetches every record source, reconciles them into one
// timeline and annotates each item with the operator actions the rulebook
// allows. For the calendar it computes per-window capacity and month load.
//
// The service depends only on the interfaces in repository.go. It holds no
// state between calls; every read recomputes from the current records.
package scheduling
