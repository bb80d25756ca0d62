// Package timeline reconciles every record known about one lead into a single
// ordered timeline.
//
// Sources overlap: the legacy schedule snapshot on the lead, email jobs (with
// retries and cancellations for the same step), manual mails, conditional
// jobs, and skip markers. Reconcile picks exactly one representative per
// logical email and projects dates for configured steps that have no record
// yet. It is a pure function of its Input; the caller supplies "now".
package timeline
