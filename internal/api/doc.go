// Package api exposes the scheduling service over HTTP: lead timelines,
// calendar capacity, rulebook checks and health probes.
package api
