// Package httputil holds the JSON response helpers shared by the API
// handlers, so every endpoint returns the same envelope.
package httputil
