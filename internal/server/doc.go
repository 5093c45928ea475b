// Package server implements the HTTP/JSON API for sharebox. It wires the
// routes, middleware and handlers around a Store and provides the
// lifecycle helpers used by tests and the production binary.
package server
