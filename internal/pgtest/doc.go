// Package pgtest starts throwaway PostgreSQL containers for integration tests.
// Its helpers are only compiled with the integration build tag.
package pgtest
