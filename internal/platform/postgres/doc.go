// Package postgres probes the Postgres catalog of a provisioned machine to
// confirm that scheduled databases were built.
package postgres
