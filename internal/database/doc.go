// Package database manages the Postgres connection pool shared by the
// trade writer and the tickstore.
package database
