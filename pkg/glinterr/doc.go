// Package glinterr implements the error taxonomy of the write/search
// pipeline: every failure that crosses a package boundary carries an HTTP
// status code and, where relevant, the offending field name.
package glinterr
