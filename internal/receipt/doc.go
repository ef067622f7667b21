// Package receipt holds the receipt request, its validation and the pure
// formatting helpers that turn raw form values into printable strings.
//
// Keep this package free of transport (HTTP) and rendering (PDF) concerns.
package receipt
