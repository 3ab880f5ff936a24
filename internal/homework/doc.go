// Package homework is the domain core of the notifier: the closed verdict
// set, the error taxonomy of a poll cycle, envelope validation of raw API
// payloads, and interpretation of individual records.
//
// Everything here is pure: no I/O, no side effects. Validation is split in
// two layers (Records checks only the envelope, ParseStatus checks one
// record) so a single malformed entry never invalidates a batch.
package homework
