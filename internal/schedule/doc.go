// Package schedule turns what a user typed into the schedule modal into an
// absolute instant.
//
// Validation happens in two stages. ParseTime applies a loose grammar
// ("9:11am", "08.23 PM", "23:03", "10pm") that only checks shape, and the
// modal rejects non-matching input synchronously. Resolver.Resolve then
// applies the range checks and the zone rules, reporting ErrInvalidInstant
// for inputs such as "99:99" that have the right shape but name no real time.
package schedule
