// Package types defines the Backend capability interfaces, the Record model,
// search queries, backend configuration, and the standard backend errors for
// the happi device registry.
//
// Every storage technology (JSON file, SQLite, MongoDB, the read-only
// questionnaire service) implements Backend, so callers hold one interface
// and swap stores through Config alone.
package types
