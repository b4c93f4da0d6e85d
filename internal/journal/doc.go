// Package journal records button presses in SQLite.
//
// Every delivery attempt through a press publisher becomes one row in the
// press_journal table (see ./migrations), successful or not. The journal is
// a record for inspection; presses are never replayed from it.
package journal
