// Package report renders signals for people and persists them for tools.
//
// Display produces the console report. Save writes the full ordered signal
// sequence as one JSON document, atomically, replacing any previous file.
package report
