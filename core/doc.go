// Package core reconciles the columns of an uploaded tabular file against a
// catalog of canonical fields. It suggests a mapping from raw headers, derives
// which fields are mandatory from the data groups the mapping touches, reports
// every violation at once and confirms a session at most once before handing
// rows to an external processor.
//
// Storage and transport adapters depend on this package; core never imports
// them.
package core
