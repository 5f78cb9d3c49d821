// Package backlog stores the per-product epic backlog.
//
// Each product has at most one backlog. Epics are kept as ordered rows keyed by an opaque,
// client-assigned epic id; saving a backlog replaces the whole list in one transaction.
// Roadmap enrichment reads the epics' initiative and theme metadata through EpicsByID.
package backlog
