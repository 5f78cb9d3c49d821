// Package roadmap implements quarterly roadmaps.
//
// A roadmap is keyed by (product, year, quarter) and holds an ordered list of items, one per
// epic. An epic may be scheduled in at most one quarter per product:
//
//   - SaveRoadmap scans the product's other quarters for the incoming epic ids inside the save
//     transaction and rejects the save with a Conflict listing "Epic (Qn YYYY)" entries.
//   - roadmap_items carries a UNIQUE (product_id, epic_id) constraint, so two concurrent saves
//     that both pass the scan cannot both commit; the loser gets the same Conflict kind.
//
// Nothing is written when a save is rejected.
//
// # Enrichment
//
// Items returned to clients are enriched by an Enricher. When the quarter has a capacity plan
// and the product has effort rating configs, the star rating computed from the plan replaces
// the stored rating for every epic with a positive total effort. Items that lack initiative or
// theme metadata take it from the product's backlog epic with the same id.
package roadmap
