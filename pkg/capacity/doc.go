// Package capacity implements team capacity planning for product quarters.
//
// # Teams
//
// Teams belong to a product and are soft-deleted. Team names are unique per product among
// active teams; the check runs in the application and is backed by a partial unique index.
//
// # Capacity plans
//
// A plan is keyed by (product, year, quarter) and holds one EpicEffort row per (epic, team).
// The first read of a quarter creates the plan and seeds it with the quarter's roadmap epics
// crossed with the product's active teams, all at zero effort. Saving a plan upserts the
// submitted efforts and leaves the others untouched.
//
// # Effort ratings
//
// EffortRatingConfig maps a summed effort to a 1-5 star rating through four inclusive upper
// bounds:
//
//	total <= Star1Max  -> 1
//	total <= Star2Max  -> 2
//	total <= Star3Max  -> 3
//	total <= Star4Max  -> 4
//	otherwise          -> 5
//
// Ratings computes the rating of every epic with a positive total in a plan, using the config
// whose unit type matches the plan's effort unit, or the first config when none matches.
package capacity
