// Package layout computes code city arrangements.
//
// Three pieces cooperate:
//
//   - [MapDimensions] turns one record into a square footprint and a height,
//     normalized against its sibling [Batch].
//   - [Grid] places a flat set of records on a centered, largest-first grid.
//   - [Pack] groups child records under their owner into blocks and row-packs
//     the blocks into a balanced, centered arrangement.
//
// All functions are pure and deterministic: the same input yields the same
// [Result], and no input makes them fail. Footprints never overlap within a
// result because every grid pitch is at least the largest footprint a
// [Profile] can produce.
//
// Visual density is selected with a [Profile] value rather than a flag.
// [FullProfile] suits flat repository views; [CompactProfile] is used for
// directory buildings inside blocks.
package layout
