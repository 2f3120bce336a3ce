// Package query implements the search executor of spec.md §4.5: filter
// evaluation, multi-field ranked search with typo tolerance, faceting,
// grouping, sorting, and highlighting. It depends only on pkg/filter,
// pkg/geocell, pkg/index, pkg/schema, and pkg/glinterr — never on
// pkg/collection — so
// that pkg/collection can depend on pkg/query (its Manager.DoSearch is
// simply a call into Execute) without an import cycle. A Collection
// satisfies the Source interface by duck typing, the same pattern
// pkg/filter already uses for Evaluator/Resolver.
package query
