// Package filter implements the filter_by grammar: a tokenizer that
// respects backtick-quoting and the parens used by both boolean grouping
// and value/reference sub-expressions, a shunting-yard pass to postfix,
// and a boolean tree of leaf predicates evaluated against a collection's
// indexes through the Evaluator interface a caller supplies.
package filter
