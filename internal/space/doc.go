// Package space builds the combinatorial reaction space of a set of component
// tables.
//
// A build takes the Cartesian product of the components' records and emits one
// Entry per combination. Each entry carries the separator-joined identifiers of
// the chosen records and the concatenation of their feature vectors. Column
// names are prefixed with the 1-based component index (comp<i>_<name>) so two
// components may reuse a feature name.
//
// Row order is fixed: the first component is the outermost loop and the last
// component varies fastest (odometer order). Entry k of the product is found
// by decoding k as a mixed-radix number whose least significant digit belongs
// to the last component, so contiguous index ranges can be filled in parallel
// without changing the order.
//
// Feature values are copied, never transformed. The whole product is held in
// memory; callers bound component sizes or set WithMaxEntries.
package space
