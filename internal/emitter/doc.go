// Package emitter lowers verified IR into a story graph.
//
// Emission walks goals in registration order. For each goal it emits the
// goal entry and then every rule: the initial condition node, one join or
// comparison node per later condition, and a rule node carrying the
// variables. Goal INIT/EXIT calls and rule THEN calls are emitted after all
// rules, followed by header functions nothing referenced and the parent
// goal links.
//
// Function nodes are created on first reference and memoized by name and
// arity. Events, calls and queries only get a node when referenced from a
// condition; databases, PROCs and user queries always get one.
//
// The emitter assumes its input compiled without errors. Inconsistencies
// it still finds are returned as errors.
package emitter
