// Package ast defines the syntax trees consumed by the story compiler: the
// story header (type aliases and builtin functions), goal files (init
// facts, rules, exit facts) and the game-object table.
//
// Trees are produced by an external front end and stored as documents.
// Decode accepts CUE (.cue), JSON (.json) and YAML (.yaml, .yml) and
// rejects malformed trees before they reach the compiler.
package ast
