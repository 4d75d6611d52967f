// Package ir provides the intermediate representation of a compiled Osiris
// story: value types, function signatures, goals, rules, facts, conditions
// and statements.
//
// This package contains data definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - ValueType instances are owned by the compilation context and shared by
//     pointer; comparing two types by identity is the same as comparing IDs
//   - Condition and Value are sealed sum types (FuncCondition/BinaryCondition,
//     Constant/Variable); dispatch with a type switch
//   - Rule variables are addressed by index into Rule.Variables
package ir
