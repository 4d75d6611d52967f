// Package story holds the emitted Osiris story graph: types, functions,
// nodes, adapters, databases and goals.
//
// Every entity lives in an arena owned by Story and is referenced by a
// 1-based index. Index 0 is the invalid reference. Indices are assigned in
// emission order, so two emissions of the same compiled input produce the
// same graph.
//
// Node is a sealed sum type:
//
//	*DataNode   Database and Proc nodes
//	*QueryNode  DivQuery, InternalQuery and UserQuery nodes
//	*JoinNode   And and NotAnd nodes
//	*RelOpNode  comparison filters
//	*RuleNode   rule terminals carrying the THEN calls
//
// Dump writes a stable text listing of a story and ExportJSON writes the
// JSON form used by the compile command.
package story
