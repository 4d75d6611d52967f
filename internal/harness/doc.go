// Package harness runs compile scenarios: small story projects described in
// one YAML file together with the diagnostics and story shape they must
// produce.
//
// # Scenario Format
//
//	name: counter_deaths
//	description: "Counting deaths emits a join into DB_Counter"
//	target: dos2de
//	warnings: {W25: false}
//	header_file: headers/story_header.yaml
//	goals:
//	  - name: Counter
//	    source: |
//	      kb: [...]
//	  - file: goals/Sub.yaml
//	objects:
//	  - {guid: "...", name: S_Player, type: CHARACTERGUID}
//	expect:
//	  errors: [E11]
//	  warnings: []
//	  nodes: 6
//	  databases: 1
//	  goals: [Counter]
//	  functions: [DB_Counter/2]
//	golden: true
//
// Relative paths resolve against the scenario file's directory. Inline goal
// sources are decoded as goals/<name>.yaml so diagnostics carry stable
// locations.
//
// # Expectations
//
//   - errors, warnings: the diagnostic codes, compared as sorted lists.
//     Omitting either expects none.
//   - nodes, databases: counts in the emitted story.
//   - goals: goal names in emission order.
//   - functions: Name/N keys that must be in the function table.
//
// Story expectations fail when the compile emitted no story.
//
// # Golden Snapshots
//
// RunWithGolden compares the scenario snapshot, the story dump followed by
// any diagnostics, against testdata/golden/<name>.golden.
package harness
