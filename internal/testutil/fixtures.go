package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// HeaderYAML is a story header with two GUID aliases and one builtin of
// every kind.
const HeaderYAML = `
aliases:
  - {type_name: CHARACTERGUID, type_id: 6, alias_id: 5}
  - {type_name: ITEMGUID, type_id: 7, alias_id: 5}
functions:
  - name: CharacterDied
    type: event
    params:
      - {name: Character, type: CHARACTERGUID, direction: in}
  - name: ItemDestroyed
    type: event
    params:
      - {name: Item, type: ITEMGUID, direction: in}
  - name: TextEvent
    type: event
    params:
      - {name: Event, type: STRING, direction: in}
  - name: IntegerSum
    type: sysquery
    params:
      - {name: A, type: INTEGER, direction: in}
      - {name: B, type: INTEGER, direction: in}
      - {name: Sum, type: INTEGER, direction: out}
  - name: GetDistanceTo
    type: query
    params:
      - {name: Source, type: GUIDSTRING, direction: in}
      - {name: Target, type: GUIDSTRING, direction: in}
      - {name: Distance, type: REAL, direction: out}
  - name: DebugBreak
    type: syscall
    params:
      - {name: Message, type: STRING, direction: in}
  - name: SetOnStage
    type: call
    params:
      - {name: Object, type: GUIDSTRING, direction: in}
      - {name: Bool, type: INTEGER, direction: in}
  - name: SetHealth
    type: call
    params:
      - {name: Character, type: CHARACTERGUID, direction: in}
      - {name: Health, type: REAL, direction: in}
`

// CounterGoalYAML counts character deaths in a database. It compiles
// without diagnostics against HeaderYAML.
const CounterGoalYAML = `
init:
  - database: DB_Counter
    elements: [{string: "kills"}, {int: 0}]
kb:
  - type: if
    conditions:
      - func: CharacterDied
        params: [{var: _Char}]
      - func: DB_Counter
        params: [{var: _Name}, {var: _Count}]
      - func: IntegerSum
        params: [{var: _Count}, {int: 1}, {var: _Next}]
    actions:
      - func: DB_Counter
        not: true
        params: [{var: _Name}, {var: _Count}]
      - func: DB_Counter
        params: [{var: _Name}, {var: _Next}]
      - func: SetOnStage
        params: [{var: _Char}, {int: 0}]
`

// BrokenGoalYAML calls a PROC with a string where it declares an integer
// (E11).
const BrokenGoalYAML = `
kb:
  - type: proc
    conditions:
      - func: PROC_Foo
        params: [{var: _X, type: INTEGER}]
    actions:
      - func: DebugBreak
        params: [{string: "x"}]
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: PROC_Foo
        params: [{string: "text"}]
`

// WriteFiles writes files below dir, creating parent directories. Keys
// are slash-separated relative paths.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// NewProject writes a story project into a temporary directory and returns
// it. The header is HeaderYAML unless files provides one.
func NewProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	all := map[string]string{"story_header.yaml": HeaderYAML}
	for name, content := range files {
		all[name] = content
	}
	WriteFiles(t, dir, all)
	return dir
}
