package story

import (
	"encoding/json"
	"fmt"
	"io"
)

// exportNode tags a node with its type so the JSON form can be told apart
// without the Go type.
type exportNode struct {
	Type NodeType `json:"type"`
	Node Node     `json:"node"`
}

type exportDocument struct {
	Header      Header       `json:"header"`
	Fingerprint string       `json:"fingerprint"`
	Types       []OsirisType `json:"types"`
	Functions   []*Function  `json:"functions"`
	Nodes       []exportNode `json:"nodes"`
	Adapters    []*Adapter   `json:"adapters"`
	Databases   []*Database  `json:"databases"`
	Goals       []*Goal      `json:"goals"`
	DebugInfo   *DebugInfo   `json:"debug_info,omitempty"`
}

// ExportJSON writes s, and debug when non-nil, as indented JSON.
func ExportJSON(w io.Writer, s *Story, debug *DebugInfo) error {
	fp, err := Fingerprint(s)
	if err != nil {
		return err
	}

	doc := exportDocument{
		Header:      s.Header,
		Fingerprint: fp,
		Types:       s.Types,
		Functions:   s.Functions,
		Nodes:       make([]exportNode, len(s.Nodes)),
		Adapters:    s.Adapters,
		Databases:   s.Databases,
		Goals:       s.Goals,
		DebugInfo:   debug,
	}
	for i, n := range s.Nodes {
		doc.Nodes[i] = exportNode{Type: n.Type(), Node: n}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export story: %w", err)
	}
	return nil
}
