package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
)

// Outcome is the aggregated orchestration response handed back to callers
// and embedded in A2A reply messages.
type Outcome struct {
	Intent  string   `json:"intent"`
	Results *Results `json:"results"`
}

// Results collects per-tool results keyed by tool id. It remembers
// invocation order, so serialized output reads in the order the tools ran
// rather than in Go's randomized map order.
type Results struct {
	order []string
	items map[string]mcp.Result
}

func NewResults() *Results {
	return &Results{items: map[string]mcp.Result{}}
}

// Set records the result for toolID. A repeated tool id keeps its original
// position.
func (r *Results) Set(toolID string, res mcp.Result) {
	if _, seen := r.items[toolID]; !seen {
		r.order = append(r.order, toolID)
	}
	r.items[toolID] = res
}

func (r *Results) Get(toolID string) (mcp.Result, bool) {
	res, ok := r.items[toolID]
	return res, ok
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// ToolIDs returns the tool ids in invocation order.
func (r *Results) ToolIDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.items[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("orchestrator: results must be a JSON object")
	}

	r.order = nil
	r.items = map[string]mcp.Result{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("orchestrator: results key is not a string")
		}
		var res mcp.Result
		if err := dec.Decode(&res); err != nil {
			return err
		}
		r.Set(key, res)
	}
	_, err = dec.Token()
	return err
}
