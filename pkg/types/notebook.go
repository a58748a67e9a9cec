// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CellType identifies the kind of a notebook cell.
type CellType string

const (
	CellMarkdown CellType = "markdown"
	CellCode     CellType = "code"
	CellRaw      CellType = "raw"
)

// OutputType identifies the kind of a code cell output.
type OutputType string

const (
	OutputStream        OutputType = "stream"
	OutputExecuteResult OutputType = "execute_result"
	OutputDisplayData   OutputType = "display_data"
	OutputError         OutputType = "error"
)

// MultilineString is a notebook text field. On disk nbformat stores it either
// as a single string or as a list of lines; both decode to one string.
type MultilineString string

// UnmarshalJSON accepts a JSON string or an array of strings.
func (m *MultilineString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultilineString(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("multiline string must be a string or list of strings: %w", err)
	}
	*m = MultilineString(strings.Join(lines, ""))
	return nil
}

// String returns the joined text.
func (m MultilineString) String() string { return string(m) }

// Notebook is an nbformat v4 document: metadata plus an ordered list of cells.
type Notebook struct {
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
	Metadata      map[string]any `json:"metadata"`
	Cells         []Cell         `json:"cells"`
}

// NewNotebook returns an empty v4 notebook with initialized metadata.
func NewNotebook() *Notebook {
	return &Notebook{
		NBFormat:      4,
		NBFormatMinor: 5,
		Metadata:      map[string]any{},
		Cells:         []Cell{},
	}
}

// Cell is one unit of a notebook. ExecutionCount and Outputs are meaningful
// only for code cells. A nil Outputs means the field was absent on disk.
type Cell struct {
	CellType       CellType        `json:"cell_type"`
	ID             string          `json:"id,omitempty"`
	Metadata       map[string]any  `json:"metadata"`
	Source         MultilineString `json:"source"`
	Attachments    map[string]any  `json:"attachments,omitempty"`
	ExecutionCount *int            `json:"execution_count"`
	Outputs        []Output        `json:"outputs"`
}

// NewCellID returns a fresh cell id: eight lowercase hex characters, the
// form nbformat 4.5 generates.
func NewCellID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// NewMarkdownCell returns a markdown cell with the given source and a fresh id.
func NewMarkdownCell(source string) Cell {
	return Cell{
		CellType: CellMarkdown,
		ID:       NewCellID(),
		Metadata: map[string]any{},
		Source:   MultilineString(source),
	}
}

// IsCode reports whether the cell holds executable content.
func (c Cell) IsCode() bool { return c.CellType == CellCode }

// codeCellJSON is the wire form of a code cell; outputs and execution_count
// are required by nbformat even when empty or null.
type codeCellJSON struct {
	CellType       CellType        `json:"cell_type"`
	ID             string          `json:"id,omitempty"`
	Metadata       map[string]any  `json:"metadata"`
	Source         MultilineString `json:"source"`
	ExecutionCount *int            `json:"execution_count"`
	Outputs        []Output        `json:"outputs"`
}

// textCellJSON is the wire form of markdown and raw cells.
type textCellJSON struct {
	CellType    CellType        `json:"cell_type"`
	ID          string          `json:"id,omitempty"`
	Metadata    map[string]any  `json:"metadata"`
	Source      MultilineString `json:"source"`
	Attachments map[string]any  `json:"attachments,omitempty"`
}

// MarshalJSON emits only the fields nbformat allows for the cell's type.
func (c Cell) MarshalJSON() ([]byte, error) {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if c.IsCode() {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []Output{}
		}
		return json.Marshal(codeCellJSON{
			CellType:       c.CellType,
			ID:             c.ID,
			Metadata:       meta,
			Source:         c.Source,
			ExecutionCount: c.ExecutionCount,
			Outputs:        outputs,
		})
	}
	return json.Marshal(textCellJSON{
		CellType:    c.CellType,
		ID:          c.ID,
		Metadata:    meta,
		Source:      c.Source,
		Attachments: c.Attachments,
	})
}

// Output is one result attached to a code cell. Which fields are set depends
// on OutputType: Name and Text for streams, Data for results and display
// data, EName/EValue/Traceback for errors.
type Output struct {
	OutputType     OutputType                 `json:"output_type"`
	Name           string                     `json:"name,omitempty"`
	Text           MultilineString            `json:"text,omitempty"`
	Data           map[string]json.RawMessage `json:"data,omitempty"`
	Metadata       map[string]any             `json:"metadata,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	EName          string                     `json:"ename,omitempty"`
	EValue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

// DataText returns the mime bundle entry for mimeType decoded as text, and
// whether the entry exists.
func (o Output) DataText(mimeType string) (string, bool) {
	raw, ok := o.Data[mimeType]
	if !ok {
		return "", false
	}
	var m MultilineString
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	return m.String(), true
}

// MarshalJSON fills in the fields nbformat requires for each output type.
func (o Output) MarshalJSON() ([]byte, error) {
	switch o.OutputType {
	case OutputExecuteResult:
		return json.Marshal(struct {
			OutputType     OutputType                 `json:"output_type"`
			Data           map[string]json.RawMessage `json:"data"`
			Metadata       map[string]any             `json:"metadata"`
			ExecutionCount *int                       `json:"execution_count"`
		}{o.OutputType, nonNilData(o.Data), nonNilMeta(o.Metadata), o.ExecutionCount})
	case OutputDisplayData:
		return json.Marshal(struct {
			OutputType OutputType                 `json:"output_type"`
			Data       map[string]json.RawMessage `json:"data"`
			Metadata   map[string]any             `json:"metadata"`
		}{o.OutputType, nonNilData(o.Data), nonNilMeta(o.Metadata)})
	case OutputStream:
		return json.Marshal(struct {
			OutputType OutputType      `json:"output_type"`
			Name       string          `json:"name"`
			Text       MultilineString `json:"text"`
		}{o.OutputType, o.Name, o.Text})
	case OutputError:
		tb := o.Traceback
		if tb == nil {
			tb = []string{}
		}
		return json.Marshal(struct {
			OutputType OutputType `json:"output_type"`
			EName      string     `json:"ename"`
			EValue     string     `json:"evalue"`
			Traceback  []string   `json:"traceback"`
		}{o.OutputType, o.EName, o.EValue, tb})
	default:
		type plain Output
		return json.Marshal(plain(o))
	}
}

func nonNilData(d map[string]json.RawMessage) map[string]json.RawMessage {
	if d == nil {
		return map[string]json.RawMessage{}
	}
	return d
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
