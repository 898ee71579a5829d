package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// OutputType tags the Output variant.
type OutputType string

const (
	OutputExecuteResult OutputType = "execute_result"
	OutputError         OutputType = "error"
)

// FinishReasonCancelled marks an execute_result produced by a cancelled run.
const FinishReasonCancelled = "cancelled"

// DataKind tags the OutputData variant.
type DataKind string

const (
	DataText   DataKind = "text"
	DataBinary DataKind = "binary"
	DataJSON   DataKind = "json"
)

// OutputData is the payload of an execute_result. Adapters build it with
// TextData, BinaryData or JSONData.
type OutputData struct {
	Kind   DataKind
	Text   string
	Binary []byte
	JSON   any
}

func TextData(s string) OutputData   { return OutputData{Kind: DataText, Text: s} }
func BinaryData(b []byte) OutputData { return OutputData{Kind: DataBinary, Binary: b} }
func JSONData(v any) OutputData      { return OutputData{Kind: DataJSON, JSON: v} }

type binaryWire struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (d OutputData) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DataBinary:
		return encodeJSON(binaryWire{Kind: "base64", Value: base64.StdEncoding.EncodeToString(d.Binary)})
	case DataJSON:
		return encodeJSON(d.JSON)
	default:
		return encodeJSON(d.Text)
	}
}

func (d *OutputData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*d = OutputData{Kind: DataText}
		return json.Unmarshal(b, &d.Text)
	}
	if len(b) > 0 && b[0] == '{' {
		var w binaryWire
		if err := json.Unmarshal(b, &w); err == nil && w.Kind == "base64" {
			raw, err := base64.StdEncoding.DecodeString(w.Value)
			if err != nil {
				return fmt.Errorf("data: invalid base64: %w", err)
			}
			*d = BinaryData(raw)
			return nil
		}
	}
	var v any
	if err := decodeJSON(b, &v); err != nil {
		return err
	}
	*d = JSONData(v)
	return nil
}

// Output is the recorded result of executing a Prompt: either an
// execute_result or an error.
type Output struct {
	OutputType     OutputType
	ExecutionCount *int
	Data           OutputData
	MimeType       string
	Metadata       map[string]any
	EName          string
	EValue         string
	Traceback      []string
}

// NewResult builds an execute_result output.
func NewResult(data OutputData, metadata map[string]any) Output {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Output{OutputType: OutputExecuteResult, Data: data, Metadata: metadata}
}

// NewError builds an error output.
func NewError(ename, evalue string, traceback []string) Output {
	return Output{OutputType: OutputError, EName: ename, EValue: evalue, Traceback: traceback}
}

// NewCancelled builds the terminal output of a cancelled execution, keeping
// whatever text was accumulated before cancellation.
func NewCancelled(partial string) Output {
	return NewResult(TextData(partial), map[string]any{"finish_reason": FinishReasonCancelled})
}

// IsError reports whether the output is the error variant.
func (o Output) IsError() bool { return o.OutputType == OutputError }

// Cancelled reports whether the output records a cancelled execution.
func (o Output) Cancelled() bool {
	if o.OutputType != OutputExecuteResult || o.Metadata == nil {
		return false
	}
	fr, _ := o.Metadata["finish_reason"].(string)
	return fr == FinishReasonCancelled
}

type executeResultWire struct {
	OutputType     OutputType     `json:"output_type"`
	ExecutionCount *int           `json:"execution_count,omitempty"`
	Data           OutputData     `json:"data"`
	MimeType       string         `json:"mime_type,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

type errorWire struct {
	OutputType OutputType `json:"output_type"`
	EName      string     `json:"ename"`
	EValue     string     `json:"evalue"`
	Traceback  []string   `json:"traceback"`
}

func (o Output) MarshalJSON() ([]byte, error) {
	switch o.OutputType {
	case OutputExecuteResult:
		md := o.Metadata
		if md == nil {
			md = map[string]any{}
		}
		return encodeJSON(executeResultWire{
			OutputType:     o.OutputType,
			ExecutionCount: o.ExecutionCount,
			Data:           o.Data,
			MimeType:       o.MimeType,
			Metadata:       md,
		})
	case OutputError:
		tb := o.Traceback
		if tb == nil {
			tb = []string{}
		}
		return encodeJSON(errorWire{OutputType: o.OutputType, EName: o.EName, EValue: o.EValue, Traceback: tb})
	default:
		return nil, fmt.Errorf("unknown output_type %q", o.OutputType)
	}
}

func (o *Output) UnmarshalJSON(b []byte) error {
	var head struct {
		OutputType OutputType `json:"output_type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	switch head.OutputType {
	case OutputExecuteResult:
		var w executeResultWire
		if err := decodeJSON(b, &w); err != nil {
			return err
		}
		*o = Output{
			OutputType:     OutputExecuteResult,
			ExecutionCount: w.ExecutionCount,
			Data:           w.Data,
			MimeType:       w.MimeType,
			Metadata:       w.Metadata,
		}
		if o.Metadata == nil {
			o.Metadata = map[string]any{}
		}
		return nil
	case OutputError:
		var w errorWire
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*o = NewError(w.EName, w.EValue, w.Traceback)
		if o.Traceback == nil {
			o.Traceback = []string{}
		}
		return nil
	case "":
		return fmt.Errorf("output_type is required")
	default:
		return fmt.Errorf("unknown output_type %q", head.OutputType)
	}
}
