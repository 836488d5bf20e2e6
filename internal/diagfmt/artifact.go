package diagfmt

import (
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"fasmgo/internal/diag"
	"fasmgo/internal/observ"
)

// Artifact is the machine readable outcome of one assemble call.
type Artifact struct {
	Name     string `json:"name" msgpack:"name"`
	OK       bool   `json:"ok" msgpack:"ok"`
	Output   []byte `json:"-" msgpack:"output,omitempty"`
	Hex      string `json:"hex,omitempty" msgpack:"-"`
	Length   int    `json:"length" msgpack:"length"`
	Attempts int    `json:"attempts" msgpack:"attempts"`
	// RegionSize is the work region size of the last attempt.
	RegionSize  int              `json:"region_size" msgpack:"region_size"`
	States      []string         `json:"states,omitempty" msgpack:"states,omitempty"`
	Timings     *observ.Report   `json:"timings,omitempty" msgpack:"timings,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
}

// ArtifactsOutput is the root of a JSON or msgpack document.
type ArtifactsOutput struct {
	Tool      string     `json:"tool" msgpack:"tool"`
	Engine    string     `json:"engine,omitempty" msgpack:"engine,omitempty"`
	Artifacts []Artifact `json:"artifacts" msgpack:"artifacts"`
	// Summary holds the failures of the whole batch; nil when none failed.
	Summary *DiagnosticsOutput `json:"summary,omitempty" msgpack:"summary,omitempty"`
}

// NewArtifact fills the common fields; a nil failure means success.
func NewArtifact(name string, output []byte, failure *diag.Failure, opts JSONOpts) Artifact {
	a := Artifact{Name: name, OK: failure == nil}
	if failure != nil {
		a.Diagnostics = []DiagnosticJSON{MakeDiagnostic(failure.Diagnostic(), opts)}
		return a
	}
	a.Output = output
	a.Hex = hex.EncodeToString(output)
	a.Length = len(output)
	return a
}

// WriteJSON writes doc indented; code bytes appear as hex.
func WriteJSON(w io.Writer, doc ArtifactsOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// WriteMsgpack writes doc with raw code bytes.
func WriteMsgpack(w io.Writer, doc ArtifactsOutput) error {
	return msgpack.NewEncoder(w).Encode(doc)
}

// ReadMsgpack decodes a document written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (ArtifactsOutput, error) {
	var doc ArtifactsOutput
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return ArtifactsOutput{}, err
	}
	return doc, nil
}
