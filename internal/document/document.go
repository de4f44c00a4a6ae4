// Package document defines the types that flow through the matching
// pipeline: loaded documents, retrievable chunks, and their metadata.
package document

// Metadata describes where a document came from and who it belongs to.
// CandidateID is first-class because downstream aggregation keys on it;
// Extra carries any caller-supplied fields that have no dedicated slot.
type Metadata struct {
	CandidateID string            `json:"candidate_id,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	SourceType  string            `json:"source_type,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy. Chunks outlive and are indexed independently
// of their parent document, so they must never share the Extra map.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Merge overlays other onto m, the other side winning on conflict.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	if other.CandidateID != "" {
		out.CandidateID = other.CandidateID
	}
	if other.Filename != "" {
		out.Filename = other.Filename
	}
	if other.SourceType != "" {
		out.SourceType = other.SourceType
	}
	if other.FilePath != "" {
		out.FilePath = other.FilePath
	}
	if len(other.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(other.Extra))
		}
		for k, v := range other.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Document is a unit of sanitized text plus its provenance.
type Document struct {
	Content string   `json:"content"`
	Meta    Metadata `json:"metadata"`
}

// Chunk is a bounded-length slice of a document used as the unit of
// retrieval. ID is stable for a given content+metadata pair so that
// index rebuilds stay deterministic.
type Chunk struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Meta    Metadata `json:"metadata"`
}
