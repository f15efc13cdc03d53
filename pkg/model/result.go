package model

// NodeSummary is a compact view of a heap node.
type NodeSummary struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	SelfSize  int64  `json:"self_size"`
	EdgeCount int64  `json:"edge_count"`
}

// OutputFile describes a file produced by an analysis.
type OutputFile struct {
	Kind       string `json:"kind"` // target or summary
	LocalPath  string `json:"local_path"`
	StorageURL string `json:"storage_url,omitempty"`
}

// AnalysisResponse represents the response from an analysis.
type AnalysisResponse struct {
	TaskUUID  string         `json:"task_uuid"`
	InputFile string         `json:"input_file"`
	Target    string         `json:"target,omitempty"`
	Mode      TraceMode      `json:"mode"`
	Status    AnalysisStatus `json:"status"`

	NodeCount     int   `json:"node_count"`
	EdgeCount     int   `json:"edge_count"`
	ExpectedNodes int64 `json:"expected_nodes"`

	Found   bool          `json:"found"`
	Matches []NodeSummary `json:"matches,omitempty"`

	Traced            bool   `json:"traced"`
	RetainedSize      int64  `json:"retained_size"`
	RetainedSizeHuman string `json:"retained_size_human,omitempty"`
	Visited           uint64 `json:"visited"`

	OutputFiles []OutputFile     `json:"output_files,omitempty"`
	Timings     map[string]int64 `json:"timings_ms,omitempty"`
	DurationMs  int64            `json:"duration_ms"`
	Error       string           `json:"error,omitempty"`
}

// NewAnalysisResponse creates a pending response for req.
func NewAnalysisResponse(req *AnalysisRequest) *AnalysisResponse {
	return &AnalysisResponse{
		TaskUUID:  req.TaskUUID,
		InputFile: req.InputFile,
		Target:    req.Target,
		Mode:      req.Mode,
		Status:    AnalysisStatusPending,
	}
}

// AddOutput records an output file.
func (r *AnalysisResponse) AddOutput(kind, localPath, storageURL string) {
	r.OutputFiles = append(r.OutputFiles, OutputFile{
		Kind:       kind,
		LocalPath:  localPath,
		StorageURL: storageURL,
	})
}

// FirstMatch returns the first located node, or nil.
func (r *AnalysisResponse) FirstMatch() *NodeSummary {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}
