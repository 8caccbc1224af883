package model

type PhotoStatus string

const (
	PhotoStatusPending   PhotoStatus = "pending"
	PhotoStatusEnhanced  PhotoStatus = "enhanced"
	PhotoStatusExtracted PhotoStatus = "extracted"
	PhotoStatusFailed    PhotoStatus = "failed"
)

// PhotoAsset is one photo of a capture session. Index is the capture
// position and drives final fragment ordering.
type PhotoAsset struct {
	Index    int
	Filename string
	Mime     string
	Raw      []byte
	Enhanced []byte
	Fragment *ExtractionFragment
	Status   PhotoStatus
	Err      error
}

// CaptureSession is an ordered batch of photos uploaded together. It is
// consumed whole by the pipeline and never persisted.
type CaptureSession struct {
	DocumentName string
	Photos       []*PhotoAsset
}

// PhotoOutcome is the per-photo success record surfaced to the caller.
type PhotoOutcome struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	OK       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
}

// ConvertResult pairs the produced document with the per-photo outcomes,
// so callers can report "N of M photos processed".
type ConvertResult struct {
	Document  *Document      `json:"document"`
	Photos    []PhotoOutcome `json:"photos"`
	Processed int            `json:"processed"`
	Total     int            `json:"total"`
}

// ExtractionFragment is the transcription produced for one photo.
// Immutable once created.
type ExtractionFragment struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
	Reason string `json:"reason,omitempty"`
}
