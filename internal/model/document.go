package model

type DocumentStatus string

const (
	DocumentStatusDraft         DocumentStatus = "draft"
	DocumentStatusCompiled      DocumentStatus = "compiled"
	DocumentStatusCompileFailed DocumentStatus = "compile_failed"
)

// Document is the assembled LaTeX artifact for one capture session.
// Name is the unique key; saving under an existing name overwrites the
// prior artifacts.
type Document struct {
	Name          string         `json:"name"`
	Status        DocumentStatus `json:"status"`
	Source        string         `json:"-"`
	PDF           []byte         `json:"-"`
	FragmentCount int            `json:"fragment_count"`
	PhotoCount    int            `json:"photo_count"`
	CompileDetail string         `json:"compile_detail,omitempty"`
	Ctime         int64          `json:"ctime"`
}

func (d *Document) HasPDF() bool {
	return d.Status == DocumentStatusCompiled && len(d.PDF) > 0
}

// DocumentSummary is the listing shape, most recent first.
type DocumentSummary struct {
	Name          string         `json:"name"`
	Status        DocumentStatus `json:"status"`
	FragmentCount int            `json:"fragment_count"`
	PhotoCount    int            `json:"photo_count"`
	HasPDF        bool           `json:"has_pdf"`
	CompileDetail string         `json:"compile_detail,omitempty"`
	Ctime         int64          `json:"ctime"`
}
