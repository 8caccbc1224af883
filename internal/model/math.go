package model

type QueryMode string

const (
	QueryModeSymbolicOnly  QueryMode = "symbolic_only"
	QueryModeAllowFallback QueryMode = "allow_fallback"
)

type AnswerPath string

const (
	AnswerPathSymbolic AnswerPath = "symbolic"
	AnswerPathFallback AnswerPath = "fallback"
	AnswerPathError    AnswerPath = "error"
)

// MathQuery and MathAnswer are transient chat types, never persisted.
type MathQuery struct {
	Message string
	Mode    QueryMode
}

type MathAnswer struct {
	Reply     string     `json:"reply"`
	ReplyHTML string     `json:"reply_html,omitempty"`
	Path      AnswerPath `json:"path"`
}
