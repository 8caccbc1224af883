package service

import (
	"fmt"
	"regexp"
	"strings"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

var (
	reDocumentClass = regexp.MustCompile(`(?m)^\s*\\documentclass.*$`)
	reUsePackage    = regexp.MustCompile(`(?m)^\s*\\usepackage.*$`)
	reBeginDoc      = regexp.MustCompile(`\\begin\{document\}`)
	reEndDoc        = regexp.MustCompile(`\\end\{document\}`)
	reMakeTitle     = regexp.MustCompile(`(?m)^\s*\\(maketitle|title\{.*\}|author\{.*\}|date\{.*\})\s*$`)
)

const documentPreamble = `\documentclass[11pt]{article}
\usepackage[utf8]{inputenc}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{amsfonts}
\usepackage[margin=1in]{geometry}
`

// Assemble merges extraction fragments into one compilable LaTeX document.
// Fragments are ordered by capture index; failed photos are skipped. It is
// an error to call with no usable fragment.
func Assemble(name string, fragments []*model.ExtractionFragment) (string, error) {
	usable := make([]*model.ExtractionFragment, 0, len(fragments))
	for _, f := range fragments {
		if f == nil || f.Failed || strings.TrimSpace(f.Text) == "" {
			continue
		}
		usable = append(usable, f)
	}
	if len(usable) == 0 {
		return "", fmt.Errorf("%w: no usable fragments", appErr.ErrAssembly)
	}

	var b strings.Builder
	b.WriteString(documentPreamble)
	b.WriteString(fmt.Sprintf("\\title{%s}\n", escapeTitle(name)))
	b.WriteString("\\date{\\today}\n")
	b.WriteString("\\begin{document}\n")
	b.WriteString("\\maketitle\n\n")
	for i, f := range usable {
		if len(usable) > 1 {
			b.WriteString(fmt.Sprintf("\\section*{Photo %d}\n", f.Index+1))
		}
		b.WriteString(neutralizeFragment(f.Text))
		b.WriteString("\n")
		if i != len(usable)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\\end{document}\n")
	return b.String(), nil
}

// neutralizeFragment strips document-level commands a model sometimes emits
// despite the prompt, so a fragment can never terminate the assembled
// document early.
func neutralizeFragment(text string) string {
	s := strings.TrimSpace(text)
	s = reDocumentClass.ReplaceAllString(s, "")
	s = reUsePackage.ReplaceAllString(s, "")
	s = reBeginDoc.ReplaceAllString(s, "")
	s = reEndDoc.ReplaceAllString(s, "")
	s = reMakeTitle.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// escapeTitle makes a document name safe inside \title.
func escapeTitle(name string) string {
	r := strings.NewReplacer(
		"\\", "",
		"_", "\\_",
		"&", "\\&",
		"%", "\\%",
		"#", "\\#",
		"$", "\\$",
		"{", "\\{",
		"}", "\\}",
	)
	return r.Replace(name)
}
