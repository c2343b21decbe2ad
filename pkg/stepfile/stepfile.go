// Package stepfile scans the text of ISO 10303-21 (STEP) files. It gathers
// line and entity statistics and parses the HEADER section without a CAD
// kernel, so it works even when no kernel binding is available.
package stepfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// MaxLines bounds the statistics scan of large files.
const MaxLines = 50000

// maxLineBytes bounds a single physical line.
const maxLineBytes = 16 << 20

var entityPattern = regexp.MustCompile(`^#(\d+)\s*=`)

// Stats summarizes the structure of a STEP file.
type Stats struct {
	LineCount          int    `json:"line_count"`
	HeaderLines        int    `json:"header_lines"`
	DataLines          int    `json:"data_lines"`
	EntityCount        int    `json:"entity_count"`
	ContainsColors     bool   `json:"contains_colors"`
	ContainsMaterials  bool   `json:"contains_materials"`
	ContainsAssemblies bool   `json:"contains_assemblies"`
	Truncated          bool   `json:"file_truncated_analysis"`
	AnalysisError      string `json:"analysis_error,omitempty"`
}

type section int

const (
	sectionNone section = iota
	sectionHeader
	sectionData
)

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// Analyze scans r line by line. Section marker lines count toward the
// section they open. Scanning stops once MaxLines lines have been read.
func Analyze(r io.Reader) Stats {
	var st Stats
	cur := sectionNone
	sc := newScanner(r)
	for sc.Scan() {
		st.LineCount++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		switch trimmed {
		case "HEADER;":
			cur = sectionHeader
		case "DATA;":
			cur = sectionData
		case "ENDSEC;":
			cur = sectionNone
		}

		switch cur {
		case sectionHeader:
			st.HeaderLines++
		case sectionData:
			st.DataLines++
			if entityPattern.MatchString(trimmed) {
				st.EntityCount++
			}
		}

		upper := strings.ToUpper(line)
		if strings.Contains(upper, "COLOUR") || strings.Contains(upper, "COLOR") {
			st.ContainsColors = true
		}
		if strings.Contains(upper, "MATERIAL") {
			st.ContainsMaterials = true
		}
		if strings.Contains(upper, "ASSEMBLY") {
			st.ContainsAssemblies = true
		}

		if st.LineCount > MaxLines {
			st.Truncated = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		st.AnalysisError = err.Error()
	}
	return st
}

// AnalyzeFile opens path and analyzes it.
func AnalyzeFile(path string) Stats {
	f, err := os.Open(path)
	if err != nil {
		return Stats{AnalysisError: err.Error()}
	}
	defer f.Close()
	return Analyze(f)
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

// headerPatterns extract the standard header entities. Each match's
// capture groups are reported.
var headerPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"FILE_DESCRIPTION", regexp.MustCompile(`(?s)FILE_DESCRIPTION\s*\(\s*\((.*?)\)\s*,\s*'([^']*)'`)},
	{"FILE_NAME", regexp.MustCompile(`(?s)FILE_NAME\s*\(\s*'([^']*)'.*?'([^']*)'.*?'([^']*)'.*?'([^']*)'.*?'([^']*)'.*?'([^']*)'.*?\)`)},
	{"FILE_SCHEMA", regexp.MustCompile(`(?s)FILE_SCHEMA\s*\(\s*\(\s*'([^']*)'.*?\)\s*\)`)},
}

// Header is the HEADER section of a STEP file.
type Header struct {
	RawHeader       []string              `json:"raw_header"`
	ParsedEntities  map[string][][]string `json:"parsed_entities"`
	ExtractionError string                `json:"extraction_error,omitempty"`
}

// FileName returns the first FILE_NAME capture, the name recorded by the
// exporting system.
func (h Header) FileName() string {
	if m := h.ParsedEntities["FILE_NAME"]; len(m) > 0 && len(m[0]) > 0 {
		return m[0][0]
	}
	return ""
}

// Schema returns the first FILE_SCHEMA identifier, e.g. "AUTOMOTIVE_DESIGN".
func (h Header) Schema() string {
	if m := h.ParsedEntities["FILE_SCHEMA"]; len(m) > 0 && len(m[0]) > 0 {
		return m[0][0]
	}
	return ""
}

// ReadHeader collects the trimmed lines between "HEADER;" and the first
// "ENDSEC;" and parses the standard entities from them.
func ReadHeader(r io.Reader) (Header, error) {
	h := Header{RawHeader: []string{}, ParsedEntities: map[string][][]string{}}
	inHeader := false
	sc := newScanner(r)
	for sc.Scan() {
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "HEADER;" {
			inHeader = true
			continue
		}
		if !inHeader {
			continue
		}
		if trimmed == "ENDSEC;" {
			break
		}
		h.RawHeader = append(h.RawHeader, trimmed)
	}
	if err := sc.Err(); err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}

	text := strings.Join(h.RawHeader, " ")
	for _, p := range headerPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			h.ParsedEntities[p.name] = append(h.ParsedEntities[p.name], m[1:])
		}
	}
	return h, nil
}

// HeaderFile opens path and reads its header. Failures are recorded in
// ExtractionError.
func HeaderFile(path string) Header {
	f, err := os.Open(path)
	if err != nil {
		return Header{ExtractionError: err.Error()}
	}
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		h.ExtractionError = err.Error()
	}
	return h
}
