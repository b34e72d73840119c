package think

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SegmentKind identifies what a prompt segment holds.
type SegmentKind int

const (
	// SegmentLiteral is text copied into the prompt as written.
	SegmentLiteral SegmentKind = iota
	// SegmentRendered is a value rendered to text when it was appended.
	SegmentRendered
	// SegmentToolReference names a tool and renders as a tool marker.
	SegmentToolReference
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentRendered:
		return "rendered"
	case SegmentToolReference:
		return "tool_reference"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// RenderMode selects how a value becomes prompt text.
type RenderMode int

const (
	// RenderDisplay uses the value's user-facing form (fmt %v).
	RenderDisplay RenderMode = iota
	// RenderDebug uses the Go-syntax diagnostic form (fmt %#v).
	RenderDebug
)

// SpacingMode controls how adjacent segments are joined.
type SpacingMode int

const (
	SpacingSmart SpacingMode = iota
	SpacingExplicit
)

func (m SpacingMode) String() string {
	if m == SpacingExplicit {
		return "explicit"
	}
	return "smart"
}

// DefaultToolTag wraps tool references in the rendered prompt, e.g.
// <mcp_tool>search</mcp_tool>.
const DefaultToolTag = "mcp_tool"

// Segment is one piece of a prompt. Segments are immutable once created.
type Segment struct {
	kind SegmentKind
	text string
	mode RenderMode
}

// Literal returns a segment holding text verbatim.
func Literal(text string) Segment {
	return Segment{kind: SegmentLiteral, text: text}
}

// Rendered renders value immediately, so later mutation of value does not
// change the prompt.
func Rendered(value any, mode RenderMode) Segment {
	var text string
	if mode == RenderDebug {
		text = fmt.Sprintf("%#v", value)
	} else {
		text = fmt.Sprint(value)
	}
	return Segment{kind: SegmentRendered, text: text, mode: mode}
}

// ToolReference returns a segment naming a tool.
func ToolReference(name string) Segment {
	return Segment{kind: SegmentToolReference, text: name}
}

func (s Segment) Kind() SegmentKind { return s.kind }

// Text is the literal text, the rendered value, or the tool name.
func (s Segment) Text() string { return s.text }

func (s Segment) Mode() RenderMode { return s.mode }

func (s Segment) render(toolTag string) string {
	if s.kind != SegmentToolReference {
		return s.text
	}
	if toolTag == "" {
		return s.text
	}
	return "<" + toolTag + ">" + s.text + "</" + toolTag + ">"
}

// NeedsSpace reports whether smart spacing inserts a space between the
// accumulated prompt text prev and the next segment's text next.
//
// No space is inserted when prev is empty or ends with whitespace or one of
// ( [ {, when next starts with one of . , : ; ! ? ) ] }, or when next is empty.
func NeedsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	if unicode.IsSpace(last) || strings.ContainsRune("([{", last) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(next)
	return !strings.ContainsRune(".,:;!?)]}", first)
}

// Prompt is an ordered list of segments plus the spacing mode used to join
// them. The zero value is an empty smart-spaced prompt.
type Prompt struct {
	segments   []Segment
	spacing    SpacingMode
	spacingSet bool
	toolTag    string
}

// NewPrompt returns an empty prompt that marks tool references with toolTag.
func NewPrompt(toolTag string) *Prompt {
	return &Prompt{toolTag: toolTag}
}

// SetSpacing chooses the spacing mode. It fails with ErrSpacingLocked once a
// segment exists, or when a different mode was already chosen.
func (p *Prompt) SetSpacing(mode SpacingMode) error {
	if len(p.segments) > 0 {
		return ErrSpacingLocked
	}
	if p.spacingSet && p.spacing != mode {
		return ErrSpacingLocked
	}
	p.spacing = mode
	p.spacingSet = true
	return nil
}

func (p *Prompt) Spacing() SpacingMode { return p.spacing }

// Append adds a segment at the end.
func (p *Prompt) Append(seg Segment) {
	p.segments = append(p.segments, seg)
}

// Segments returns a copy of the segments in order.
func (p *Prompt) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

func (p *Prompt) Len() int { return len(p.segments) }

// ToolReferences lists referenced tool names in prompt order, without
// duplicates.
func (p *Prompt) ToolReferences() []string {
	var names []string
	seen := make(map[string]bool)
	for _, seg := range p.segments {
		if seg.kind != SegmentToolReference || seen[seg.text] {
			continue
		}
		seen[seg.text] = true
		names = append(names, seg.text)
	}
	return names
}

// Render joins the segments into the final prompt text.
func (p *Prompt) Render() string {
	return renderSegments(p.segments, p.spacing, p.toolTag)
}

func renderSegments(segments []Segment, spacing SpacingMode, toolTag string) string {
	var sb strings.Builder
	// tail is the last non-empty chunk written, enough to decide spacing.
	var tail string
	for _, seg := range segments {
		text := seg.render(toolTag)
		if spacing == SpacingSmart && NeedsSpace(tail, text) {
			sb.WriteByte(' ')
			tail = " "
		}
		sb.WriteString(text)
		if text != "" {
			tail = text
		}
	}
	return sb.String()
}
