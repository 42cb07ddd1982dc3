package yamldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/descriptor"
	"github.com/arthur-debert/assetyaml/types"
	"gopkg.in/yaml.v3"
)

// Indent is the number of spaces per nesting level.
const Indent = 4

// Encode writes n in canonical layout. Overrides maps mapping key nodes to the
// override glyphs written after them; it may be nil.
//
// The layout uses four space indentation, writes a block sequence item that
// is an untagged mapping as "-   key: value", writes empty collections as {}
// and [] and puts the tag of a tagged root collection on its own line.
func Encode(w io.Writer, n *yaml.Node, overrides map[*yaml.Node]types.OverrideType) error {
	e := &encoder{overrides: overrides}
	e.encodeRoot(n)
	_, err := w.Write(e.buf.Bytes())
	return err
}

// Marshal returns the canonical text of n.
func Marshal(n *yaml.Node, overrides map[*yaml.Node]types.OverrideType) []byte {
	e := &encoder{overrides: overrides}
	e.encodeRoot(n)
	return e.buf.Bytes()
}

type encoder struct {
	buf       bytes.Buffer
	overrides map[*yaml.Node]types.OverrideType
}

func (e *encoder) line(s string) {
	e.buf.WriteString(strings.TrimRight(s, " \t"))
	e.buf.WriteByte('\n')
}

func (e *encoder) comments(text string, indent int) {
	if text == "" {
		return
	}
	pad := strings.Repeat(" ", indent)
	for _, c := range strings.Split(text, "\n") {
		c = strings.TrimSpace(c)
		switch {
		case c == "":
			e.line("")
		case strings.HasPrefix(c, "#"):
			e.line(pad + c)
		default:
			e.line(pad + "# " + c)
		}
	}
}

func (e *encoder) encodeRoot(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.DocumentNode {
		e.comments(n.HeadComment, 0)
		for _, c := range n.Content {
			e.encodeRoot(c)
		}
		e.comments(n.FootComment, 0)
		return
	}

	e.comments(n.HeadComment, 0)
	switch {
	case n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode:
		if isEmptyOrFlow(n) {
			e.line(e.flow(n))
			break
		}
		if lead := e.props(n); lead != "" {
			e.line(lead + trailingComment(n.LineComment))
		}
		e.block(n, 0)
	default:
		if isBlockScalar(n) {
			e.literal(e.props(n), n, 0)
		} else {
			e.line(e.inline(n) + trailingComment(n.LineComment))
		}
	}
	e.comments(n.FootComment, 0)
}

func (e *encoder) block(n *yaml.Node, indent int) {
	switch n.Kind {
	case yaml.MappingNode:
		pad := strings.Repeat(" ", indent)
		for i := 0; i+1 < len(n.Content); i += 2 {
			e.entry(n.Content[i], n.Content[i+1], indent, pad)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			e.item(item, indent)
		}
	}
}

// entry writes one mapping pair. lead replaces the indentation of the first
// line; it carries the dash of a sequence item.
func (e *encoder) entry(k, v *yaml.Node, indent int, lead string) {
	if lead == strings.Repeat(" ", indent) {
		e.comments(k.HeadComment, indent)
	}
	prefix := lead + e.key(k) + ":"
	e.value(prefix, k, v, indent)
	e.comments(k.FootComment, indent)
}

func (e *encoder) value(prefix string, k, v *yaml.Node, indent int) {
	comment := trailingComment(k.LineComment)
	switch {
	case v.Kind == yaml.MappingNode || v.Kind == yaml.SequenceNode:
		if isEmptyOrFlow(v) {
			e.line(prefix + " " + e.flow(v) + comment + trailingComment(v.LineComment))
			return
		}
		if props := e.props(v); props != "" {
			prefix += " " + props
		}
		e.line(prefix + comment + trailingComment(v.LineComment))
		e.block(v, indent+Indent)
	case isBlockScalar(v):
		if props := e.props(v); props != "" {
			prefix += " " + props
		}
		e.literal(prefix, v, indent)
	default:
		e.line(prefix + " " + e.inline(v) + comment + trailingComment(v.LineComment))
	}
	e.comments(v.FootComment, indent)
}

func (e *encoder) item(v *yaml.Node, indent int) {
	pad := strings.Repeat(" ", indent)
	e.comments(v.HeadComment, indent)
	switch {
	case v.Kind == yaml.MappingNode && !isEmptyOrFlow(v) && e.props(v) == "":
		if len(v.Content) > 0 {
			e.comments(v.Content[0].HeadComment, indent)
		}
		e.entry(v.Content[0], v.Content[1], indent+Indent, pad+"-"+strings.Repeat(" ", Indent-1))
		childPad := strings.Repeat(" ", indent+Indent)
		for i := 2; i+1 < len(v.Content); i += 2 {
			e.entry(v.Content[i], v.Content[i+1], indent+Indent, childPad)
		}
	case (v.Kind == yaml.MappingNode || v.Kind == yaml.SequenceNode) && !isEmptyOrFlow(v):
		line := pad + "-"
		if props := e.props(v); props != "" {
			line += " " + props
		}
		e.line(line + trailingComment(v.LineComment))
		e.block(v, indent+Indent)
	case v.Kind == yaml.MappingNode || v.Kind == yaml.SequenceNode:
		e.line(pad + "- " + e.flow(v) + trailingComment(v.LineComment))
	case isBlockScalar(v):
		prefix := pad + "-"
		if props := e.props(v); props != "" {
			prefix += " " + props
		}
		e.literal(prefix, v, indent)
	default:
		e.line(pad + "- " + e.inline(v) + trailingComment(v.LineComment))
	}
	e.comments(v.FootComment, indent)
}

// literal writes a block scalar whose header follows prefix.
func (e *encoder) literal(prefix string, v *yaml.Node, indent int) {
	header, lines := literalBlock(v.Value)
	if prefix != "" {
		header = prefix + " " + header
	}
	e.line(header + trailingComment(v.LineComment))
	pad := strings.Repeat(" ", indent+Indent)
	for _, l := range lines {
		if l == "" {
			e.buf.WriteByte('\n')
			continue
		}
		e.buf.WriteString(pad + l + "\n")
	}
}

func literalBlock(value string) (string, []string) {
	header, body := "|", strings.TrimSuffix(value, "\n")
	switch {
	case !strings.HasSuffix(value, "\n"):
		header, body = "|-", value
	case strings.HasSuffix(value, "\n\n"):
		header = "|+"
	}
	return header, strings.Split(body, "\n")
}

// props returns the anchor and tag written before a node's content.
func (e *encoder) props(n *yaml.Node) string {
	var parts []string
	if n.Anchor != "" {
		parts = append(parts, "&"+n.Anchor)
	}
	if showTag(n) {
		parts = append(parts, n.Tag)
	}
	return strings.Join(parts, " ")
}

func showTag(n *yaml.Node) bool {
	if n.Tag == "" {
		return false
	}
	return n.Style&yaml.TaggedStyle != 0 || descriptor.IsCustomTag(n.Tag)
}

func (e *encoder) key(k *yaml.Node) string {
	o := e.overrides[k]
	if k.Kind != yaml.ScalarNode {
		return e.flow(k) + o.Glyphs()
	}
	if o != types.OverrideBase && k.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 {
		text := types.FormatOverrideKey(k.Value, o)
		if props := e.props(k); props != "" {
			return props + " " + text
		}
		return text
	}
	return e.inline(k) + o.Glyphs()
}

// inline renders a scalar or alias on one line.
func (e *encoder) inline(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode {
		return "*" + n.Value
	}
	if n.Kind != yaml.ScalarNode {
		return e.flow(n)
	}
	text := scalarText(n)
	if props := e.props(n); props != "" {
		if text == "" {
			return props
		}
		return props + " " + text
	}
	return text
}

func scalarText(n *yaml.Node) string {
	switch {
	case n.Style&yaml.DoubleQuotedStyle != 0:
		return quoteDouble(n.Value)
	case n.Style&yaml.SingleQuotedStyle != 0:
		return "'" + strings.ReplaceAll(n.Value, "'", "''") + "'"
	case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		// Block styles cannot appear inline
		return quoteDouble(n.Value)
	}
	return n.Value
}

// flow renders a collection in flow style.
func (e *encoder) flow(n *yaml.Node) string {
	var b strings.Builder
	if props := e.props(n); props != "" {
		b.WriteString(props + " ")
	}
	switch n.Kind {
	case yaml.MappingNode:
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.key(n.Content[i]) + ": " + e.inline(n.Content[i+1]))
		}
		b.WriteByte('}')
	case yaml.SequenceNode:
		b.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.inline(c))
		}
		b.WriteByte(']')
	default:
		return e.inline(n)
	}
	return b.String()
}

func isEmptyOrFlow(n *yaml.Node) bool {
	return len(n.Content) == 0 || n.Style&yaml.FlowStyle != 0
}

func isBlockScalar(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0
}

func trailingComment(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return ""
	}
	if !strings.HasPrefix(c, "#") {
		c = "# " + c
	}
	return " " + c
}

func quoteDouble(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) || r == 0xfeff {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
