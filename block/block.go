// Package block implements the ID-headed block format shared by every
// corpus file: a header line, field lines, list fields, and nested
// signature records.
package block

import (
	"regexp"
	"strings"
)

var headerPattern = regexp.MustCompile(`^\[([A-Za-z]+-[A-Za-z0-9_-]+)\]\s*$`)
var fieldPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*):(.*)$`)
var listItemPattern = regexp.MustCompile(`^\s*-\s+(.*)$`)

// Kind distinguishes the shape of a field value.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSignatures
)

// SignatureRecord is a nested modal-constraint record inside a decision
// block, keyed by the documented convention (subject/predicate/object/
// domain/axis/modality/scope/composes_with/enforcement). Parse stores
// whatever keys actually appear, including ones outside that convention.
type SignatureRecord map[string]string

// Enforcement reports the enforcement level of a signature record, or ""
// if absent.
func (s SignatureRecord) Enforcement() string { return s["enforcement"] }

// Value is a tagged variant: a scalar string, an ordered list of strings,
// or an ordered list of signature records. Exactly one of the three
// payload fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Str   string
	List  []string
	Sigs  []SignatureRecord
}

func StringValue(s string) *Value               { return &Value{Kind: KindString, Str: s} }
func ListValue(items []string) *Value            { return &Value{Kind: KindList, List: items} }
func SignaturesValue(sigs []SignatureRecord) *Value { return &Value{Kind: KindSignatures, Sigs: sigs} }

// Block is the atomic corpus record: an ID header plus an ordered set of
// fields. FieldOrder preserves the order fields were first seen, since
// callers like the supersede_decision op walk it to enumerate a block's
// Signature fields.
type Block struct {
	ID         string
	Fields     map[string]*Value
	FieldOrder []string

	SourceFile  string
	SourceLabel string
	SourceLine  int
}

// Get returns the raw Value for a field name, or nil if absent.
func (b *Block) Get(name string) *Value {
	return b.Fields[name]
}

// Str returns a scalar field's string value, or "" if the field is absent
// or not a scalar.
func (b *Block) Str(name string) string {
	v := b.Fields[name]
	if v == nil || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// List returns a list field's items, or nil if the field is absent or not
// a list.
func (b *Block) List(name string) []string {
	v := b.Fields[name]
	if v == nil || v.Kind != KindList {
		return nil
	}
	return v.List
}

// Signatures returns a field's signature records, or nil if absent.
func (b *Block) Signatures(name string) []SignatureRecord {
	v := b.Fields[name]
	if v == nil || v.Kind != KindSignatures {
		return nil
	}
	return v.Sigs
}

// Set assigns a field, appending it to FieldOrder if new.
func (b *Block) Set(name string, v *Value) {
	if b.Fields == nil {
		b.Fields = map[string]*Value{}
	}
	if _, exists := b.Fields[name]; !exists {
		b.FieldOrder = append(b.FieldOrder, name)
	}
	b.Fields[name] = v
}

// AppendListItem appends item to an existing or new list field.
func (b *Block) AppendListItem(name, item string) {
	v := b.Fields[name]
	if v == nil || v.Kind != KindList {
		b.Set(name, ListValue([]string{item}))
		return
	}
	v.List = append(v.List, item)
}

// Status returns the block's Status field, defaulting to "" if absent.
func (b *Block) Status() string { return b.Str("Status") }

// idPrefixes maps the closed ID-prefix namespace to a human block type.
var idPrefixes = []struct {
	prefix string
	typ    string
}{
	{"D-", "decision"},
	{"T-", "task"},
	{"P-", "proposal"},
	{"C-", "contradiction"},
	{"SIG-", "signal"},
	{"I-", "impact"},
	{"PRJ-", "project"},
	{"PER-", "person"},
	{"TOOL-", "tool"},
	{"INC-", "incident"},
}

// HeaderID reports the block ID of a header line, or ok=false if line is
// not a header. Exported for op executors that manipulate files as raw
// lines rather than through Parse.
func HeaderID(line string) (string, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// TypeOf classifies an ID by its prefix, matching the longest prefix
// first so e.g. "INC-" is not shadowed by a hypothetical "I-" collision.
func TypeOf(id string) string {
	best := ""
	bestLen := -1
	for _, p := range idPrefixes {
		if strings.HasPrefix(id, p.prefix) && len(p.prefix) > bestLen {
			best, bestLen = p.typ, len(p.prefix)
		}
	}
	return best
}

// Parse reads a block-structured text file into an ordered sequence of
// blocks, tagging each with its source file, label, and starting line.
func Parse(text, sourceFile, sourceLabel string) ([]*Block, error) {
	lines := strings.Split(text, "\n")
	var blocks []*Block
	var cur *Block
	var curFieldName string
	var sigBuf []string
	inSig := false

	flushSig := func() {
		if cur == nil || !inSig || len(sigBuf) == 0 {
			sigBuf = nil
			inSig = false
			return
		}
		rec := SignatureRecord{}
		for _, l := range sigBuf {
			if m := fieldPattern.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
				rec[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
			}
		}
		if len(rec) > 0 {
			v := cur.Fields[curFieldName]
			if v == nil || v.Kind != KindSignatures {
				v = SignaturesValue(nil)
				cur.Set(curFieldName, v)
			}
			v.Sigs = append(v.Sigs, rec)
		}
		sigBuf = nil
		inSig = false
	}

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "---" {
			flushSig()
			continue
		}

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flushSig()
			if cur != nil {
				blocks = append(blocks, cur)
			}
			cur = &Block{
				ID:          m[1],
				Fields:      map[string]*Value{},
				SourceFile:  sourceFile,
				SourceLabel: sourceLabel,
				SourceLine:  i + 1,
			}
			curFieldName = ""
			continue
		}

		if cur == nil {
			continue // preamble before first header is ignored
		}

		if trimmed == "" {
			flushSig()
			continue
		}

		// Indented key: value lines under any current field (Signature,
		// Ops, ...) form a record of that field; a blank line, a "---"
		// line or an unindented line closes the record.
		if strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t") {
			if curFieldName != "" {
				inSig = true
				sigBuf = append(sigBuf, trimmed)
				continue
			}
		}
		flushSig()

		if m := listItemPattern.FindStringSubmatch(line); m != nil && curFieldName != "" {
			cur.AppendListItem(curFieldName, strings.TrimSpace(m[1]))
			continue
		}

		if m := fieldPattern.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			val := strings.TrimSpace(m[2])
			curFieldName = name
			if val == "" {
				// Could become a list field or a signature group; defer
				// classification to whichever continuation lines follow.
				if _, exists := cur.Fields[name]; !exists {
					cur.FieldOrder = append(cur.FieldOrder, name)
				}
				continue
			}
			cur.Set(name, StringValue(val))
			continue
		}
	}
	flushSig()
	if cur != nil {
		blocks = append(blocks, cur)
	}
	return blocks, nil
}
