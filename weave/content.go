package weave

import "bytes"

// ContentResult is the sum type returned by Discrete operations: exactly one
// of One or Two holds, mirroring the source's DiscreteContentResult enum
// (there is no native sum type in Go, so the discriminant is explicit).
type ContentResult[T any] struct {
	one         T
	left, right T
	isOne       bool
}

// OneResult wraps a single surviving value — used when a split/merge did not
// produce two halves.
func OneResult[T any](v T) ContentResult[T] {
	return ContentResult[T]{one: v, isOne: true}
}

// TwoResult wraps a pair of values — used when a split/merge left two halves
// (including the identity case where a merge refuses and hands back its
// original arguments unchanged).
func TwoResult[T any](left, right T) ContentResult[T] {
	return ContentResult[T]{left: left, right: right}
}

// One returns the wrapped value and true if this result is a One.
func (r ContentResult[T]) One() (T, bool) {
	return r.one, r.isOne
}

// Two returns the wrapped pair and true if this result is a Two.
func (r ContentResult[T]) Two() (T, T, bool) {
	return r.left, r.right, !r.isOne
}

// Discrete is satisfied by payloads that support structural split and merge
// (§3 ContentKinds). Split at position 0 or past the end must return One(self);
// Merge must be the left-inverse of Split at the split point.
type Discrete[T any] interface {
	Split(at int) ContentResult[T]
	Merge(other T) ContentResult[T]
}

// Deduplicatable is satisfied by payloads that support a symmetric
// duplicate-of predicate.
type Deduplicatable[T any] interface {
	IsDuplicateOf(other T) bool
}

// Content is the constraint TreeWeave/DagWeave place on a payload type: the
// reference payload (NodeContent) needs both Discrete and Deduplicatable
// capabilities simultaneously (split_node/merge_with_parent and
// find_duplicates both operate over the same T), and Go's type parameters
// can't express "T satisfies either of two independent capabilities" cleanly
// — so the two are combined into a single constraint that any concrete
// payload type must satisfy in full.
type Content[T any] interface {
	Discrete[T]
	Deduplicatable[T]
}

// ContentKind discriminates the two shapes a node's inner content may take.
type ContentKind int

const (
	KindSnippet ContentKind = iota
	KindTokens
)

// Token is one element of a Tokens-shaped InnerContent: a labeled byte run.
type Token struct {
	Bytes    []byte
	Metadata *OrderedStringMap
	Modified bool
}

func (t Token) clone() Token {
	return Token{Bytes: append([]byte(nil), t.Bytes...), Metadata: t.Metadata.Clone(), Modified: t.Modified}
}

// equal compares everything but the Modified marker — per §9, that marker
// aids downstream consumers but is not part of dedup equality.
func (t Token) equal(other Token) bool {
	return bytes.Equal(t.Bytes, other.Bytes) && t.Metadata.Equal(other.Metadata)
}

// InnerContent is the byte-bearing payload shape: either a flat Snippet or a
// Tokens list. Split/Merge implement §4.1's ContentOps exactly.
type InnerContent struct {
	Kind   ContentKind
	Bytes  []byte  // valid when Kind == KindSnippet
	Tokens []Token // valid when Kind == KindTokens
}

// Snippet builds a byte-snippet InnerContent.
func Snippet(b []byte) InnerContent {
	return InnerContent{Kind: KindSnippet, Bytes: b}
}

// TokensContent builds a token-list InnerContent.
func TokensContent(tokens []Token) InnerContent {
	return InnerContent{Kind: KindTokens, Tokens: tokens}
}

// Len returns the total byte length of the content.
func (c InnerContent) Len() int {
	switch c.Kind {
	case KindSnippet:
		return len(c.Bytes)
	default:
		n := 0
		for _, t := range c.Tokens {
			n += len(t.Bytes)
		}
		return n
	}
}

// AsBytes flattens the content to its concatenated byte sequence.
func (c InnerContent) AsBytes() []byte {
	switch c.Kind {
	case KindSnippet:
		return append([]byte(nil), c.Bytes...)
	default:
		var out []byte
		for _, t := range c.Tokens {
			out = append(out, t.Bytes...)
		}
		return out
	}
}

func (c InnerContent) clone() InnerContent {
	switch c.Kind {
	case KindSnippet:
		return InnerContent{Kind: KindSnippet, Bytes: append([]byte(nil), c.Bytes...)}
	default:
		tokens := make([]Token, len(c.Tokens))
		for i, t := range c.Tokens {
			tokens[i] = t.clone()
		}
		return InnerContent{Kind: KindTokens, Tokens: tokens}
	}
}

// Split implements §4.1's split: at 0 or past the end returns One(self);
// otherwise a byte snippet splits at the offset, and a token list splits
// either on a token boundary or, if the offset falls mid-token, by carving
// the spanning token in two (never dropping tokens).
func (c InnerContent) Split(at int) ContentResult[InnerContent] {
	if at <= 0 {
		return OneResult(c)
	}
	switch c.Kind {
	case KindSnippet:
		if at >= len(c.Bytes) {
			return OneResult(c)
		}
		left := append([]byte(nil), c.Bytes[:at]...)
		right := append([]byte(nil), c.Bytes[at:]...)
		return TwoResult(Snippet(left), Snippet(right))
	default:
		if at >= c.Len() {
			return OneResult(c)
		}
		offset := 0
		location := -1
		for i, t := range c.Tokens {
			if offset+len(t.Bytes) > at {
				location = i
				break
			}
			offset += len(t.Bytes)
		}
		if location < 0 {
			return OneResult(c)
		}
		left := make([]Token, location)
		for i := 0; i < location; i++ {
			left[i] = c.Tokens[i].clone()
		}
		right := make([]Token, len(c.Tokens)-location)
		for i := range right {
			right[i] = c.Tokens[location+i].clone()
		}
		splitAt := at - offset
		leftBytes := append([]byte(nil), right[0].Bytes[:splitAt]...)
		rightBytes := append([]byte(nil), right[0].Bytes[splitAt:]...)
		if len(leftBytes) != 0 {
			left = append(left, Token{
				Bytes:    leftBytes,
				Metadata: right[0].Metadata.Clone(),
				Modified: true,
			})
			right[0].Modified = true
		}
		right[0].Bytes = rightBytes
		return TwoResult(TokensContent(left), TokensContent(right))
	}
}

// Merge implements §4.1's merge: same-shape payloads concatenate;
// cross-shape payloads fail, returning the arguments unchanged via Two.
func (c InnerContent) Merge(other InnerContent) ContentResult[InnerContent] {
	if c.Kind != other.Kind {
		return TwoResult(c, other)
	}
	switch c.Kind {
	case KindSnippet:
		merged := append(append([]byte(nil), c.Bytes...), other.Bytes...)
		return OneResult(Snippet(merged))
	default:
		merged := make([]Token, 0, len(c.Tokens)+len(other.Tokens))
		for _, t := range c.Tokens {
			merged = append(merged, t.clone())
		}
		for _, t := range other.Tokens {
			merged = append(merged, t.clone())
		}
		return OneResult(TokensContent(merged))
	}
}

// CreatorKind discriminates who authored a node's content.
type CreatorKind int

const (
	CreatorModel CreatorKind = iota
	CreatorHuman
)

// Model describes a language model as the creator of a node's content.
type Model struct {
	Label      string
	Identifier *Id
	Metadata   *OrderedStringMap
}

func (m *Model) clone() *Model {
	if m == nil {
		return nil
	}
	var id *Id
	if m.Identifier != nil {
		v := *m.Identifier
		id = &v
	}
	return &Model{Label: m.Label, Identifier: id, Metadata: m.Metadata.Clone()}
}

func (m *Model) equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Label != other.Label {
		return false
	}
	if (m.Identifier == nil) != (other.Identifier == nil) {
		return false
	}
	if m.Identifier != nil && *m.Identifier != *other.Identifier {
		return false
	}
	return m.Metadata.Equal(other.Metadata)
}

// Author describes a human as the creator of a node's content.
type Author struct {
	Label      string
	Identifier *Id
}

func (a *Author) equal(other *Author) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.Label != other.Label {
		return false
	}
	if (a.Identifier == nil) != (other.Identifier == nil) {
		return false
	}
	return a.Identifier == nil || *a.Identifier == *other.Identifier
}

func (a *Author) clone() *Author {
	if a == nil {
		return nil
	}
	var id *Id
	if a.Identifier != nil {
		v := *a.Identifier
		id = &v
	}
	return &Author{Label: a.Label, Identifier: id}
}

// Creator tags a node's content as authored by a Model or a human Author.
type Creator struct {
	Kind   CreatorKind
	Model  *Model
	Author *Author
}

func (c *Creator) clone() *Creator {
	if c == nil {
		return nil
	}
	return &Creator{Kind: c.Kind, Model: c.Model.clone(), Author: c.Author.clone()}
}

func (c *Creator) equal(other *Creator) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case CreatorModel:
		return c.Model.equal(other.Model)
	default:
		return c.Author.equal(other.Author)
	}
}

// NodeContent is the reference application payload named in §3: a record of
// {inner content, free-form attributes, optional creator}, plus a modified
// marker set by Split/Merge to aid downstream consumers.
type NodeContent struct {
	Modified bool
	Content  InnerContent
	Metadata *OrderedStringMap
	Creator  *Creator
}

var (
	_ Discrete[NodeContent]       = NodeContent{}
	_ Deduplicatable[NodeContent] = NodeContent{}
	_ Content[NodeContent]        = NodeContent{}
)

// Split carries attributes and creator unchanged to both halves; a genuine
// Two marks both halves Modified.
func (c NodeContent) Split(at int) ContentResult[NodeContent] {
	result := c.Content.Split(at)
	left, right, isTwo := result.Two()
	if !isTwo {
		center, _ := result.One()
		c.Content = center
		return OneResult(c)
	}
	leftContent := c
	leftContent.Content = left
	leftContent.Modified = true

	rightContent := NodeContent{
		Modified: true,
		Content:  right,
		Metadata: c.Metadata.Clone(),
		Creator:  c.Creator.clone(),
	}
	return TwoResult(leftContent, rightContent)
}

// Merge succeeds (One) iff both records' attributes and creator compare
// equal and their inner contents are of the same shape; otherwise it fails,
// returning both arguments unchanged via Two.
func (c NodeContent) Merge(other NodeContent) ContentResult[NodeContent] {
	if !c.Metadata.Equal(other.Metadata) || !c.Creator.equal(other.Creator) {
		return TwoResult(c, other)
	}
	result := c.Content.Merge(other.Content)
	left, right, isTwo := result.Two()
	if isTwo {
		c.Content = left
		other.Content = right
		return TwoResult(c, other)
	}
	center, _ := result.One()
	c.Content = center
	c.Modified = true
	return OneResult(c)
}

// IsDuplicateOf is structural equality over the record's content, metadata
// and creator. The Modified flag is deliberately excluded: §9 notes it aids
// downstream consumers but is not part of dedup equality for the reference
// content kind, even though it is a plain field the source's derived
// PartialEq would otherwise have compared.
func (c NodeContent) IsDuplicateOf(other NodeContent) bool {
	if c.Content.Kind != other.Content.Kind {
		return false
	}
	switch c.Content.Kind {
	case KindSnippet:
		if !bytes.Equal(c.Content.Bytes, other.Content.Bytes) {
			return false
		}
	default:
		if len(c.Content.Tokens) != len(other.Content.Tokens) {
			return false
		}
		for i, t := range c.Content.Tokens {
			if !t.equal(other.Content.Tokens[i]) {
				return false
			}
		}
	}
	if !c.Metadata.Equal(other.Metadata) {
		return false
	}
	return c.Creator.equal(other.Creator)
}

// Clone returns a deep copy of the content record.
func (c NodeContent) Clone() NodeContent {
	return NodeContent{
		Modified: c.Modified,
		Content:  c.Content.clone(),
		Metadata: c.Metadata.Clone(),
		Creator:  c.Creator.clone(),
	}
}
