package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/springjools/ombibot/pkg/domain"
)

// Separator joins a relation marker and an item id in Related tokens.
const Separator = "-"

// ItemEscape prefixes item ids that would otherwise read as a reserved value
// (TheMovieDB has films with ids 3, 5 and 6) or that begin with ItemEscape.
const ItemEscape = "#"

// Kind tags the variant of a Token.
type Kind int

const (
	KindMalformed Kind = iota
	KindCategory
	KindBack
	KindRelated
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindBack:
		return "back"
	case KindRelated:
		return "related"
	case KindItem:
		return "item"
	default:
		return "malformed"
	}
}

// Selector is a category value. The numbering follows the callback values the
// bot has always used, so buttons rendered by older releases stay decodable.
type Selector int

const (
	SelectorMovie       Selector = 0
	SelectorSeries      Selector = 1
	SelectorEnd         Selector = 3
	SelectorContributor Selector = 5
	SelectorTitle       Selector = 6
)

// backValue is the wire value of the Back token.
const backValue = 4

func (s Selector) String() string {
	switch s {
	case SelectorMovie:
		return "movie"
	case SelectorSeries:
		return "series"
	case SelectorEnd:
		return "end"
	case SelectorContributor:
		return "contributor"
	case SelectorTitle:
		return "title"
	default:
		return "selector(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Selector) known() bool {
	switch s {
	case SelectorMovie, SelectorSeries, SelectorEnd, SelectorContributor, SelectorTitle:
		return true
	}
	return false
}

// Relation is the kind marker of a Related token.
type Relation int

// RelationSimilar marks "items similar to <id>".
const RelationSimilar Relation = 1

func (r Relation) known() bool {
	return r == RelationSimilar
}

// Token is a decoded action. Only the fields of its Kind are set; Raw is
// populated for Malformed tokens only.
type Token struct {
	Kind     Kind
	Selector Selector
	Relation Relation
	Item     domain.ItemID
	Raw      string
}

// Category builds a category token.
func Category(s Selector) Token {
	return Token{Kind: KindCategory, Selector: s}
}

// Back builds the navigation token.
func Back() Token {
	return Token{Kind: KindBack}
}

// Related builds a related-to token.
func Related(r Relation, id domain.ItemID) Token {
	return Token{Kind: KindRelated, Relation: r, Item: id}
}

// Item builds a raw item token.
func Item(id domain.ItemID) Token {
	return Token{Kind: KindItem, Item: id}
}

// Malformed builds the token returned for undecodable input.
func Malformed(raw string) Token {
	return Token{Kind: KindMalformed, Raw: raw}
}

// Is reports whether t is the category token for s.
func (t Token) Is(s Selector) bool {
	return t.Kind == KindCategory && t.Selector == s
}

func (t Token) String() string {
	switch t.Kind {
	case KindCategory:
		return t.Selector.String()
	case KindBack:
		return "back"
	case KindRelated:
		return fmt.Sprintf("related(%d,%s)", t.Relation, t.Item)
	case KindItem:
		return "item(" + string(t.Item) + ")"
	default:
		return fmt.Sprintf("malformed(%q)", t.Raw)
	}
}

// IDShape is the identifier syntax a deployment's catalog uses.
type IDShape int

const (
	// IDNumeric accepts ASCII decimal ids (TheMovieDB ids).
	IDNumeric IDShape = iota
	// IDOpaque accepts any non-empty id without the separator or whitespace.
	IDOpaque
)

// ParseIDShape maps a config value ("numeric", "opaque") to an IDShape.
func ParseIDShape(s string) (IDShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "numeric":
		return IDNumeric, nil
	case "opaque":
		return IDOpaque, nil
	}
	return IDNumeric, fmt.Errorf("unknown id shape %q", s)
}

// Codec converts tokens to and from their wire form.
// The zero value decodes numeric ids.
type Codec struct {
	Shape IDShape
}

// New returns a codec for the given id shape.
func New(shape IDShape) Codec {
	return Codec{Shape: shape}
}

// Encode renders t in wire form. Malformed tokens encode to their raw input.
func (c Codec) Encode(t Token) string {
	switch t.Kind {
	case KindCategory:
		return strconv.Itoa(int(t.Selector))
	case KindBack:
		return strconv.Itoa(backValue)
	case KindRelated:
		return strconv.Itoa(int(t.Relation)) + Separator + string(t.Item)
	case KindItem:
		if id := string(t.Item); reserved(id) || strings.HasPrefix(id, ItemEscape) {
			return ItemEscape + id
		}
		return string(t.Item)
	default:
		return t.Raw
	}
}

// Decode parses a wire token. It never fails: undecodable input yields Malformed.
// Reserved values are categories or Back; items carrying such ids arrive
// escaped with ItemEscape.
func (c Codec) Decode(raw string) Token {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Malformed(raw)
	}

	if n, ok := canonicalInt(s); ok {
		if n == backValue {
			return Back()
		}
		if sel := Selector(n); sel.known() {
			return Category(sel)
		}
	}

	if id, escaped := strings.CutPrefix(s, ItemEscape); escaped {
		if !c.validID(id) {
			return Malformed(raw)
		}
		return Item(domain.ItemID(id))
	}

	if marker, rest, found := strings.Cut(s, Separator); found {
		n, err := strconv.Atoi(marker)
		if err != nil || strconv.Itoa(n) != marker || !Relation(n).known() {
			return Malformed(raw)
		}
		if !c.validID(rest) {
			return Malformed(raw)
		}
		return Related(Relation(n), domain.ItemID(rest))
	}

	if c.validID(s) {
		return Item(domain.ItemID(s))
	}
	return Malformed(raw)
}

// Validate reports whether id can be carried in Item and Related tokens.
func (c Codec) Validate(id domain.ItemID) error {
	if !c.validID(string(id)) {
		return fmt.Errorf("item id %q is not a valid %s id", id, c.shapeName())
	}
	return nil
}

func (c Codec) validID(s string) bool {
	if s == "" {
		return false
	}
	switch c.Shape {
	case IDOpaque:
		if strings.Contains(s, Separator) {
			return false
		}
		return !strings.ContainsFunc(s, unicode.IsSpace)
	default:
		return isDigits(s)
	}
}

// reserved reports whether s is the wire form of a category or Back.
func reserved(s string) bool {
	n, ok := canonicalInt(s)
	return ok && (n == backValue || Selector(n).known())
}

func canonicalInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && strconv.Itoa(n) == s
}

func (c Codec) shapeName() string {
	if c.Shape == IDOpaque {
		return "opaque"
	}
	return "numeric"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
