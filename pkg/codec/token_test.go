package codec_test

import (
	"strconv"
	"testing"

	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := codec.New(codec.IDNumeric)

	tokens := []codec.Token{
		codec.Category(codec.SelectorMovie),
		codec.Category(codec.SelectorSeries),
		codec.Category(codec.SelectorEnd),
		codec.Category(codec.SelectorContributor),
		codec.Category(codec.SelectorTitle),
		codec.Back(),
		codec.Related(codec.RelationSimilar, "42"),
		codec.Related(codec.RelationSimilar, "27205"),
		codec.Item("42"),
		codec.Item("27205"),
		codec.Item("10"),
		codec.Item("0"),
		codec.Item("1"),
		codec.Item("3"),
		codec.Item("4"),
		codec.Item("5"),
		codec.Item("6"),
		codec.Related(codec.RelationSimilar, "5"),
	}

	for _, tok := range tokens {
		t.Run(tok.String(), func(t *testing.T) {
			wire := c.Encode(tok)
			assert.Equal(t, tok, c.Decode(wire), "wire form %q", wire)
		})
	}
}

func TestCodec_RoundTrip_Opaque(t *testing.T) {
	c := codec.New(codec.IDOpaque)

	for _, tok := range []codec.Token{
		codec.Item("tt1375666"),
		codec.Item("#tt1"),
		codec.Item("4"),
		codec.Related(codec.RelationSimilar, "tt1375666"),
		codec.Back(),
		codec.Category(codec.SelectorMovie),
	} {
		assert.Equal(t, tok, c.Decode(c.Encode(tok)))
	}
}

func TestCodec_WireFormat(t *testing.T) {
	c := codec.New(codec.IDNumeric)

	assert.Equal(t, "0", c.Encode(codec.Category(codec.SelectorMovie)))
	assert.Equal(t, "1", c.Encode(codec.Category(codec.SelectorSeries)))
	assert.Equal(t, "4", c.Encode(codec.Back()))
	assert.Equal(t, "1-42", c.Encode(codec.Related(codec.RelationSimilar, "42")))
	assert.Equal(t, "42", c.Encode(codec.Item("42")))
}

func TestCodec_Malformed(t *testing.T) {
	c := codec.New(codec.IDNumeric)

	inputs := []string{
		"",
		"   ",
		"1-",
		"-42",
		"1_42",
		"1--42",
		"2-42",
		"9-42",
		"1-abc",
		"abc",
		"42abc",
		"01-42",
		"1-4 2",
		"#",
		"#abc",
		"#1-5",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var tok codec.Token
			assert.NotPanics(t, func() { tok = c.Decode(in) })
			assert.Equal(t, codec.KindMalformed, tok.Kind)
			assert.Equal(t, in, tok.Raw)
		})
	}
}

func TestCodec_Opaque_RejectsSeparatorAndSpace(t *testing.T) {
	c := codec.New(codec.IDOpaque)

	assert.Equal(t, codec.KindMalformed, c.Decode("1-a b").Kind)
	assert.Equal(t, codec.KindMalformed, c.Decode("tt-1").Kind)
	assert.Equal(t, codec.KindItem, c.Decode("abc").Kind)

	assert.Error(t, c.Validate("has-dash"))
	assert.Error(t, c.Validate(""))
	assert.NoError(t, c.Validate("tt1375666"))
}

func TestCodec_ReservedValues(t *testing.T) {
	c := codec.New(codec.IDNumeric)

	assert.Equal(t, codec.Back(), c.Decode("4"))
	assert.True(t, c.Decode("0").Is(codec.SelectorMovie))
	assert.True(t, c.Decode("3").Is(codec.SelectorEnd))
	// Unreserved small numbers are plain items.
	assert.Equal(t, codec.Item(domain.ItemID("2")), c.Decode("2"))
	// Non-canonical spellings of reserved values are not categories.
	assert.Equal(t, codec.Item(domain.ItemID("04")), c.Decode("04"))

	// Items whose ids collide with a reserved value are escaped.
	assert.Equal(t, "#5", c.Encode(codec.Item("5")))
	assert.Equal(t, codec.Item(domain.ItemID("5")), c.Decode("#5"))
	assert.NotEqual(t, c.Encode(codec.Category(codec.SelectorContributor)), c.Encode(codec.Item("5")))
	assert.Equal(t, "1-5", c.Encode(codec.Related(codec.RelationSimilar, "5")))
}

func TestCodec_EncodeIsInjective(t *testing.T) {
	for _, c := range []codec.Codec{codec.New(codec.IDNumeric), codec.New(codec.IDOpaque)} {
		tokens := []codec.Token{codec.Back()}
		for _, sel := range []codec.Selector{codec.SelectorMovie, codec.SelectorSeries, codec.SelectorEnd, codec.SelectorContributor, codec.SelectorTitle} {
			tokens = append(tokens, codec.Category(sel))
		}
		for i := 0; i < 20; i++ {
			id := domain.ItemID(strconv.Itoa(i))
			tokens = append(tokens, codec.Item(id), codec.Related(codec.RelationSimilar, id))
		}

		seen := make(map[string]codec.Token, len(tokens))
		for _, tok := range tokens {
			wire := c.Encode(tok)
			if prev, dup := seen[wire]; dup {
				t.Fatalf("%v and %v both encode to %q", prev, tok, wire)
			}
			seen[wire] = tok
			assert.Equal(t, tok, c.Decode(wire))
		}
	}
}

func TestParseIDShape(t *testing.T) {
	shape, err := codec.ParseIDShape("")
	assert.NoError(t, err)
	assert.Equal(t, codec.IDNumeric, shape)

	shape, err = codec.ParseIDShape("Opaque")
	assert.NoError(t, err)
	assert.Equal(t, codec.IDOpaque, shape)

	_, err = codec.ParseIDShape("uuid")
	assert.Error(t, err)
}
