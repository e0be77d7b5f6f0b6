package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_CleanText(t *testing.T) {
	res := Apply("hello, interested in this!")
	assert.False(t, res.WasFiltered)
	assert.Equal(t, "hello, interested in this!", res.Filtered)
	assert.Empty(t, res.Matches)
}

func TestApply_PhoneNumbers(t *testing.T) {
	cases := []string{
		"call me 01012345678",
		"my number is 010-1234-5678",
		"reach +201234567890 anytime",
	}
	for _, input := range cases {
		res := Apply(input)
		assert.True(t, res.WasFiltered, "input: %s", input)
		assert.Contains(t, res.Filtered, RedactionToken, "input: %s", input)
		assert.NotContains(t, res.Filtered, "12345678", "input: %s", input)
	}
}

func TestApply_Email(t *testing.T) {
	res := Apply("write to john.doe+sale@example.com please")
	assert.True(t, res.WasFiltered)
	assert.Equal(t, "write to "+RedactionToken+" please", res.Filtered)
	assert.Equal(t, "email", res.Matches[0].Category)
}

func TestApply_URLs(t *testing.T) {
	for _, input := range []string{
		"see https://shady.example.com/item",
		"check www.mysite.net now",
		"my shop is mysite.com",
	} {
		res := Apply(input)
		assert.True(t, res.WasFiltered, "input: %s", input)
		assert.Contains(t, res.Filtered, RedactionToken)
	}
}

func TestApply_SocialHandles(t *testing.T) {
	res := Apply("dm me @seller_123 or kakao: sellerguy")
	assert.True(t, res.WasFiltered)
	assert.NotContains(t, res.Filtered, "@seller_123")
	assert.NotContains(t, res.Filtered, "sellerguy")
}

func TestApply_MultipleCategories(t *testing.T) {
	res := Apply("email me at a@b.com or call 01012345678")
	assert.True(t, res.WasFiltered)
	assert.GreaterOrEqual(t, len(res.Matches), 2)
	assert.NotContains(t, res.Filtered, "a@b.com")
	assert.NotContains(t, res.Filtered, "01012345678")
	assert.Equal(t, 2, strings.Count(res.Filtered, RedactionToken))
}

func TestApply_Deterministic(t *testing.T) {
	input := "text me 010-1234-5678 or hit t.me is not here but @handle_x is"
	first := Apply(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Apply(input))
	}
}
