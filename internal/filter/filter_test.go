package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixitapp/fixit/store"
)

func TestApply(t *testing.T) {
	t.Run("Subject equality", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`subject == "math"`, find)
		require.NoError(t, err)
		assert.Equal(t, []string{"math"}, find.Subjects)
	})

	t.Run("Subject in list", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`subject in ["math", "physics"]`, find)
		require.NoError(t, err)
		assert.Equal(t, []string{"math", "physics"}, find.Subjects)
	})

	t.Run("Tag in list", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`tag in ["geometry"]`, find)
		require.NoError(t, err)
		assert.Equal(t, []string{"geometry"}, find.TagNames)
	})

	t.Run("Mastery bounds", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`mastery_level >= 1 && mastery_level <= 4`, find)
		require.NoError(t, err)
		require.NotNil(t, find.MasteryMin)
		require.NotNil(t, find.MasteryMax)
		assert.Equal(t, int32(1), *find.MasteryMin)
		assert.Equal(t, int32(4), *find.MasteryMax)
	})

	t.Run("Literal on the left flips the bound", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`2 <= mastery_level`, find)
		require.NoError(t, err)
		require.NotNil(t, find.MasteryMin)
		assert.Equal(t, int32(2), *find.MasteryMin)
		assert.Nil(t, find.MasteryMax)
	})

	t.Run("Content contains", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`content.contains("triangle")`, find)
		require.NoError(t, err)
		require.NotNil(t, find.ContentSearch)
		assert.Equal(t, "triangle", *find.ContentSearch)
	})

	t.Run("Conjunction combines constraints", func(t *testing.T) {
		find := &store.FindQuestion{}
		err := Apply(`subject == "math" && tag in ["geometry"] && mastery_level <= 2 && content.contains("angle")`, find)
		require.NoError(t, err)
		assert.Equal(t, []string{"math"}, find.Subjects)
		assert.Equal(t, []string{"geometry"}, find.TagNames)
		require.NotNil(t, find.MasteryMax)
		assert.Equal(t, int32(2), *find.MasteryMax)
		require.NotNil(t, find.ContentSearch)
	})

	t.Run("Empty expression is a no-op", func(t *testing.T) {
		find := &store.FindQuestion{}
		require.NoError(t, Apply("", find))
		assert.Equal(t, store.FindQuestion{}, *find)
	})

	t.Run("Rejected expressions leave find untouched", func(t *testing.T) {
		for _, expression := range []string{
			`subject != "math"`,              // unsupported operator
			`mastery_level == 3`,             // == only works on subject
			`unknown_field == "x"`,           // undeclared variable
			`subject == 3`,                   // type mismatch
			`subject in [1, 2]`,              // non-string list
			`tag.contains("x")`,              // contains only on content
			`subject == "a" || tag in ["b"]`, // disjunction unsupported
		} {
			find := &store.FindQuestion{}
			err := Apply(expression, find)
			assert.Error(t, err, "expression %q", expression)
			assert.Equal(t, store.FindQuestion{}, *find, "expression %q", expression)
		}
	})
}
