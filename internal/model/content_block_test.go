package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestTextBlockVersionsAppend(t *testing.T) {
	block := NewTextBlock("ent", "pfafflab@gmail.com", "first draft")
	require.Equal(t, 1, block.VersionCount())

	latest, err := block.LatestText()
	require.NoError(t, err)
	assert.Equal(t, TextVersion("first draft"), latest)

	require.NoError(t, block.AppendVersion("second draft", "pfafflab@gmail.com"))
	require.Equal(t, 2, block.VersionCount())

	latest, err = block.LatestText()
	require.NoError(t, err)
	assert.Equal(t, TextVersion("second draft"), latest)
}

func TestAppendVersionSkipsNoopEdits(t *testing.T) {
	block := NewTextBlock("ent", "marcos@qubit.zone", "same")
	require.NoError(t, block.AppendVersion("same", "marcos@qubit.zone"))
	assert.Equal(t, 1, block.VersionCount())

	// same content from a different author still counts as an edit
	require.NoError(t, block.AppendVersion("same", "other@qubit.zone"))
	assert.Equal(t, 2, block.VersionCount())
}

func TestVersionCountNeverDecreases(t *testing.T) {
	block := NewTextBlock("ent", "a@b.c", "v0")
	last := block.VersionCount()
	for i := 0; i < 5; i++ {
		require.NoError(t, block.AppendVersion("v"+string(rune('1'+i)), "a@b.c"))
		count := block.VersionCount()
		assert.GreaterOrEqual(t, count, last)
		last = count
	}
}

func TestImageBlockLatest(t *testing.T) {
	block := NewImageBlock("ent", "a@b.c", "media/abc.png", "Resonator sweep")

	latest, err := block.LatestImage()
	require.NoError(t, err)
	assert.Equal(t, ImageVersion{Key: "media/abc.png", Title: "Resonator sweep"}, latest)

	require.NoError(t, block.AppendVersion([]string{"media/def.png", "Resonator sweep v2"}, "a@b.c"))
	latest, err = block.LatestImage()
	require.NoError(t, err)
	assert.Equal(t, "media/def.png", latest.Key)
}

func TestImageBlockMalformedVersion(t *testing.T) {
	block := &ContentBlock{
		ID:        "img",
		BlockType: BlockTypeImage,
		Content:   datatypes.JSON(`[["only-a-key"]]`),
	}

	_, err := block.LatestImage()
	assert.ErrorIs(t, err, ErrMalformedVersion)
}

func TestLatestOnWrongFamily(t *testing.T) {
	text := NewTextBlock("ent", "a@b.c", "words")
	_, err := text.LatestImage()
	assert.ErrorIs(t, err, ErrUnknownBlockType)

	image := NewImageBlock("ent", "a@b.c", "k", "t")
	_, err = image.LatestText()
	assert.ErrorIs(t, err, ErrUnknownBlockType)
}

func TestEntityOrderRoundTrip(t *testing.T) {
	entity := NewEntity("Qubit calibration", "a@b.c", TypeTask, "parent-id")
	entity.AddChild("child-1")
	entity.AppendOrder("block-1", KindContentBlock)

	assert.Equal(t, []string{"child-1"}, entity.ChildIDs())
	entries := entity.OrderEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, OrderEntry{ID: "child-1", Kind: KindEntity}, entries[0])
	assert.Equal(t, OrderEntry{ID: "block-1", Kind: KindContentBlock}, entries[1])
}

func TestEntityRenameKeepsHistory(t *testing.T) {
	entity := NewEntity("old name", "a@b.c", TypeProject, "")
	entity.Rename("new name")

	assert.Equal(t, "new name", entity.Name)
	assert.Contains(t, string(entity.PreviousNames), "old name")
}
