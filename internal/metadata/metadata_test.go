package metadata_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLookup(t *testing.T, key string) metadata.TagDefinition {
	def, ok := metadata.Lookup(key)
	require.Truef(t, ok, "catalog should define %s", key)
	return def
}

func Test_DefinedTags(t *testing.T) {
	m := metadata.New([]metadata.Tag{{Key: "title", Value: "X"}, {Key: "bogus_key", Value: "Y"}}, nil)

	var pairs []string
	for def, value := range m.DefinedTags() {
		pairs = append(pairs, def.Key+"="+value)
	}

	assert.Equal(t, []string{"title=X"}, pairs)

	var unknown []metadata.Tag
	for tag := range m.UnknownTags() {
		unknown = append(unknown, tag)
	}
	assert.Equal(t, []metadata.Tag{{Key: "bogus_key", Value: "Y"}}, unknown)
}

func Test_FindTags(t *testing.T) {
	m := metadata.New([]metadata.Tag{
		{Key: "GENRE", Value: "Rock"},
		{Key: "title", Value: "Song"},
		{Key: "genre", Value: "Punk"},
	}, nil)

	genre := mustLookup(t, "genre")
	assert.Equal(t, []string{"Rock", "Punk"}, slices.Collect(m.FindTags(genre)))

	first, ok := m.FirstTag(genre)
	assert.True(t, ok)
	assert.Equal(t, "Rock", first)

	_, ok = m.FirstTag(mustLookup(t, "lyrics"))
	assert.False(t, ok)
}

func Test_SetTag_RemoveTags(t *testing.T) {
	m := metadata.New([]metadata.Tag{{Key: "Title", Value: "Old"}, {Key: "genre", Value: "A"}, {Key: "GENRE", Value: "B"}}, nil)

	m.SetTag("title", "New")
	m.SetTag("comment", "hello")
	assert.Equal(t, []metadata.Tag{
		{Key: "Title", Value: "New"},
		{Key: "genre", Value: "A"},
		{Key: "GENRE", Value: "B"},
		{Key: "comment", Value: "hello"},
	}, m.Tags)

	assert.Equal(t, 2, m.RemoveTags("genre"))
	assert.Equal(t, 0, m.RemoveTags("genre"))
	assert.Equal(t, []metadata.Tag{{Key: "Title", Value: "New"}, {Key: "comment", Value: "hello"}}, m.Tags)
}

func Test_Clone_IsIndependent(t *testing.T) {
	m := metadata.New([]metadata.Tag{{Key: "title", Value: "A"}}, []metadata.MediaChapter{{Title: "One"}})
	clone := m.Clone()
	clone.Tags[0].Value = "B"
	clone.Chapters[0].Title = "Two"

	assert.Equal(t, "A", m.Tags[0].Value)
	assert.Equal(t, "One", m.Chapters[0].Title)
	assert.Equal(t, metadata.DefaultVersion, clone.Version)
}

func Test_ValidateTags(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		m := metadata.New([]metadata.Tag{{Key: "language", Value: "EN"}, {Key: "unknown", Value: "??"}}, nil)
		assert.NoError(t, m.ValidateTags())
	})

	t.Run("reports every invalid tag", func(t *testing.T) {
		m := metadata.New([]metadata.Tag{
			{Key: "language", Value: "english"},
			{Key: "title", Value: "fine"},
			{Key: "rating", Value: "9"},
		}, nil)

		err := m.ValidateTags()
		require.Error(t, err)
		assert.True(t, metadata.IsTagError(err))
		assert.ErrorIs(t, err, errs.ErrValidation)

		var tagErrs metadata.TagErrors
		require.True(t, errors.As(err, &tagErrs))
		require.Len(t, tagErrs, 2)
		assert.Equal(t, 0, tagErrs[0].Index)
		assert.Equal(t, "language", tagErrs[0].Key)
		assert.Equal(t, 2, tagErrs[1].Index)
		assert.Equal(t, "rating", tagErrs[1].Key)
	})
}

func Test_MissingTags(t *testing.T) {
	m := metadata.New([]metadata.Tag{
		{Key: "title", Value: "A"},
		{Key: "description", Value: "B"},
		{Key: "language", Value: "EN"},
		{Key: "encoder", Value: "ffmeta"},
		{Key: "encoded_by", Value: "me"},
		{Key: "creation_time", Value: "2021-06-01 18:30:00"},
		{Key: "RATING", Value: "0"},
		{Key: "genre", Value: "Rock"},
	}, nil)

	assert.Equal(t, []string{"copyright", "track", "disc"}, collectKeys(m.MissingTags(metadata.Audio)))
	assert.Equal(t, []string{"copyright", "hd_video"}, collectKeys(m.MissingTags(metadata.Video)))
}

func Test_ForWriting(t *testing.T) {
	m := metadata.New([]metadata.Tag{
		{Key: "artist", Value: "Someone"},
		{Key: "sort_album", Value: "Album"},
		{Key: "title", Value: "Song"},
		{Key: "custom", Value: "kept"},
	}, nil)

	out := m.ForWriting()
	assert.Equal(t, []metadata.Tag{
		{Key: "author", Value: "Someone"},
		{Key: "album-sort", Value: "Album"},
		{Key: "title", Value: "Song"},
		{Key: "custom", Value: "kept"},
	}, out.Tags)
	assert.Equal(t, "artist", m.Tags[0].Key)
}

func Test_SortChapters(t *testing.T) {
	m := metadata.New(nil, []metadata.MediaChapter{
		{Title: "C", StartTime: 500},
		{Title: "A", StartTime: 0},
		{Title: "B1", StartTime: 250},
		{Title: "B2", StartTime: 250},
	})
	m.SortChapters()

	var titles []string
	for _, c := range m.Chapters {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"A", "B1", "B2", "C"}, titles)
}

func Test_ChapterIssues(t *testing.T) {
	chapter := func(start, end int64) metadata.MediaChapter {
		return metadata.MediaChapter{Title: "x", StartTime: timestamp.FromMilliseconds(start), EndTime: timestamp.FromMilliseconds(end)}
	}

	tests := []struct {
		summary  string
		chapters []metadata.MediaChapter
		expected []metadata.ChapterIssue
	}{
		{"contiguous", []metadata.MediaChapter{chapter(0, 100), chapter(100, 200)}, nil},
		{"gap", []metadata.MediaChapter{chapter(0, 100), chapter(150, 200)}, []metadata.ChapterIssue{{Kind: metadata.Gap, Index: 1, Amount: 50}}},
		{"overlap", []metadata.MediaChapter{chapter(0, 100), chapter(80, 200)}, []metadata.ChapterIssue{{Kind: metadata.Overlap, Index: 1, Amount: 20}}},
		{"inverted", []metadata.MediaChapter{chapter(100, 40)}, []metadata.ChapterIssue{{Kind: metadata.Inverted, Index: 0, Amount: 60}}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			m := metadata.New(nil, tt.chapters)
			assert.Equal(t, tt.expected, m.ChapterIssues())
		})
	}

	issue := metadata.ChapterIssue{Kind: metadata.Gap, Index: 3, Amount: 1500}
	assert.Equal(t, "chapter #3 leaves a gap of 00:00:01.500 after the previous chapter", issue.String())
}
