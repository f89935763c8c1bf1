package metadata

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/hbomb79/ffmeta/internal/timestamp"
)

const DefaultVersion = "1"

// Tag is a single key/value pair. Keys may repeat within a document.
type Tag struct {
	Key   string
	Value string
}

// MediaChapter is a titled range of the media timeline. An empty
// Description means the chapter has none.
type MediaChapter struct {
	Title       string
	Description string
	StartTime   timestamp.Timestamp
	EndTime     timestamp.Timestamp
}

// MediaMetadata holds a media item's tags and chapters. Tag order is the
// order they were read in and is preserved when writing; chapters are kept
// in start order by convention only.
type MediaMetadata struct {
	Version  string
	Tags     []Tag
	Chapters []MediaChapter
}

func New(tags []Tag, chapters []MediaChapter) *MediaMetadata {
	return &MediaMetadata{Version: DefaultVersion, Tags: tags, Chapters: chapters}
}

// Clone returns a deep copy of the metadata.
func (m *MediaMetadata) Clone() *MediaMetadata {
	return &MediaMetadata{
		Version:  m.Version,
		Tags:     slices.Clone(m.Tags),
		Chapters: slices.Clone(m.Chapters),
	}
}

// FindTags yields, in document order, the value of every tag whose key
// matches the definition's key (ignoring case).
func (m *MediaMetadata) FindTags(def TagDefinition) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, tag := range m.Tags {
			if strings.EqualFold(tag.Key, def.Key) && !yield(tag.Value) {
				return
			}
		}
	}
}

// FirstTag returns the first value found for the definition, if any.
func (m *MediaMetadata) FirstTag(def TagDefinition) (string, bool) {
	for value := range m.FindTags(def) {
		return value, true
	}

	return "", false
}

// DefinedTags yields each tag that has a catalog definition, paired with
// that definition, in document order. Tags with unknown keys are skipped.
func (m *MediaMetadata) DefinedTags() iter.Seq2[TagDefinition, string] {
	return func(yield func(TagDefinition, string) bool) {
		for _, tag := range m.Tags {
			def, ok := Lookup(tag.Key)
			if !ok {
				continue
			}

			if !yield(def, tag.Value) {
				return
			}
		}
	}
}

// UnknownTags yields the tags that have no catalog definition.
func (m *MediaMetadata) UnknownTags() iter.Seq[Tag] {
	return func(yield func(Tag) bool) {
		for _, tag := range m.Tags {
			if _, ok := Lookup(tag.Key); ok {
				continue
			}

			if !yield(tag) {
				return
			}
		}
	}
}

// SetTag replaces the value of the first tag with a matching key (ignoring
// case), or appends a new tag if there is none.
func (m *MediaMetadata) SetTag(key, value string) {
	for i, tag := range m.Tags {
		if strings.EqualFold(tag.Key, key) {
			m.Tags[i].Value = value
			return
		}
	}

	m.Tags = append(m.Tags, Tag{Key: key, Value: value})
}

// RemoveTags drops every tag with a matching key, returning how many were
// removed.
func (m *MediaMetadata) RemoveTags(key string) int {
	before := len(m.Tags)
	m.Tags = slices.DeleteFunc(m.Tags, func(tag Tag) bool { return strings.EqualFold(tag.Key, key) })
	return before - len(m.Tags)
}

// MissingTags yields the desired definitions for the category which have
// no value in this document.
func (m *MediaMetadata) MissingTags(category Category) iter.Seq[TagDefinition] {
	return func(yield func(TagDefinition) bool) {
		for def := range DesiredTags(category) {
			if _, found := m.FirstTag(def); found {
				continue
			}

			if !yield(def) {
				return
			}
		}
	}
}

// TagError associates a validation failure with the tag it was found on.
type TagError struct {
	Index int
	Key   string
	Err   error
}

func (e TagError) Error() string {
	return fmt.Sprintf("tag #%d (%s): %s", e.Index, e.Key, e.Err.Error())
}

func (e TagError) Unwrap() error { return e.Err }

// TagErrors is returned by ValidateTags when one or more tags fail.
type TagErrors []TagError

func (e TagErrors) Error() string {
	messages := make([]string, len(e))
	for i, tagErr := range e {
		messages[i] = tagErr.Error()
	}

	return strings.Join(messages, "\n")
}

func (e TagErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, tagErr := range e {
		out[i] = tagErr
	}

	return out
}

// ValidateTags checks every defined tag against its catalog validators,
// collecting every failure. Unknown tags are not validated.
func (m *MediaMetadata) ValidateTags() error {
	var failures TagErrors
	for i, tag := range m.Tags {
		def, ok := Lookup(tag.Key)
		if !ok {
			continue
		}

		if err := def.Validate(tag.Value); err != nil {
			failures = append(failures, TagError{Index: i, Key: tag.Key, Err: err})
		}
	}

	if len(failures) == 0 {
		return nil
	}

	return failures
}

// IsTagError reports whether err came from ValidateTags.
func IsTagError(err error) bool {
	var tagErrs TagErrors
	return errors.As(err, &tagErrs)
}

// ForWriting returns a copy of the metadata in which each defined tag is
// keyed by its write name (e.g. "artist" becomes "author").
func (m *MediaMetadata) ForWriting() *MediaMetadata {
	out := m.Clone()
	for i, tag := range out.Tags {
		if def, ok := Lookup(tag.Key); ok {
			out.Tags[i].Key = def.WriteName()
		}
	}

	return out
}

// SortChapters orders the chapters by start time, keeping the relative
// order of chapters that start together.
func (m *MediaMetadata) SortChapters() {
	slices.SortStableFunc(m.Chapters, func(a, b MediaChapter) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})
}
