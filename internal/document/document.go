// Package document stores MediaMetadata as JSON. Unlike FFMETADATA the JSON
// form keeps the metadata version and is convenient to edit by hand:
//
//	{
//	  "version": "1",
//	  "tags": [["title", "Some Title"]],
//	  "chapters": [{"title": "Intro", "start_time": "00:00:00.000", "end_time": "00:01:30.000", "description": null}]
//	}
//
// Chapter times are HH:MM:SS.mmm strings rather than numbers.
package document

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/internal/timestamp"
	"github.com/mitchellh/mapstructure"
)

type tagPair [2]string

type chapter struct {
	Title       string              `json:"title" mapstructure:"title"`
	StartTime   timestamp.Timestamp `json:"start_time" mapstructure:"start_time"`
	EndTime     timestamp.Timestamp `json:"end_time" mapstructure:"end_time"`
	Description *string             `json:"description" mapstructure:"description"`
}

type document struct {
	Version  string    `json:"version" mapstructure:"version"`
	Tags     []tagPair `json:"tags" mapstructure:"tags"`
	Chapters []chapter `json:"chapters" mapstructure:"chapters"`
}

var (
	tagPairType = reflect.TypeOf(tagPair{})
	chapterType = reflect.TypeOf(chapter{})
)

func fromMetadata(m *metadata.MediaMetadata) document {
	doc := document{
		Version:  m.Version,
		Tags:     make([]tagPair, len(m.Tags)),
		Chapters: make([]chapter, len(m.Chapters)),
	}
	if doc.Version == "" {
		doc.Version = metadata.DefaultVersion
	}

	for i, tag := range m.Tags {
		doc.Tags[i] = tagPair{tag.Key, tag.Value}
	}

	for i, c := range m.Chapters {
		doc.Chapters[i] = chapter{Title: c.Title, StartTime: c.StartTime, EndTime: c.EndTime}
		if c.Description != "" {
			description := c.Description
			doc.Chapters[i].Description = &description
		}
	}

	return doc
}

func (doc document) toMetadata() *metadata.MediaMetadata {
	m := metadata.New(nil, nil)
	if doc.Version != "" {
		m.Version = doc.Version
	}

	for _, pair := range doc.Tags {
		m.Tags = append(m.Tags, metadata.Tag{Key: pair[0], Value: pair[1]})
	}

	for _, c := range doc.Chapters {
		mc := metadata.MediaChapter{Title: c.Title, StartTime: c.StartTime, EndTime: c.EndTime}
		if c.Description != nil {
			mc.Description = *c.Description
		}
		m.Chapters = append(m.Chapters, mc)
	}

	return m
}

// Marshal encodes m as an indented JSON document.
func Marshal(m *metadata.MediaMetadata) ([]byte, error) {
	out, err := json.MarshalIndent(fromMetadata(m), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata document: %w", err)
	}

	return out, nil
}

// chapterTimesHook parses the start_time and end_time of any JSON object
// carrying both keys through the timestamp codec. The rest of the object is
// left alone.
func chapterTimesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	object, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	rawStart, hasStart := object["start_time"]
	rawEnd, hasEnd := object["end_time"]
	if !hasStart || !hasEnd {
		if to == chapterType {
			return nil, fmt.Errorf("%w: chapter requires both start_time and end_time", errs.ErrFormat)
		}

		return data, nil
	}

	converted := make(map[string]any, len(object))
	for k, v := range object {
		converted[k] = v
	}

	for key, raw := range map[string]any{"start_time": rawStart, "end_time": rawEnd} {
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a HH:MM:SS.mmm string, found %v", errs.ErrFormat, key, raw)
		}

		ts, err := timestamp.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		converted[key] = ts
	}

	return converted, nil
}

// tagPairHook requires each tag to be a two element [key, value] array.
func tagPairHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != tagPairType {
		return data, nil
	}

	pair, ok := data.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("%w: tags must be [key, value] pairs, found %v", errs.ErrFormat, data)
	}

	return pair, nil
}

// Unmarshal decodes a JSON metadata document. A missing version defaults
// to "1"; chapter descriptions may be absent or null.
func Unmarshal(content []byte) (*metadata.MediaMetadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: metadata document is not a JSON object: %w", errs.ErrFormat, err)
	}

	var doc document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(chapterTimesHook, tagPairHook),
		Result:     &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("building document decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: decoding metadata document: %w", errs.ErrFormat, err)
	}

	for i, c := range doc.Chapters {
		if c.Title == "" {
			return nil, fmt.Errorf("%w: chapter #%d has no title", errs.ErrFormat, i)
		}
	}

	return doc.toMetadata(), nil
}

// Load reads and decodes a JSON metadata document from r.
func Load(r io.Reader) (*metadata.MediaMetadata, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading metadata document: %w", errs.ErrIO, err)
	}

	return Unmarshal(content)
}

// Dump encodes m and writes it to w, followed by a newline.
func Dump(w io.Writer, m *metadata.MediaMetadata) error {
	out, err := Marshal(m)
	if err != nil {
		return err
	}

	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("%w: writing metadata document: %w", errs.ErrIO, err)
	}

	return nil
}
