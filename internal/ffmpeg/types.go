package ffmpeg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hbomb79/ffmeta/internal/metadata"
)

// Tags is an ffprobe tag object, kept in the order ffprobe printed it.
type Tags []metadata.Tag

// UnmarshalJSON decodes a JSON object into Tags without losing key order.
// Non-string values are kept as their JSON text; nulls are dropped.
func (t *Tags) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	start, err := dec.Token()
	if err != nil {
		return err
	}
	if start == nil {
		*t = nil
		return nil
	}
	if delim, ok := start.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tags must be a JSON object, found %v", start)
	}

	var tags Tags
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("unexpected tag key %v", keyToken)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("tag %q: %w", key, err)
		}

		switch v := value.(type) {
		case nil:
			continue
		case string:
			tags = append(tags, metadata.Tag{Key: key, Value: v})
		case json.Number:
			tags = append(tags, metadata.Tag{Key: key, Value: v.String()})
		case bool:
			tags = append(tags, metadata.Tag{Key: key, Value: strconv.FormatBool(v)})
		default:
			return fmt.Errorf("tag %q has unsupported value %v", key, v)
		}
	}

	*t = tags
	return nil
}

// MarshalJSON writes the tags back out as a JSON object in order.
func (t Tags) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tag := range t {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, _ := json.Marshal(tag.Key)
		value, _ := json.Marshal(tag.Value)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Get returns the first value for key, ignoring case.
func (t Tags) Get(key string) (string, bool) {
	for _, tag := range t {
		if strings.EqualFold(tag.Key, key) {
			return tag.Value, true
		}
	}

	return "", false
}

type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	CodecType     string `json:"codec_type"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Tags          Tags   `json:"tags,omitempty"`
}

type Format struct {
	Filename       string `json:"filename"`
	StreamCount    int    `json:"nb_streams"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
	Tags           Tags   `json:"tags,omitempty"`
}

// Chapter is a chapter as ffprobe reports it. Start and End are in units
// of TimeBase; StartTime and EndTime are the same offsets in seconds.
type Chapter struct {
	ID        int64  `json:"id"`
	TimeBase  string `json:"time_base"`
	Start     int64  `json:"start"`
	StartTime string `json:"start_time"`
	End       int64  `json:"end"`
	EndTime   string `json:"end_time"`
	Tags      Tags   `json:"tags,omitempty"`
}

// ProbeResult is the decoded output of
// ffprobe -print_format json -show_format -show_streams -show_chapters.
// Format is nil when ffprobe printed no format section.
type ProbeResult struct {
	Streams  []Stream  `json:"streams"`
	Format   *Format   `json:"format"`
	Chapters []Chapter `json:"chapters"`
}

func (r *ProbeResult) streamsOfType(codecType string) []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if stream.CodecType == codecType {
			out = append(out, stream)
		}
	}

	return out
}

func (r *ProbeResult) AudioStreams() []Stream { return r.streamsOfType("audio") }
func (r *ProbeResult) VideoStreams() []Stream { return r.streamsOfType("video") }

// Duration returns the container duration ffprobe reported.
func (r *ProbeResult) Duration() (time.Duration, error) {
	if r.Format == nil || r.Format.Duration == "" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	seconds, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", r.Format.Duration, err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}
