package metadata

import (
	"iter"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/google/uuid"
	"github.com/hbomb79/ffmeta/internal/validators"
)

// DefaultProvider produces a suggested value for a tag. Providers only read
// the clock or the environment.
type DefaultProvider func() string

// TagDefinition describes a tag key that ffmpeg understands. Definitions
// are owned by the catalog and must be treated as read-only.
type TagDefinition struct {
	Key         string
	Title       string
	Description string
	Examples    []string
	Validators  []validators.Validator
	WriteKey    string
	Default     DefaultProvider
}

// Validate runs every validator of the definition against value. The
// returned error, if any, is a *validators.ValidationError listing all of
// the problems found.
func (def TagDefinition) Validate(value string) error {
	return validators.Run(value, def.Validators...)
}

// WriteName is the key the tag should be written under, which for a few
// tags differs from the key ffprobe reports it as.
func (def TagDefinition) WriteName() string {
	if def.WriteKey != "" {
		return def.WriteKey
	}

	return def.Key
}

// DefaultValue invokes the definition's default provider, if it has one.
func (def TagDefinition) DefaultValue() (string, bool) {
	if def.Default == nil {
		return "", false
	}

	return def.Default(), true
}

// Defaults replaces the catalog's default providers for some tags, keyed by
// lowercase tag key.
type Defaults map[string]DefaultProvider

// DefaultValueWith is DefaultValue, but prefers the provider in overrides
// when one exists for this definition.
func (def TagDefinition) DefaultValueWith(overrides Defaults) (string, bool) {
	if provider, ok := overrides[strings.ToLower(def.Key)]; ok && provider != nil {
		return provider(), true
	}

	return def.DefaultValue()
}

const CreationTimeLayout = "2006-01-02 15:04:05"

// EncoderEnv names the environment variable consulted for the suggested
// "encoder" tag value.
const EncoderEnv = "FFMETA_ENCODER"

func encoderDefault() string {
	if name := os.Getenv(EncoderEnv); name != "" {
		return name
	}

	return "ffmeta"
}

func creationTimeDefault() string { return time.Now().UTC().Format(CreationTimeLayout) }
func encodedByDefault() string    { return os.Getenv("USER") }
func episodeUIDDefault() string   { return uuid.NewString() }

// A suite of tags that are recognized by FFmpeg. FFmpeg documents these
// poorly; the Kodi video tagging wiki is the better reference:
// https://kodi.wiki/view/Video_file_tagging
var catalog = buildCatalog([]TagDefinition{
	{Key: "album_artist", Title: "Album Artist", Description: "Name of the album artist"},
	{Key: "album", Title: "Album Title", Description: "Name of the album"},
	{Key: "sort_album", Title: "Sorting Album Title", Description: "Name of the album to use for sorting", WriteKey: "album-sort"},
	{Key: "artist", Title: "Artist Name", Description: "Name of the artist", WriteKey: "author"},
	{Key: "sort_artist", Title: "Sorting Artist Name", Description: "Name of the artist to use for sorting", WriteKey: "artist-sort"},
	{Key: "comment", Title: "Comment", Description: "General comments"},
	{Key: "compilation", Title: "Compilation", Description: "Name of the compilation the content is a part of"},
	{Key: "copyright", Title: "Copyright", Description: "Copyright information"},
	{
		Key:         "creation_time",
		Title:       "Encoded Time",
		Description: "Datetime when the content was encoded",
		Examples:    []string{"2021-06-01 18:30:00"},
		Validators:  []validators.Validator{validators.DateFormat(CreationTimeLayout)},
		Default:     creationTimeDefault,
	},
	{
		Key:         "date",
		Title:       "Release Date",
		Description: "The date the content was released",
		Validators:  []validators.Validator{validators.DateFormat("2006-01-02")},
	},
	{
		Key:         "year",
		Title:       "Release Year",
		Description: "The year the content was released",
		Validators:  []validators.Validator{validators.DateFormat("2006")},
	},
	{Key: "encoded_by", Title: "Encoded By", Description: "Name of the person or company who encoded the content", Default: encodedByDefault},
	{Key: "encoder", Title: "Encoder", Description: "Name of the software used for encoding", Default: encoderDefault},
	{Key: "episode_id", Title: "Episode ID", Description: "The unique ID of the episode"},
	{
		Key:         "episode_sort",
		Title:       "Episode Number",
		Description: "The episode number within the season",
		Validators:  []validators.Validator{validators.Pattern(`\d+`)},
	},
	{
		Key:         "season_number",
		Title:       "Season Number",
		Description: "The season number of a show",
		Validators:  []validators.Validator{validators.Pattern(`\d+`)},
	},
	{
		Key:         "genre",
		Title:       "Genre",
		Description: "The genre of the content",
		Examples:    []string{"Alternative", "Lo-fi", "Punk", "Rock", "Classic Blues"},
	},
	{Key: "grouping", Title: "Grouping", Description: "The name of the group this content belongs to"},
	{
		Key:         "hd_video",
		Title:       "Video Quality",
		Description: "A flag used to mark the general quality of a video",
		Examples:    []string{"0 = SD", "1 = 720p", "2 = 1080p/i Full HD", "3 = 2160p UHD"},
		Validators:  []validators.Validator{validators.Choice("0", "1", "2", "3")},
	},
	{
		Key:         "language",
		Title:       "Language",
		Description: "Language identifier for the original/displayed language (ISO 639-1)",
		Examples:    []string{"EN", "JA", "ZH"},
		Validators:  []validators.Validator{validators.Pattern(`[A-Z]{2}`)},
	},
	{Key: "lyrics", Title: "Lyrics", Description: "Unsynchronized lyrics"},
	{
		Key:         "media_type",
		Title:       "Media Type",
		Description: "The type of the content",
		Examples:    []string{"TV Show", "Movie", "Music", "Podcast"},
	},
	{Key: "network", Title: "Network", Description: "The name of the network who owns the content"},
	{Key: "publisher", Title: "Publisher", Description: "The name of a publisher"},
	{Key: "producer", Title: "Producer", Description: "The name of a producer"},
	{Key: "performer", Title: "Performer", Description: "The name of a performer"},
	{Key: "composer", Title: "Composer", Description: "The name of a composer"},
	{Key: "director", Title: "Director", Description: "The name of a director"},
	{Key: "show", Title: "Show", Description: "The name of the show the episode belongs to"},
	{
		Key:         "synopsis",
		Title:       "Synopsis",
		Description: "Short description of the content",
		Validators:  []validators.Validator{validators.MaxLength(240)},
	},
	{Key: "description", Title: "Description", Description: "Long description of the content"},
	{Key: "title", Title: "Title", Description: "Title of the content"},
	{Key: "sort_name", Title: "Sorting Title", Description: "Title of the content to use for sorting", WriteKey: "title-sort"},
	{Key: "subtitle", Title: "Subtitle", Description: "Subtitle of the content"},
	{
		Key:         "track",
		Title:       "Track",
		Description: "The track identifier for the content",
		Examples:    []string{"Track Number / Total Tracks"},
		Validators:  []validators.Validator{validators.Pattern(`^\d+\/\d+$`)},
	},
	{
		Key:         "disc",
		Title:       "Disc",
		Description: "The disc identifier for the content",
		Examples:    []string{"Disc Number / Total Discs"},
		Validators:  []validators.Validator{validators.Pattern(`^\d+\/\d+$`)},
	},
	{
		Key:         "rating",
		Title:       "Advisory Rating",
		Description: "A flag that is used to mark explicit content",
		Examples:    []string{"0 = None", "1 = Clean", "2 = Explicit"},
		Validators:  []validators.Validator{validators.Choice("0", "1", "2")},
	},
	{
		Key:         "location",
		Title:       "Location",
		Description: "GPS coordinates related to the content",
		Examples:    []string{"+90.0,-127.554334", "45,180", "045,180", "-90.,-180."},
		Validators:  []validators.Validator{validators.Pattern(`^((\-?|\+?)?\d+(\.\d+)?),\s*((\-?|\+?)?\d+(\.\d+)?)$`)},
	},
	{Key: "keywords", Title: "Keywords", Description: "Generic keywords separated by commas"},
	{Key: "URL", Title: "URL", Description: "A URL that is related to the content"},
	{
		Key:         "podcast",
		Title:       "Podcast Flag",
		Description: "A flag that indicates if some audio content is a podcast",
		Examples:    []string{"0 = Not Podcast", "1 = Is Podcast"},
		Validators:  []validators.Validator{validators.Choice("0", "1")},
	},
	{Key: "category", Title: "Podcast Category", Description: "The name of the category the podcast belongs to"},
	{Key: "episode_uid", Title: "Podcast Episode", Description: "The unique ID for the podcast episode", Default: episodeUIDDefault},
})

// Tags every media item should carry, in the order they are presented.
var requiredKeys = []string{
	"title",
	"description",
	"language",
	"encoder",
	"encoded_by",
	"creation_time",
	"rating",
	"copyright",
}

// Additional tags desired per media category, following the required tags.
var desiredKeys = map[Category][]string{
	Video: {"hd_video"},
	Audio: {"genre", "track", "disc"},
}

func buildCatalog(definitions []TagDefinition) map[string]TagDefinition {
	out := make(map[string]TagDefinition, len(definitions))
	for _, def := range definitions {
		out[strings.ToLower(def.Key)] = def
	}

	return out
}

// Lookup finds the definition for a tag key, ignoring case.
func Lookup(key string) (TagDefinition, bool) {
	def, ok := catalog[strings.ToLower(key)]
	return def, ok
}

func mustLookup(key string) TagDefinition {
	def, ok := Lookup(key)
	if !ok {
		panic("tag catalog is missing definition for " + key)
	}

	return def
}

// Definitions yields every catalog entry ordered by key.
func Definitions() iter.Seq[TagDefinition] {
	return func(yield func(TagDefinition) bool) {
		for _, key := range slices.Sorted(maps.Keys(catalog)) {
			if !yield(catalog[key]) {
				return
			}
		}
	}
}

// RequiredTags yields the definitions every media item should carry.
func RequiredTags() iter.Seq[TagDefinition] {
	return func(yield func(TagDefinition) bool) {
		for _, key := range requiredKeys {
			if !yield(mustLookup(key)) {
				return
			}
		}
	}
}

// DesiredTags yields the required definitions followed by those desired
// for the category given. Unknown categories yield only the required set.
func DesiredTags(category Category) iter.Seq[TagDefinition] {
	return func(yield func(TagDefinition) bool) {
		for def := range RequiredTags() {
			if !yield(def) {
				return
			}
		}

		for _, key := range desiredKeys[category] {
			if !yield(mustLookup(key)) {
				return
			}
		}
	}
}

const suggestionThreshold = 0.6

// Suggest returns the catalog definition whose key most resembles key, for
// use in "did you mean" hints. Nothing is returned when no key is similar
// enough.
func Suggest(key string) (TagDefinition, bool) {
	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	var (
		best      TagDefinition
		bestScore float64
	)
	for def := range Definitions() {
		score := strutil.Similarity(key, def.Key, metric)
		if score > bestScore {
			best, bestScore = def, score
		}
	}

	if bestScore < suggestionThreshold {
		return TagDefinition{}, false
	}

	return best, true
}
