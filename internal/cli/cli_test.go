package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hbomb79/ffmeta/internal/cli"
	"github.com/hbomb79/ffmeta/internal/document"
	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/ffmetadata"
	"github.com/hbomb79/ffmeta/internal/ffmpeg"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	probed   *metadata.MediaMetadata
	warnings []ffmpeg.Warning

	written   *metadata.MediaMetadata
	source    string
	output    string
	overwrite bool
}

func (s *fakeService) ProbeMetadata(_ context.Context, path string) (*metadata.MediaMetadata, []ffmpeg.Warning, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, errs.ErrNotFound
	}

	return s.probed.Clone(), s.warnings, nil
}

func (s *fakeService) WriteMetadata(_ context.Context, m *metadata.MediaMetadata, source, output string, overwrite bool) (string, error) {
	s.written, s.source, s.output, s.overwrite = m, source, output, overwrite
	return output, nil
}

func sniffAs(category metadata.Category) cli.SniffFunc {
	return func(string, int) (metadata.Category, bool, error) { return category, category != "", nil }
}

type harness struct {
	service *fakeService
	dir     string
	out     bytes.Buffer
	log     bytes.Buffer
	sniff   cli.SniffFunc
}

func newHarness(t *testing.T, probed *metadata.MediaMetadata) *harness {
	dir := t.TempDir()
	config := "log_level: warning\nprobe_concurrency: 2\nencoder: test-encoder\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o644))

	return &harness{
		service: &fakeService{probed: probed},
		dir:     dir,
		sniff:   sniffAs(metadata.Audio),
	}
}

func (h *harness) file(t *testing.T, name, content string) string {
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) run(args ...string) error {
	app := cli.NewWithService(h.service, h.sniff)
	app.Writer = &h.out
	app.ErrWriter = &h.log

	return app.Run(append([]string{"ffmeta", "--no-color", "--config", filepath.Join(h.dir, "config.yaml")}, args...))
}

func sampleMetadata() *metadata.MediaMetadata {
	return metadata.New(
		[]metadata.Tag{{Key: "title", Value: "Song"}, {Key: "genre", Value: "Rock"}},
		[]metadata.MediaChapter{{Title: "Intro", StartTime: 0, EndTime: 1000}},
	)
}

func Test_Catalog(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.run("catalog", "--category", "audio"))

	out := h.out.String()
	assert.Contains(t, out, "Tags desired for audio files")
	assert.Contains(t, out, "genre")
	assert.Contains(t, out, "disc")
	assert.NotContains(t, out, "hd_video")

	h.out.Reset()
	require.NoError(t, h.run("catalog"))
	assert.Contains(t, h.out.String(), "written as author")

	assert.ErrorIs(t, h.run("catalog", "--category", "document"), errs.ErrInvalidArgument)
}

func Test_Probe(t *testing.T) {
	h := newHarness(t, sampleMetadata())
	media := h.file(t, "song.mp3", "media")

	require.NoError(t, h.run("probe", "--format", "ffmetadata", media))
	assert.Equal(t, ffmetadata.Dumps(sampleMetadata())+"\n", h.out.String())

	out := filepath.Join(h.dir, "song.json")
	require.NoError(t, h.run("probe", "--out", out, media))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	loaded, err := document.Unmarshal(content)
	require.NoError(t, err)
	assert.Equal(t, sampleMetadata(), loaded)

	assert.ErrorIs(t, h.run("probe", "--format", "xml", media), errs.ErrInvalidArgument)
	assert.ErrorIs(t, h.run("probe"), errs.ErrInvalidArgument)
}

func Test_Apply(t *testing.T) {
	t.Run("ffmetadata document", func(t *testing.T) {
		h := newHarness(t, nil)
		media := h.file(t, "song.mp3", "media")
		doc := h.file(t, "meta.txt", ";FFMETADATA\ntitle=New\nlanguage=EN\n\n[CHAPTER]\nSTART=0\nEND=10\ntitle=A\n")

		require.NoError(t, h.run("apply", "--metadata", doc, media))
		assert.Equal(t, []metadata.Tag{{Key: "title", Value: "New"}, {Key: "language", Value: "EN"}}, h.service.written.Tags)
		assert.Len(t, h.service.written.Chapters, 1)
		assert.Equal(t, ffmpeg.DefaultOutputPath(media), h.service.output)
		assert.False(t, h.service.overwrite)
	})

	t.Run("json document", func(t *testing.T) {
		h := newHarness(t, nil)
		media := h.file(t, "song.mp3", "media")
		doc := h.file(t, "meta.json", `{"tags": [["title", "Json"]]}`)
		out := filepath.Join(h.dir, "out.mp3")

		require.NoError(t, h.run("apply", "--metadata", doc, "--out", out, "--overwrite", media))
		assert.Equal(t, []metadata.Tag{{Key: "title", Value: "Json"}}, h.service.written.Tags)
		assert.Equal(t, out, h.service.output)
		assert.True(t, h.service.overwrite)
	})

	t.Run("invalid tags", func(t *testing.T) {
		h := newHarness(t, nil)
		media := h.file(t, "song.mp3", "media")
		doc := h.file(t, "meta.txt", ";FFMETADATA\nrating=9\n")

		assert.ErrorIs(t, h.run("apply", "--metadata", doc, media), errs.ErrValidation)
		assert.Nil(t, h.service.written)

		require.NoError(t, h.run("apply", "--metadata", doc, "--force", media))
		assert.NotNil(t, h.service.written)
	})

	t.Run("malformed document", func(t *testing.T) {
		h := newHarness(t, nil)
		media := h.file(t, "song.mp3", "media")
		doc := h.file(t, "meta.txt", ";FFMETADATA\n[CHAPTER]\ntitle=A\n[CHAPTER]\n")

		assert.ErrorIs(t, h.run("apply", "--metadata", doc, media), errs.ErrFormat)
	})
}

func Test_Edit(t *testing.T) {
	t.Run("tags and chapters", func(t *testing.T) {
		h := newHarness(t, sampleMetadata())
		media := h.file(t, "song.mp3", "media")

		require.NoError(t, h.run("edit",
			"--tag", "title=New, Improved",
			"--tag", "comment=a=b",
			"--remove-tag", "genre",
			"--clear-chapters",
			"--chapter", "1:00-2:00=Second",
			"--chapter", "0:00-1:00=First",
			media,
		))

		assert.Equal(t, []metadata.Tag{
			{Key: "title", Value: "New, Improved"},
			{Key: "comment", Value: "a=b"},
		}, h.service.written.Tags)
		assert.Equal(t, []metadata.MediaChapter{
			{Title: "First", StartTime: 0, EndTime: 60_000},
			{Title: "Second", StartTime: 60_000, EndTime: 120_000},
		}, h.service.written.Chapters)
	})

	t.Run("defaults", func(t *testing.T) {
		h := newHarness(t, sampleMetadata())
		media := h.file(t, "song.mp3", "media")

		envBefore, envSet := os.LookupEnv(metadata.EncoderEnv)
		require.NoError(t, h.run("edit", "--defaults", media))
		m := h.service.written

		envAfter, stillSet := os.LookupEnv(metadata.EncoderEnv)
		assert.Equal(t, envSet, stillSet, "configuring the encoder must not touch the environment")
		assert.Equal(t, envBefore, envAfter)

		encoder, ok := m.FirstTag(mustLookup(t, "encoder"))
		require.True(t, ok)
		assert.Equal(t, "test-encoder", encoder)

		_, ok = m.FirstTag(mustLookup(t, "creation_time"))
		assert.True(t, ok)

		_, ok = m.FirstTag(mustLookup(t, "track"))
		assert.False(t, ok, "track has no default")
	})

	t.Run("bad flags", func(t *testing.T) {
		h := newHarness(t, sampleMetadata())
		media := h.file(t, "song.mp3", "media")

		assert.ErrorIs(t, h.run("edit", "--tag", "novalue", media), errs.ErrInvalidArgument)
		assert.ErrorIs(t, h.run("edit", "--chapter", "0:00=Missing end", media), errs.ErrInvalidArgument)
		assert.ErrorIs(t, h.run("edit", "--chapter", "soon-later=Bad times", media), errs.ErrFormat)
		assert.Nil(t, h.service.written)
	})
}

func mustLookup(t *testing.T, key string) metadata.TagDefinition {
	def, ok := metadata.Lookup(key)
	require.True(t, ok)
	return def
}

func Test_Lint(t *testing.T) {
	t.Run("document with problems", func(t *testing.T) {
		h := newHarness(t, nil)
		doc := h.file(t, "meta.txt", ";FFMETADATA\ntitl=Song\nrating=9\n\n"+
			"[CHAPTER]\nSTART=0\nEND=100\ntitle=A\n\n[CHAPTER]\nSTART=50\nEND=200\ntitle=B\n")

		err := h.run("lint", doc)
		assert.ErrorIs(t, err, errs.ErrValidation)

		out := h.out.String()
		assert.Contains(t, out, "invalid  tag #1 (rating)")
		assert.Contains(t, out, "unknown  titl, did you mean title?")
		assert.Contains(t, out, "missing  title (Title)")
		assert.Contains(t, out, "chapter  chapter #1 overlaps")
	})

	t.Run("media files", func(t *testing.T) {
		h := newHarness(t, sampleMetadata())
		h.sniff = sniffAs(metadata.Video)
		h.service.warnings = []ffmpeg.Warning{{Chapter: 2, Message: "missing start_time or end_time, skipping"}}
		first := h.file(t, "a.mkv", "media")
		second := h.file(t, "b.mkv", "media")

		require.NoError(t, h.run("lint", first, second))

		out := h.out.String()
		assert.Contains(t, out, first+" (video)")
		assert.Contains(t, out, second+" (video)")
		assert.Less(t, strings.Index(out, first), strings.Index(out, second))
		assert.Contains(t, out, "missing  hd_video")
		assert.Contains(t, out, "skipped  chapter #2")
	})

	t.Run("clean document", func(t *testing.T) {
		h := newHarness(t, nil)
		doc := h.file(t, "meta.json", `{"tags": [
			["title", "T"], ["description", "D"], ["language", "EN"], ["encoder", "E"],
			["encoded_by", "B"], ["creation_time", "2021-06-01 18:30:00"], ["rating", "0"], ["copyright", "C"]
		]}`)

		require.NoError(t, h.run("lint", doc))
		assert.Contains(t, h.out.String(), "no problems found")
	})

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.ErrorIs(t, h.run("lint", filepath.Join(h.dir, "missing.mp3")), errs.ErrNotFound)
		assert.ErrorIs(t, h.run("lint"), errs.ErrInvalidArgument)
	})
}

func Test_New_RunsCommands(t *testing.T) {
	h := newHarness(t, nil)
	config := filepath.Join(h.dir, "config.yaml")

	for _, args := range [][]string{
		{"ffmeta", "--no-color", "--config", config, "catalog", "--category", "video"},
		{"ffmeta", "--no-color", "--config", config, "--verbose", "catalog"},
		{"ffmeta", "--version"},
	} {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			var out bytes.Buffer
			app := cli.New()
			app.Writer = &out
			app.ErrWriter = &h.log

			assert.NotPanics(t, func() { require.NoError(t, app.Run(args)) })
			assert.NotEmpty(t, out.String())
		})
	}
}

// lockedBuffer is written by the watch loop while the test reads it.
type lockedBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.buf.String()
}

func Test_Lint_Watch(t *testing.T) {
	h := newHarness(t, nil)
	doc := h.file(t, "meta.txt", ";FFMETADATA\nrating=9\n")

	var out, logs lockedBuffer
	app := cli.NewWithService(h.service, h.sniff)
	app.Writer = &out
	app.ErrWriter = &logs

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- app.RunContext(ctx, []string{"ffmeta", "--no-color", "--config", filepath.Join(h.dir, "config.yaml"), "lint", "--watch", doc})
	}()

	watching := func(n int) func() bool {
		return func() bool { return strings.Count(out.String(), "Watching 1 file(s)") >= n }
	}
	require.Eventually(t, watching(1), 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "invalid  tag #0 (rating)")
	assert.NotContains(t, out.String(), "no problems found")

	clean := ";FFMETADATA\ntitle=T\ndescription=D\nlanguage=EN\nencoder=E\nencoded_by=B\n" +
		"creation_time=2021-06-01 18:30:00\nrating=0\ncopyright=C\n"
	require.NoError(t, os.WriteFile(doc, []byte(clean), 0o644))

	require.Eventually(t, watching(2), 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "no problems found")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after its context was cancelled")
	}
}
