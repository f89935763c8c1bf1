package logger_test

import (
	"bytes"
	"testing"

	"github.com/hbomb79/ffmeta/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func Test_Emit_RespectsMinimumLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	logger.SetColorEnabled(false)
	logger.SetMinLoggingLevel(logger.WARNING.Level())
	t.Cleanup(func() { logger.SetMinLoggingLevel(logger.INFO.Level()) })

	log := logger.Get("Test")
	log.Emit(logger.DEBUG, "hidden\n")
	log.Emit(logger.WARNING, "shown %d\n", 42)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[Test]")
	assert.Contains(t, buf.String(), "(!) shown 42")
}

func Test_ParseStatus(t *testing.T) {
	status, err := logger.ParseStatus("Debug")
	assert.NoError(t, err)
	assert.Equal(t, logger.DEBUG, status)

	_, err = logger.ParseStatus("loud")
	assert.Error(t, err)
}
