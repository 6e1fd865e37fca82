package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())

	SetLevel("WARN")
	assert.Equal(t, zerolog.WarnLevel, Log.GetLevel())

	SetLevel("verbose")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}

func TestSetFormatKeepsLevel(t *testing.T) {
	t.Cleanup(func() {
		SetFormat("console")
		SetLevel("info")
	})

	SetLevel("error")
	SetFormat("json")
	assert.Equal(t, zerolog.ErrorLevel, Log.GetLevel())

	SetFormat("xml")
	assert.Equal(t, zerolog.ErrorLevel, Log.GetLevel())
}
