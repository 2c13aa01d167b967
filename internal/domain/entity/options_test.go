package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFlagsFlattening(t *testing.T) {
	opts := NewOptions(
		Option{Key: "faceSwapperModel", Values: []string{"inswapper_128"}},
		Option{Key: "processors", Values: []string{"face_swapper", "face_enhancer"}},
	)

	assert.Equal(t, []string{
		"--face-swapper-model", "inswapper_128",
		"--processors", "face_swapper", "face_enhancer",
	}, opts.Flags())
}

func TestOptionsFlagsSkipMediaTypeOutput(t *testing.T) {
	opts := NewOptions(
		Option{Key: OptionMediaTypeOutput, Values: []string{"video"}},
		Option{Key: "pixelBoost", Values: []string{"512x512"}},
	)

	assert.Equal(t, []string{"--pixel-boost", "512x512"}, opts.Flags())
}

func TestFlagName(t *testing.T) {
	cases := map[string]string{
		"faceSwapperModel": "face-swapper-model",
		"processors":       "processors",
		"pixel-boost":      "pixel-boost",
		"outputQuality":    "output-quality",
	}
	for key, want := range cases {
		assert.Equal(t, want, flagName(key), key)
	}
}

func TestOptionsUnmarshalPreservesOrder(t *testing.T) {
	raw := `{"faceSwapperModel":"inswapper_128","processors":["face_swapper","face_enhancer"],"outputQuality":90,"skipAudio":true}`

	var opts Options
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))

	assert.Equal(t, []string{
		"--face-swapper-model", "inswapper_128",
		"--processors", "face_swapper", "face_enhancer",
		"--output-quality", "90",
		"--skip-audio", "true",
	}, opts.Flags())
}

func TestOptionsUnmarshalRejectsNested(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`{"bad":{"nested":1}}`), &opts)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"bad":[["x"]]}`), &opts)
	assert.Error(t, err)
}

func TestOptionsMergeOverridesInPlace(t *testing.T) {
	defaults := DefaultOptions()

	var req Options
	require.NoError(t, json.Unmarshal([]byte(`{"faceSwapperModel":"inswapper_256","frameProcessorThreads":4}`), &req))

	merged := defaults.Merge(req)

	got, ok := merged.Get("faceSwapperModel")
	require.True(t, ok)
	assert.Equal(t, []string{"inswapper_256"}, got)

	// Overridden keys keep their default position; new keys append.
	flags := merged.Flags()
	assert.Equal(t, "--frame-processor-threads", flags[len(flags)-2])
	assert.Equal(t, "4", flags[len(flags)-1])

	// Defaults are untouched by the merge.
	orig, ok := defaults.Get("faceSwapperModel")
	require.True(t, ok)
	assert.Equal(t, []string{"inswapper_128"}, orig)
}

func TestOptionsMediaTypeOutput(t *testing.T) {
	assert.Equal(t, MediaKindImage, DefaultOptions().MediaTypeOutput())

	video := NewOptions(Option{Key: OptionMediaTypeOutput, Values: []string{"video"}})
	assert.Equal(t, MediaKindVideo, video.MediaTypeOutput())

	empty := Options{}
	assert.Equal(t, MediaKindImage, empty.MediaTypeOutput())
}

func TestOptionsSetReplacesInPlace(t *testing.T) {
	opts := NewOptions(
		Option{Key: "a", Values: []string{"1"}},
		Option{Key: "b", Values: []string{"2"}},
	)
	opts.Set("a", "9")

	assert.Equal(t, []string{"--a", "9", "--b", "2"}, opts.Flags())
}

func TestOptionsMarshalRoundTrip(t *testing.T) {
	raw := `{"faceSwapperModel":"inswapper_128","processors":["face_swapper","face_enhancer"]}`

	var opts Options
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))

	out, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
