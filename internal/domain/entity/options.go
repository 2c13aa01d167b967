package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OptionMediaTypeOutput selects the output artifact kind ("image" or
// "video"). It is consumed by the pipeline to pick the output extension and
// is never forwarded to the engine.
const OptionMediaTypeOutput = "mediaTypeOutput"

// Recognized option keys and their effect on the engine invocation:
//
//	processors       --processors, one token per element
//	faceSwapperModel --face-swapper-model
//	faceEnhancerModel --face-enhancer-model
//	pixelBoost       --pixel-boost
//	mediaTypeOutput  consumed by the pipeline, not forwarded
//
// Unrecognized keys pass through unchanged (camelCase key -> kebab-case
// flag) so the service stays compatible with the engine's evolving flag set.

// Option is one engine option with its stringified value tokens.
type Option struct {
	Key    string
	Values []string
}

// Options is an insertion-ordered option mapping. Flag order in the engine
// invocation follows the order keys were set, so JSON decoding preserves
// the request's key order.
type Options struct {
	opts []Option
}

// NewOptions builds an Options from the given entries, preserving order.
func NewOptions(opts ...Option) Options {
	return Options{opts: append([]Option(nil), opts...)}
}

// DefaultOptions returns the processing defaults applied to every job.
// Callers receive a fresh copy; the defaults are never mutated in place.
func DefaultOptions() Options {
	return NewOptions(
		Option{Key: "processors", Values: []string{"face_swapper", "face_enhancer"}},
		Option{Key: "faceEnhancerModel", Values: []string{"gfpgan_1.4"}},
		Option{Key: "faceSwapperModel", Values: []string{"inswapper_128"}},
		Option{Key: "pixelBoost", Values: []string{"512x512"}},
		Option{Key: OptionMediaTypeOutput, Values: []string{string(MediaKindImage)}},
	)
}

// Set replaces the value of an existing key in place, keeping its position,
// or appends a new entry.
func (o *Options) Set(key string, values ...string) {
	for i := range o.opts {
		if o.opts[i].Key == key {
			o.opts[i].Values = append([]string(nil), values...)
			return
		}
	}
	o.opts = append(o.opts, Option{Key: key, Values: append([]string(nil), values...)})
}

// Get returns the value tokens for key.
func (o Options) Get(key string) ([]string, bool) {
	for _, opt := range o.opts {
		if opt.Key == key {
			return opt.Values, true
		}
	}
	return nil, false
}

func (o Options) Len() int {
	return len(o.opts)
}

// Clone returns a deep copy.
func (o Options) Clone() Options {
	opts := make([]Option, len(o.opts))
	for i, opt := range o.opts {
		opts[i] = Option{Key: opt.Key, Values: append([]string(nil), opt.Values...)}
	}
	return Options{opts: opts}
}

// Merge overlays other onto a copy of o: existing keys keep their position
// with the overriding value, new keys append in their own order.
func (o Options) Merge(other Options) Options {
	merged := o.Clone()
	for _, opt := range other.opts {
		merged.Set(opt.Key, opt.Values...)
	}
	return merged
}

// MediaTypeOutput returns the requested output kind, defaulting to image.
func (o Options) MediaTypeOutput() MediaKind {
	if v, ok := o.Get(OptionMediaTypeOutput); ok && len(v) > 0 && MediaKind(v[0]) == MediaKindVideo {
		return MediaKindVideo
	}
	return MediaKindImage
}

// Flags flattens the options into engine CLI tokens: one flag per key,
// scalar values as a single token, array values as one token per element.
// The mediaTypeOutput control option is skipped.
func (o Options) Flags() []string {
	flags := make([]string, 0, len(o.opts)*2)
	for _, opt := range o.opts {
		if opt.Key == OptionMediaTypeOutput {
			continue
		}
		flags = append(flags, "--"+flagName(opt.Key))
		flags = append(flags, opt.Values...)
	}
	return flags
}

// flagName converts a camelCase option key to its kebab-case flag name.
// Keys already in flag form pass through unchanged.
func flagName(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UnmarshalJSON decodes an options object while preserving key order,
// which a map decode would lose. Values may be scalars or arrays of
// scalars; numbers and booleans are stringified.
func (o *Options) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode options: expected object, got %v", tok)
	}

	var opts []Option
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode options: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode options: expected key, got %v", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode option %q: %w", key, err)
		}
		values, err := stringifyOptionValue(raw)
		if err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		opts = append(opts, Option{Key: key, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}

	o.opts = opts
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON, mostly for logging.
func (o Options) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, opt := range o.opts {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		var val []byte
		if len(opt.Values) == 1 {
			val, err = json.Marshal(opt.Values[0])
		} else {
			val, err = json.Marshal(opt.Values)
		}
		if err != nil {
			return nil, err
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func stringifyOptionValue(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case json.Number:
		return []string{v.String()}, nil
	case bool:
		return []string{strconv.FormatBool(v)}, nil
	case []any:
		values := make([]string, 0, len(v))
		for _, elem := range v {
			s, err := stringifyOptionValue(elem)
			if err != nil {
				return nil, err
			}
			if len(s) != 1 {
				return nil, fmt.Errorf("nested arrays are not supported")
			}
			values = append(values, s[0])
		}
		return values, nil
	case nil:
		return nil, fmt.Errorf("null value is not supported")
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}
