// Package persist writes and reads editcore artifacts (patches and reports)
// through codecs. Files are replaced atomically.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/editcore/pkg/patch"
)

// File extensions for supported codecs.
const (
	jsonExtension  = ".json"
	patchExtension = ".patch"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// ErrUnsupportedValue is returned when a codec cannot handle the value type.
var ErrUnsupportedValue = errors.New("codec does not support value")

// Codec defines how a value is serialized and deserialized.
type Codec interface {
	// Encode writes v to the writer.
	Encode(w io.Writer, v any) error
	// Decode reads into v, which must be a pointer.
	Decode(r io.Reader, v any) error
	// Extension returns the file extension for this codec (e.g., ".json").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// PatchCodec implements Codec for *patch.Patch using the binary patch
// encoding.
type PatchCodec struct {
	// Compress stores columns and text as LZ4 blocks.
	Compress bool
}

// NewPatchCodec creates a patch codec.
func NewPatchCodec(compress bool) *PatchCodec {
	return &PatchCodec{Compress: compress}
}

// Encode implements Codec.Encode. v must be a *patch.Patch.
func (c *PatchCodec) Encode(w io.Writer, v any) error {
	p, ok := v.(*patch.Patch)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}

	_, err := w.Write(p.Serialize(c.Compress))
	if err != nil {
		return fmt.Errorf("patch encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode. v must be a *patch.Patch.
func (c *PatchCodec) Decode(r io.Reader, v any) error {
	p, ok := v.(*patch.Patch)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}

	_, err := p.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("patch decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for patch files.
func (c *PatchCodec) Extension() string {
	return patchExtension
}

// Save encodes v into the file at path. The file is written under a
// temporary name in the same directory and renamed into place, so readers
// never see a partial file.
func Save(path string, codec Codec, v any) (err error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := file.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	err = codec.Encode(file, v)
	if err != nil {
		_ = file.Close()

		return err
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}

// Load decodes the file at path into v.
func Load(path string, codec Codec, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return codec.Decode(file, v)
}
