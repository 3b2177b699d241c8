package bytecode

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

const (
	imageMagic   = "POPBC"
	imageVersion = 1
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Image is the on-disk .pbc container: a CBOR envelope around the raw
// byte-code image, tagged with the source it was compiled from.
type Image struct {
	Magic   string `cbor:"magic"`
	Version int    `cbor:"version"`
	Source  string `cbor:"source"`
	Code    []byte `cbor:"code"`
}

// WriteImage wraps a byte-code image in the .pbc envelope and writes it.
func WriteImage(w io.Writer, source string, code []byte) error {
	data, err := cborEncMode.Marshal(&Image{
		Magic:   imageMagic,
		Version: imageVersion,
		Source:  source,
		Code:    code,
	})
	if err != nil {
		return fmt.Errorf("bytecode: marshal image: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadImage parses and validates a .pbc envelope.
func ReadImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if img.Magic != imageMagic {
		return nil, fmt.Errorf("bytecode: not a pop byte-code image")
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("bytecode: unsupported image version %d", img.Version)
	}
	return &img, nil
}
