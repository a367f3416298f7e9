package bytecode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so identical images encode to identical
// bytes, which keeps content hashes stable across peers.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Image is the unit of program exchange and storage: a named, content-hashed
// wrapper around a serialized Program. The receiver re-hashes the code and
// verifies it against the declared hash before running it.
type Image struct {
	Hash    [32]byte `cbor:"1,keyasint"`
	Name    string   `cbor:"2,keyasint"`
	Version uint16   `cbor:"3,keyasint"`
	Code    []byte   `cbor:"4,keyasint"` // Serialize() output
}

// NewImage wraps a program in an Image, computing its content hash.
func NewImage(name string, p Program) (*Image, error) {
	code, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return &Image{
		Hash:    sha256.Sum256(code),
		Name:    name,
		Version: FormatVersion,
		Code:    code,
	}, nil
}

// Program verifies the image's content hash and decodes its code.
func (img *Image) Program() (Program, error) {
	if sha256.Sum256(img.Code) != img.Hash {
		return nil, fmt.Errorf("bytecode: image %q content hash mismatch", img.Name)
	}
	return Deserialize(img.Code)
}

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	return &img, nil
}
