package snapfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/fennel-tools/tabdeck/internal/types"
)

// Session files are a portable export of the tab session:
// 8-byte magic "tbdksn1\x00" + 4-byte LE uint32 uncompressed size +
// a single lz4-compressed block holding the JSON session payload.
var magic = []byte("tbdksn1\x00")

const headerSize = 12 // 8 magic + 4 size

// Encode serializes and compresses a session into the file format.
func Encode(sess *types.Session) ([]byte, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	bound := lz4.CompressBlockBound(len(payload))
	out := make([]byte, headerSize+bound)
	copy(out, magic)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(payload)))

	var c lz4.Compressor
	n, err := c.CompressBlock(payload, out[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("compress session: %w", err)
	}
	return out[:headerSize+n], nil
}

// Decode parses session-file bytes back into a session.
func Decode(data []byte) (*types.Session, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("session file: data too short (%d bytes)", len(data))
	}
	for i := range magic {
		if data[i] != magic[i] {
			return nil, fmt.Errorf("session file: invalid header magic")
		}
	}

	size := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("session file: decompress failed: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(dst[:n], &sess); err != nil {
		return nil, fmt.Errorf("session file: parse payload: %w", err)
	}
	return &sess, nil
}

// Write exports a session to a file.
func Write(path string, sess *types.Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Read imports a session from a file.
func Read(path string) (*types.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return Decode(data)
}
