package suite

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"
)

// FakeMP4Bytes builds the smallest byte sequence that sniffs as
// video/mp4: an ftyp box with the isom brand followed by an empty
// mdat box. Enough for upload validation, not playable media.
func FakeMP4Bytes() []byte {
	buf := make([]byte, 0, 40)

	ftyp := make([]byte, 4)
	binary.BigEndian.PutUint32(ftyp, 24)
	buf = append(buf, ftyp...)
	buf = append(buf, []byte("ftypisom")...)
	buf = append(buf, 0x00, 0x00, 0x02, 0x00)
	buf = append(buf, []byte("isomiso2")...)

	mdat := make([]byte, 4)
	binary.BigEndian.PutUint32(mdat, 16)
	buf = append(buf, mdat...)
	buf = append(buf, []byte("mdat")...)
	buf = append(buf, make([]byte, 8)...)

	return buf
}

// WriteFakeMP4 drops a sniffable source file into dir and
// returns its path.
func WriteFakeMP4(dir string) (string, error) {
	path := filepath.Join(dir, gofakeit.UUID()+".mp4")

	if err := os.WriteFile(path, FakeMP4Bytes(), 0666); err != nil {
		return "", err
	}

	return path, nil
}
