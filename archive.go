package x3

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/mewkiz/pkg/errutil"

	"github.com/psiphi75/x3go/errs"
	"github.com/psiphi75/x3go/internal/crcutil/crc16"
)

// Magic is the fixed 4-byte signature at the start of every archive.
var Magic = [4]byte{'X', '3', 'A', 0}

// FormatVersion is the archive header layout version this package writes
// and reads.
const FormatVersion = 1

// ArchiveHeader is the fixed-format preamble of an .x3a archive: the codec
// configuration plus the audio format it applies to and any free-form
// metadata, followed by a CRC-16 over everything preceding it.
type ArchiveHeader struct {
	Version      uint8
	Params       Parameters
	SampleRate   uint32
	ChannelCount uint8
	Metadata     map[string]string
}

// writeArchiveHeader serializes hdr to w, including its trailing CRC-16.
func writeArchiveHeader(w io.Writer, hdr ArchiveHeader) error {
	buf := &bytes.Buffer{}
	buf.Write(Magic[:])
	buf.WriteByte(hdr.Version)

	buf.WriteByte(byte(len(hdr.Params.RiceCodes)))
	buf.Write(hdr.Params.RiceCodes)
	if err := binary.Write(buf, binary.BigEndian, uint16(hdr.Params.BlockLen)); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(hdr.Params.BlocksPerFrame)); err != nil {
		return errutil.Err(err)
	}
	buf.WriteByte(hdr.Params.MaxBFPBits)
	buf.WriteByte(hdr.Params.MaxPredictorOrder)
	if err := binary.Write(buf, binary.BigEndian, hdr.Params.CRCPolynomial); err != nil {
		return errutil.Err(err)
	}

	if err := binary.Write(buf, binary.BigEndian, hdr.SampleRate); err != nil {
		return errutil.Err(err)
	}
	buf.WriteByte(hdr.ChannelCount)

	if len(hdr.Metadata) > 255 {
		return errutil.Newf("x3: too many metadata pairs: %d > 255", len(hdr.Metadata))
	}
	buf.WriteByte(byte(len(hdr.Metadata)))
	for _, k := range sortedKeys(hdr.Metadata) {
		v := hdr.Metadata[k]
		if len(k) > 255 || len(v) > 65535 {
			return errutil.Newf("x3: metadata pair %q too large", k)
		}
		buf.WriteByte(byte(len(k)))
		buf.WriteString(k)
		if err := binary.Write(buf, binary.BigEndian, uint16(len(v))); err != nil {
			return errutil.Err(err)
		}
		buf.WriteString(v)
	}

	crc := crc16.Checksum(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errutil.Err(err)
	}
	if err := binary.Write(w, binary.BigEndian, crc); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// readArchiveHeader reads and validates an archive header from r, including
// its magic and CRC-16.
func readArchiveHeader(r io.Reader) (ArchiveHeader, error) {
	br := &bytes.Buffer{}
	tee := io.TeeReader(r, br)

	var magic [4]byte
	if _, err := io.ReadFull(tee, magic[:]); err != nil {
		return ArchiveHeader{}, err
	}
	if magic != Magic {
		return ArchiveHeader{}, errs.ErrArchiveHeaderCorrupt
	}

	var version uint8
	if err := readByte(tee, &version); err != nil {
		return ArchiveHeader{}, err
	}

	var nCodes uint8
	if err := readByte(tee, &nCodes); err != nil {
		return ArchiveHeader{}, err
	}
	riceCodes := make([]byte, nCodes)
	if _, err := io.ReadFull(tee, riceCodes); err != nil {
		return ArchiveHeader{}, err
	}

	var blockLen, blocksPerFrame uint16
	if err := binary.Read(tee, binary.BigEndian, &blockLen); err != nil {
		return ArchiveHeader{}, err
	}
	if err := binary.Read(tee, binary.BigEndian, &blocksPerFrame); err != nil {
		return ArchiveHeader{}, err
	}
	var maxBFPBits, maxPredictorOrder uint8
	if err := readByte(tee, &maxBFPBits); err != nil {
		return ArchiveHeader{}, err
	}
	if err := readByte(tee, &maxPredictorOrder); err != nil {
		return ArchiveHeader{}, err
	}
	var crcPoly uint16
	if err := binary.Read(tee, binary.BigEndian, &crcPoly); err != nil {
		return ArchiveHeader{}, err
	}

	var sampleRate uint32
	if err := binary.Read(tee, binary.BigEndian, &sampleRate); err != nil {
		return ArchiveHeader{}, err
	}
	var channelCount uint8
	if err := readByte(tee, &channelCount); err != nil {
		return ArchiveHeader{}, err
	}

	var nPairs uint8
	if err := readByte(tee, &nPairs); err != nil {
		return ArchiveHeader{}, err
	}
	metadata := make(map[string]string, nPairs)
	for i := 0; i < int(nPairs); i++ {
		var keyLen uint8
		if err := readByte(tee, &keyLen); err != nil {
			return ArchiveHeader{}, err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(tee, key); err != nil {
			return ArchiveHeader{}, err
		}
		var valLen uint16
		if err := binary.Read(tee, binary.BigEndian, &valLen); err != nil {
			return ArchiveHeader{}, err
		}
		val := make([]byte, valLen)
		if _, err := io.ReadFull(tee, val); err != nil {
			return ArchiveHeader{}, err
		}
		metadata[string(key)] = string(val)
	}

	want := crc16.Checksum(br.Bytes())
	var got uint16
	if err := binary.Read(r, binary.BigEndian, &got); err != nil {
		return ArchiveHeader{}, err
	}
	if got != want {
		return ArchiveHeader{}, errs.ErrArchiveHeaderCorrupt
	}

	hdr := ArchiveHeader{
		Version: version,
		Params: Parameters{
			BlockLen:          int(blockLen),
			BlocksPerFrame:    int(blocksPerFrame),
			RiceCodes:         riceCodes,
			MaxBFPBits:        maxBFPBits,
			MaxPredictorOrder: maxPredictorOrder,
			CRCPolynomial:     crcPoly,
		},
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Metadata:     metadata,
	}
	return hdr, nil
}

func readByte(r io.Reader, dst *uint8) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	*dst = b[0]
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
