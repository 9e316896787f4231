// x3enc converts a 16-bit mono WAV file to an .x3a archive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"

	"github.com/psiphi75/x3go"
	"github.com/psiphi75/x3go/errs"
)

func main() {
	var force bool
	flag.BoolVar(&force, "f", false, "force overwrite")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: x3enc [-f] FILE.wav...")
		os.Exit(4)
	}
	for _, path := range flag.Args() {
		if err := encode(path, force); err != nil {
			log.Printf("%+v", err)
			os.Exit(exitCode(err))
		}
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrUnsupportedFormat):
		return 2
	case errors.Is(err, errs.ErrArchiveHeaderCorrupt):
		return 3
	default:
		return 1
	}
}

func encode(wavPath string, force bool) error {
	r, err := os.Open(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return errors.Errorf("invalid WAV file %q", wavPath)
	}
	if dec.BitDepth != 16 {
		return errors.Wrapf(errs.ErrUnsupportedFormat, "bit depth %d (want 16)", dec.BitDepth)
	}
	if dec.NumChans != 1 {
		return errors.Wrapf(errs.ErrUnsupportedFormat, "channel count %d (want 1, mono)", dec.NumChans)
	}

	x3Path := pathutil.TrimExt(wavPath) + ".x3a"
	if !force && osutil.Exists(x3Path) {
		return errors.Errorf("archive %q already present; use -f to force overwrite", x3Path)
	}
	w, err := os.Create(x3Path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	params := x3.DefaultParameters()
	enc, err := x3.NewEncoder(w, params, dec.SampleRate, 1, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := dec.FwdToPCM(); err != nil {
		return errors.WithStack(err)
	}
	samplesPerFrame := params.BlockLen * params.BlocksPerFrame
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(dec.SampleRate)},
		Data:           make([]int, samplesPerFrame),
		SourceBitDepth: 16,
	}
	frame := make([]int32, samplesPerFrame)
	for !dec.EOF() {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			frame[i] = int32(buf.Data[i])
		}
		if err := enc.EncodeFrame(frame[:n]); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
