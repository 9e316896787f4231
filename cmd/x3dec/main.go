// x3dec converts an .x3a archive back to a 16-bit mono WAV file.
package main

import (
	"flag"
	"fmt"
	"io"
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
		fmt.Fprintln(os.Stderr, "Usage: x3dec [-f] FILE.x3a...")
		os.Exit(4)
	}
	for _, path := range flag.Args() {
		if err := decode(path, force); err != nil {
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

func decode(x3Path string, force bool) error {
	dec, closer, err := x3.Open(x3Path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer closer.Close()

	wavPath := pathutil.TrimExt(x3Path) + ".wav"
	if !force && osutil.Exists(wavPath) {
		return errors.Errorf("WAV file %q already present; use -f to force overwrite", wavPath)
	}
	w, err := os.Create(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()

	enc := wav.NewEncoder(w, int(dec.Header.SampleRate), 16, 1, 1)
	defer enc.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(dec.Header.SampleRate)},
		SourceBitDepth: 16,
	}
	var corrupted int
	for {
		f, err := dec.NextFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			if fc, ok := err.(*errs.FrameCorruptError); ok {
				corrupted++
				log.Printf("frame corrupt, resynchronized past %d bits: %v", fc.SkippedBits, fc.Cause)
				continue
			}
			return errors.WithStack(err)
		}
		buf.Data = make([]int, len(f.Samples))
		for i, s := range f.Samples {
			buf.Data[i] = int(s)
		}
		if err := enc.Write(buf); err != nil {
			return errors.WithStack(err)
		}
	}
	if corrupted > 0 {
		log.Printf("%d corrupt frame(s) skipped", corrupted)
	}
	return nil
}
