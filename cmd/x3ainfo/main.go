// x3ainfo prints an .x3a archive's header fields and walks its frames,
// reporting any corrupt frames it encounters along the way.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/psiphi75/x3go"
	"github.com/psiphi75/x3go/errs"
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: x3ainfo FILE.x3a...")
		os.Exit(4)
	}
	for _, path := range flag.Args() {
		if err := info(path); err != nil {
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

func info(path string) error {
	dec, closer, err := x3.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer closer.Close()

	hdr := dec.Header
	fmt.Printf("%s\n", path)
	fmt.Printf("  format version:      %d\n", hdr.Version)
	fmt.Printf("  sample rate:         %d Hz\n", hdr.SampleRate)
	fmt.Printf("  channel count:       %d\n", hdr.ChannelCount)
	fmt.Printf("  block length:        %d samples\n", hdr.Params.BlockLen)
	fmt.Printf("  blocks per frame:    %d\n", hdr.Params.BlocksPerFrame)
	fmt.Printf("  rice codes:          %v\n", hdr.Params.RiceCodes)
	fmt.Printf("  max BFP bits:        %d\n", hdr.Params.MaxBFPBits)
	fmt.Printf("  max predictor order: %d\n", hdr.Params.MaxPredictorOrder)
	if len(hdr.Metadata) > 0 {
		fmt.Println("  metadata:")
		keys := make([]string, 0, len(hdr.Metadata))
		for k := range hdr.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s = %s\n", k, hdr.Metadata[k])
		}
	}

	var frames, samples, corrupt int
	for {
		f, err := dec.NextFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			if fc, ok := err.(*errs.FrameCorruptError); ok {
				corrupt++
				fmt.Printf("  frame %d: corrupt, resynchronized past %d bits (%v)\n", frames, fc.SkippedBits, fc.Cause)
				continue
			}
			return errors.WithStack(err)
		}
		frames++
		samples += len(f.Samples)
	}
	fmt.Printf("  frames decoded:      %d\n", frames)
	fmt.Printf("  samples decoded:     %d\n", samples)
	fmt.Printf("  corrupt frames:      %d\n", corrupt)
	return nil
}
