// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	nl "github.com/mlnoga/rawedge/internal"
	"github.com/mlnoga/rawedge/internal/edge"
	"github.com/mlnoga/rawedge/internal/kernel"
	"github.com/mlnoga/rawedge/internal/ops"
	"github.com/mlnoga/rawedge/internal/ops/filter"
	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/mlnoga/rawedge/internal/rest"
)

const version = "0.1.0"

const (
	defaultIn      = "raw_images/test_image.raw"
	defaultBlurOut = "generated/gaussian_prefilter.raw"
	defaultOut     = "generated/sobel_magnitude.raw"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")

var out = flag.String("out", defaultOut, "save output to `file`. For import, defaults to "+defaultIn)
var blurOut = flag.String("blurOut", defaultBlurOut, "save the blurred intermediate image of the run command to `file`")
var jpg = flag.String("jpg", "", "save 8bit preview of output as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
var log = flag.String("log", "", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var kernelSize = flag.Int("kernel", 5, "Gaussian blur kernel size, 3 or 5")
var lower = flag.Uint("lower", 10, "lower hysteresis threshold, gradient magnitudes below are never edges")
var upper = flag.Uint("upper", 17, "upper hysteresis threshold, gradient magnitudes at or above are always edges")
var auto = flag.Bool("auto", false, "suggest hysteresis thresholds from gradient statistics, overrides lower and upper")
var csv = flag.Bool("csv", false, "stats: print one comma-separated line per image")
var directions = flag.Bool("directions", false, "render previews of edge maps with hue by edge direction")

var threads = flag.Int("threads", 0, "number of threads, 0=all available CPUs")
var width = flag.Int("width", 300, "import: resize to this width, 0=keep size")
var height = flag.Int("height", 300, "import: resize to this height, 0=keep size")

var addr = flag.String("addr", ":8080", "serve: listen on this address")
var chroot = flag.String("chroot", "", "serve: change filesystem root to `dir` (requires root)")
var setuid = flag.Int("setuid", -1, "serve: change user id to this value, -1=keep")

func main() {
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Rawedge Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (run|blur|sobel|stats|import|preview|pipeline|serve|legal|version) (args)

Commands:
  run      Blur the input (default %s) into -blurOut, read that back and detect edges into -out
  blur     Blur input images
  sobel    Detect edges in input images
  stats    Show gradient magnitude statistics and suggested thresholds
  import   Convert a PNG, JPEG, GIF, TIFF or BMP image into a raw image
  preview  Write a PNG, JPEG or TIFF preview of a raw image
  pipeline Run the operator pipeline from a JSON or YAML file
  serve    Serve the REST API
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0], defaultIn)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}
	if *out == defaultOut && args[0] == "import" {
		*out = defaultIn
	}

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		*log = autoSuffix(*out, ".log")
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s': %s\n", *log, err.Error())
		}
	}
	if *jpg == "%auto" {
		*jpg = autoSuffix(*out, ".jpg")
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatalf("Could not create CPU profile: %s\n", err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatalf("Could not start CPU profile: %s\n", err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(nl.LogWriter(), *threads)
	var err error
	switch args[0] {
	case "run":
		c.LogEnvironment()
		err = cmdRun(args[1:], c)
	case "blur":
		err = runSequence(c, ops.NewOpSequence(ops.NewOpLoadMany(args[1:]), filter.NewOpBlur(*kernelSize), ops.NewOpSave(*out), preview()))
	case "sobel":
		sobel, e := newOpSobel()
		if e != nil {
			err = e
			break
		}
		err = runSequence(c, ops.NewOpSequence(ops.NewOpLoadMany(args[1:]), sobel, ops.NewOpSave(*out), preview()))
	case "stats":
		err = cmdStats(args[1:], c)
	case "import":
		err = cmdImport(args[1:], c)
	case "preview":
		err = cmdPreview(args[1:], c)
	case "pipeline":
		err = cmdPipeline(args[1:], c)
	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid); err == nil {
			err = rest.Serve(*addr, c.MaxThreads)
		}
	case "legal":
		nl.LogPrintf("%s", legal)
	case "version":
		nl.LogPrintf("Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		nl.LogPrintf("Unknown command '%s'\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	if args[0] != "legal" && args[0] != "version" && args[0] != "help" && args[0] != "?" {
		nl.LogPrintf("\nDone after %v\n", time.Since(start))
	}
	nl.LogSync()
}

// Replaces the suffix of the given file name, or returns blank for a blank name
func autoSuffix(fileName, suffix string) string {
	if fileName == "" {
		return ""
	}
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + suffix
}

func checkThresholds() (uint8, uint8, error) {
	if *lower > 255 || *upper > 255 {
		return 0, 0, fmt.Errorf("thresholds must be in 0..255, got lower %d upper %d", *lower, *upper)
	}
	return uint8(*lower), uint8(*upper), nil
}

func newOpSobel() (*filter.OpSobel, error) {
	lo, up, err := checkThresholds()
	if err != nil {
		return nil, err
	}
	op := filter.NewOpSobel(lo, up)
	op.Auto = *auto
	return op, nil
}

// Preview save step for the -jpg flag, a no-op if the flag is blank
func preview() *ops.OpSave {
	op := ops.NewOpSave(*jpg)
	op.Directions = *directions
	return op
}

// Logs gradient statistics for each input, as CSV lines under a header if -csv is set
func cmdStats(args []string, c *ops.Context) error {
	op := filter.NewOpStatsDefault()
	if op.CSV = *csv; op.CSV {
		fmt.Fprintf(c.Log, "%s\n", filter.StatsCSVHeader())
	}
	return runSequence(c, ops.NewOpSequence(ops.NewOpLoadMany(args), op))
}

func runSequence(c *ops.Context, seq *ops.OpSequence) error {
	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	nl.LogPrintf("Running with these settings:\n%s\n", string(m))
	return ops.Run(seq, c)
}

// Runs the two stage flow on a single file: blur into blurOut,
// then read the blurred file back and detect edges into out
func cmdRun(args []string, c *ops.Context) error {
	in := defaultIn
	if len(args) > 1 {
		return errors.New("run takes at most one input file")
	} else if len(args) == 1 {
		in = args[0]
	}
	lo, up, err := checkThresholds()
	if err != nil {
		return err
	}
	k, err := kernel.Gaussian(*kernelSize)
	if err != nil {
		return err
	}
	for _, fileName := range []string{*blurOut, *out} {
		if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
			return err
		}
	}

	img, err := c.Decoder().DecodeFile(in)
	if err != nil {
		return err
	}
	nl.LogPrintf("%d: Read %s pixel raw image from %s\n", img.ID, img.DimensionsToString(), in)
	nl.LogPrintf("%d: Writing %s blur to %s\n", img.ID, k.Name, *blurOut)
	if err := edge.ExportBlur(img, k, *blurOut, c.MaxThreads); err != nil {
		return err
	}

	blurred, err := c.Decoder().DecodeFile(*blurOut)
	if err != nil {
		return err
	}
	if *auto {
		op, _ := newOpSobel()
		edges, err := op.Apply(blurred, c)
		if err != nil {
			return err
		}
		nl.LogPrintf("%d: Writing edge map to %s\n", edges.ID, *out)
		err = edges.WriteFile(*out)
		if err == nil && *jpg != "" {
			err = writePreview(edges, *jpg)
		}
		return err
	}
	nl.LogPrintf("%d: Writing edge map with thresholds lower %d upper %d to %s\n", blurred.ID, lo, up, *out)
	if err := edge.ExportSobel(blurred, *out, lo, up, c.MaxThreads); err != nil {
		return err
	}
	if *jpg == "" {
		return nil
	}
	edges, err := c.Decoder().DecodeFile(*out)
	if err != nil {
		return err
	}
	return writePreview(edges, *jpg)
}

func writePreview(img *raw.Image, fileName string) error {
	if *directions {
		img = raw.DirectionPreview(img)
	}
	nl.LogPrintf("%d: Writing %s pixel preview to %s\n", img.ID, img.DimensionsToString(), fileName)
	return img.WritePreviewFile(fileName, 95)
}

// Converts a common image format into a raw image, resized to -width x -height
func cmdImport(args []string, c *ops.Context) error {
	if len(args) != 1 {
		return errors.New("import takes exactly one input file")
	}
	img, err := raw.Import(args[0], *width, *height, c.Log)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		return err
	}
	nl.LogPrintf("Writing %s pixel raw image to %s\n", img.DimensionsToString(), *out)
	return img.WriteFile(*out)
}

// Writes a preview of a raw image to -jpg, or to -out if that names a preview format
func cmdPreview(args []string, c *ops.Context) error {
	if len(args) != 1 {
		return errors.New("preview takes exactly one input file")
	}
	img, err := c.Decoder().DecodeFile(args[0])
	if err != nil {
		return err
	}
	target := *jpg
	if target == "" && raw.IsPreviewFile(*out) {
		target = *out
	}
	if target == "" {
		target = autoSuffix(args[0], ".png")
	}
	return writePreview(img, target)
}

func cmdPipeline(args []string, c *ops.Context) error {
	if len(args) != 1 {
		return errors.New("pipeline takes exactly one pipeline file")
	}
	seq, err := ops.LoadPipelineFile(args[0])
	if err != nil {
		return err
	}
	c.LogEnvironment()
	return runSequence(c, seq)
}
