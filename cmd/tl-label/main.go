// Command tl-label browses the Cityscapes images and edits the traffic
// light attributes of one image at a time.
//
//	tl-label [flags] cities
//	tl-label [flags] images <split/city>
//	tl-label [flags] next|prev <split/city/stem>
//	tl-label [flags] lights <split/city/stem>
//	tl-label [flags] set <split/city/stem> <index> <attribute> <value>
//	tl-label [flags] toggle <split/city/stem> <index> <attribute>
//	tl-label [flags] delete <split/city/stem> <index>
//
// Edits are written back atomically before the command exits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/dataset"
	"github.com/banshee-data/tlabel/internal/depth"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

const tool = "tl-label"

var argCount = map[string]int{
	"cities": 1,
	"images": 2,
	"next":   2,
	"prev":   2,
	"lights": 2,
	"set":    5,
	"toggle": 4,
	"delete": 3,
}

func main() {
	os.Exit(run(fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr))
}

type editor struct {
	fsys   fsutil.FileSystem
	paths  dataset.Paths
	depths *depth.Index
	out    io.Writer
}

func run(fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var csDir, videoDir, lightsDir, depthFile, depthPrefix, depthClass string

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] cities|images|next|prev|lights|set|toggle|delete ...\n", tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.StringVar(&csDir, "cityscapes-dir", "", "Cityscapes root holding leftImg8bit/ (default from config)")
	fs.StringVar(&videoDir, "video-dir", "", "directory of sequence videos (default from config)")
	fs.StringVar(&lightsDir, "lights-dir", "", "root of the traffic light label tree (default from config)")
	fs.StringVar(&depthFile, "depth-file", "", "depth box listing (default from config)")
	fs.StringVar(&depthPrefix, "depth-prefix", "", "prefix stripped from depth listing file names (default from config)")
	fs.StringVar(&depthClass, "depth-class", "", "class id of traffic lights in the depth listing (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	if fs.NArg() == 0 || argCount[fs.Arg(0)] != fs.NArg() {
		fs.Usage()
		return 2
	}
	common.Quiet = true

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()
	cfg := env.Config
	ed := &editor{
		fsys: fsys,
		paths: dataset.Paths{
			CityscapesDir: firstNonEmpty(csDir, cfg.GetCityscapesDir()),
			VideoDir:      firstNonEmpty(videoDir, cfg.GetVideoDir()),
			LightsDir:     firstNonEmpty(lightsDir, cfg.GetLightsDir()),
		},
		out: stdout,
	}

	if df := firstNonEmpty(depthFile, cfg.GetDepthFile()); df != "" {
		ed.depths, err = depth.Load(fsys, df, depth.Options{
			Prefix: firstNonEmpty(depthPrefix, cfg.GetDepthPrefix()),
			Class:  firstNonEmpty(depthClass, cfg.GetDepthClass()),
		})
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		env.Logf("loaded depth metrics for %d images", ed.depths.Len())
	}

	if err := ed.dispatch(fs.Args()); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", fs.Arg(0), err)
		return 1
	}
	return 0
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e *editor) dispatch(args []string) error {
	switch args[0] {
	case "cities":
		ds, err := e.discover()
		if err != nil {
			return err
		}
		for _, c := range ds.Cities() {
			fmt.Fprintln(e.out, c)
		}
		return nil
	case "images":
		ds, err := e.discover()
		if err != nil {
			return err
		}
		stems, err := ds.Stems(args[1])
		if err != nil {
			return err
		}
		for _, s := range stems {
			fmt.Fprintln(e.out, args[1]+"/"+s)
		}
		return nil
	case "next", "prev":
		c, err := e.cursor(args[1])
		if err != nil {
			return err
		}
		if args[0] == "next" {
			c.Next()
		} else {
			c.Prev()
		}
		fmt.Fprintln(e.out, c.Key())
		return nil
	case "lights":
		return e.lights(args[1])
	}
	return e.edit(args)
}

func (e *editor) discover() (*dataset.Dataset, error) {
	if e.paths.CityscapesDir == "" {
		return nil, fmt.Errorf("no Cityscapes directory: pass -cityscapes-dir or set cityscapes_dir")
	}
	return dataset.Discover(e.fsys, e.paths.CityscapesDir)
}

// cursor positions a cursor on key.
func (e *editor) cursor(key string) (*dataset.Cursor, error) {
	ds, err := e.discover()
	if err != nil {
		return nil, err
	}
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", dataset.ErrUnknownImage, key)
	}
	c, err := dataset.NewCursor(ds)
	if err != nil {
		return nil, err
	}
	if err := c.SetCity(key[:i]); err != nil {
		return nil, err
	}
	if err := c.SetStem(key[i+1:]); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *editor) open(key string) (*label.Store, error) {
	if e.paths.LightsDir == "" {
		return nil, fmt.Errorf("no label directory: pass -lights-dir or set lights_dir")
	}
	return e.paths.OpenStore(e.fsys, key, e.depths)
}

func (e *editor) lights(key string) error {
	s, err := e.open(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "labels  %s\n", s.Path())
	if e.paths.CityscapesDir != "" {
		fmt.Fprintf(e.out, "image   %s\n", e.paths.Image(key))
		fmt.Fprintf(e.out, "vehicle %s\n", e.paths.Vehicle(key))
	}
	if e.paths.VideoDir != "" {
		fmt.Fprintf(e.out, "video   %s\n", e.paths.Video(key))
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tDEPTH\tRELEVANT\tLANE\tSTATE\tTYPE\tVISIBLE")
	for _, l := range s.Lights() {
		a := l.Object.Attributes
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			l.Index, l.Object.IDString(), l.DepthMetric,
			a.Value(label.KeyRelevant), a.Value(label.KeyLaneRelevant), a.Value(label.KeyState),
			a.Value(label.KeyType), a.Value(label.KeyVisible))
	}
	return tw.Flush()
}

// edit runs set, toggle or delete on the object at an index and saves.
func (e *editor) edit(args []string) error {
	s, err := e.open(args[1])
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("index %q: %w", args[2], err)
	}
	h, ok := s.Handle(idx)
	if !ok {
		return fmt.Errorf("%w: index %d of %d objects", label.ErrUnknownHandle, idx, s.Len())
	}

	switch args[0] {
	case "set":
		err = s.SetAttribute(h, args[3], fieldValue(args[3], args[4]))
	case "toggle":
		err = s.Toggle(h, args[3])
	case "delete":
		err = s.Delete(h)
	}
	if err != nil {
		return err
	}
	if !s.Modified() {
		return nil
	}
	if err := s.Persist(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "saved %s\n", s.Path())
	return nil
}

// fieldValue reads depth as a number and everything else as text.
func fieldValue(key, v string) label.Field {
	if key == label.KeyDepth {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return label.Number(f)
		}
	}
	return label.Text(v)
}
