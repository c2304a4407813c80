// sbpfdump decodes an sBPF program image and prints one line per
// instruction slot.
//
// Images are read from a file or stdin in any supported transport encoding
// and can be cached in a local image store, then dumped again by ID or label.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fortiblox/sbpf-isa/pkg/image"
	"github.com/fortiblox/sbpf-isa/pkg/imagestore"
	"github.com/fortiblox/sbpf-isa/pkg/sbpf"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags
var (
	inPath      = flag.String("in", "-", "Program image path, - for stdin")
	encoding    = flag.String("encoding", "raw", "Input encoding: raw, hex, base58, base64, base64+zstd, zstd")
	storeDir    = flag.String("store", "", "Image store directory (empty = no caching)")
	imageID     = flag.String("id", "", "Dump a cached image by base58 ID or label instead of reading -in")
	label       = flag.String("label", "", "Label to bind to the image in the store")
	vaddr       = flag.Bool("vaddr", false, "Show positions as program-region virtual addresses")
	verbose     = flag.Bool("v", false, "Log image store activity")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var errNeedStore = errors.New("-id and -label require -store")

type config struct {
	In       string
	Encoding string
	Store    string
	ID       string
	Label    string
	Vaddr    bool
	Verbose  bool
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sbpfdump %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config{
		In:       *inPath,
		Encoding: *encoding,
		Store:    *storeDir,
		ID:       *imageID,
		Label:    *label,
		Vaddr:    *vaddr,
		Verbose:  *verbose,
	}
	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("sbpfdump: %v", err)
	}
}

func run(cfg config, stdin io.Reader, stdout io.Writer) error {
	if cfg.Label != "" && cfg.Store == "" {
		return errNeedStore
	}

	var store *imagestore.Store
	if cfg.Store != "" {
		storeCfg := imagestore.DefaultConfig(cfg.Store)
		if cfg.Verbose {
			storeCfg.Logger = imagestore.NewLogger(log.Default(), false)
		}
		s, err := imagestore.Open(storeCfg)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	img, err := loadImage(cfg, store, stdin)
	if err != nil {
		return err
	}

	if store != nil && cfg.ID == "" {
		if err := store.Put(img); err != nil {
			return fmt.Errorf("cache image: %w", err)
		}
		if cfg.Verbose {
			log.Printf("Cached image %s (%d instructions)", img.ID(), img.NumInstructions())
		}
	}
	if cfg.Label != "" {
		if err := store.SetLabel(cfg.Label, img.ID()); err != nil {
			return fmt.Errorf("label image: %w", err)
		}
		if cfg.Verbose {
			log.Printf("Labeled image %s as %q", img.ID(), cfg.Label)
		}
	}

	return dump(img, cfg.Vaddr, stdout)
}

func loadImage(cfg config, store *imagestore.Store, stdin io.Reader) (*image.Image, error) {
	if cfg.ID != "" {
		if store == nil {
			return nil, errNeedStore
		}
		id, err := image.ParseID(cfg.ID)
		if err != nil {
			if id, err = store.Resolve(cfg.ID); err != nil {
				return nil, err
			}
		}
		return store.Get(id)
	}

	enc, err := image.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if cfg.In == "-" || cfg.In == "" {
		return image.Read(stdin, enc)
	}
	return image.Load(cfg.In, enc)
}

// dump writes a header followed by one line per slot:
// position, raw bytes, disassembly, and the resolved target if any.
func dump(img *image.Image, vaddr bool, w io.Writer) error {
	bw := bufio.NewWriter(w)

	keccak := img.Keccak256()
	fmt.Fprintf(bw, "id:           %s\n", img.ID())
	fmt.Fprintf(bw, "keccak256:    %x\n", keccak[:])
	fmt.Fprintf(bw, "instructions: %d\n\n", img.NumInstructions())

	var base uint64
	if vaddr {
		base = sbpf.MMProgramStart
	}

	err := sbpf.Walk(img.Bytes(), func(ins sbpf.Instruction) error {
		line := fmt.Sprintf("%08x  % x  %s", base+ins.Ptr, ins.Bytes(), ins)
		if ins.HasRelativeTarget() {
			line += fmt.Sprintf("  -> %08x", base+ins.MemoryAddress())
		}
		_, err := fmt.Fprintln(bw, line)
		return err
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}
