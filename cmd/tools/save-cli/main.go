package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/storage"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world"
)

var (
	title = color.New(color.FgCyan, color.Bold)
	warn  = color.New(color.FgYellow)
)

func main() {
	var (
		command     = flag.String("cmd", "info", "Command: info, dump, convert")
		src         = flag.String("src", "", "Source save: zip:<file> or badger:<dir>")
		dst         = flag.String("dst", "", "Destination save for convert: zip:<file> or badger:<dir>")
		compression = flag.String("compression", storage.CompressionZstd, "Zip compression: deflate or zstd")
		mega        = flag.String("mega", "0,0,0", "Megachunk coordinate for dump (x,y,z)")
	)
	flag.Parse()

	if *src == "" {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch *command {
	case "info":
		err = showInfo(*src)
	case "dump":
		err = dumpMegaChunk(*src, *mega)
	case "convert":
		err = convert(*src, *dst, *compression)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// parseLocation разбирает "zip:<file>" или "badger:<dir>"; без префикса считается zip
func parseLocation(s string) (kind, path string) {
	if i := strings.Index(s, ":"); i > 0 {
		switch s[:i] {
		case "zip", "badger":
			return s[:i], s[i+1:]
		}
	}
	return "zip", s
}

type source struct {
	storage.Reader
	close func() error
}

func openSource(location string) (*source, error) {
	kind, path := parseLocation(location)
	if kind == "zip" {
		r, err := storage.OpenZip(path)
		if err != nil {
			return nil, err
		}
		return &source{Reader: r, close: r.Close}, nil
	}

	archive, err := storage.OpenBadger(path)
	if err != nil {
		return nil, err
	}
	r, err := archive.NewReader()
	if err != nil {
		archive.Close()
		return nil, err
	}
	return &source{Reader: r, close: archive.Close}, nil
}

// loadWorld загружает сохранение целиком, проверяя его целостность
func loadWorld(src *source) (*world.World, error) {
	w := world.NewWorld(0, world.WithLogger(logging.Discard()))
	if err := w.LoadFrom(src); err != nil {
		return nil, err
	}
	return w, nil
}

func showInfo(location string) error {
	src, err := openSource(location)
	if err != nil {
		return err
	}
	defer src.close()

	manifest, found, err := storage.ReadManifest(src)
	if err != nil {
		return err
	}
	w, err := loadWorld(src)
	if err != nil {
		return err
	}

	title.Printf("📦 Save %s\n", location)
	if found {
		fmt.Printf("   world:       %s\n", manifest.WorldID)
		fmt.Printf("   seed:        %d\n", manifest.Seed)
		fmt.Printf("   created:     %s\n", manifest.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("   saved:       %s\n", manifest.SavedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("   compression: %s\n", manifest.Compression)
	} else {
		warn.Printf("   ⚠️  %s not found\n", storage.ManifestName)
	}

	fmt.Printf("   megachunks:  %d\n", w.MegaChunkCount())
	fmt.Printf("   chunks:      %d\n", w.ChunkCount())
	for _, coord := range w.MegaChunkCoords() {
		fmt.Printf("   %-16s %4d chunks\n", coord, w.MegaChunk(coord).ChunkCount())
	}
	return nil
}

func parseCoord(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("coordinate %q: want x,y,z", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("coordinate %q: %w", s, err)
		}
		v[i] = n
	}
	return vec.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func dumpMegaChunk(location, coordStr string) error {
	coord, err := parseCoord(coordStr)
	if err != nil {
		return err
	}
	src, err := openSource(location)
	if err != nil {
		return err
	}
	defer src.close()

	w, err := loadWorld(src)
	if err != nil {
		return err
	}
	mc := w.MegaChunk(coord)
	if mc == nil {
		return fmt.Errorf("megachunk %s not in save", coord)
	}

	title.Printf("🧱 Megachunk %s: %d chunks\n", coord, mc.ChunkCount())
	mc.ForEachChunk(func(local vec.Vec3, data *world.ChunkData) {
		gen := " "
		if data.Generated {
			gen = "G"
		}
		fmt.Printf("   %s %-12s solid=%d\n", gen, local, data.Chunk.CountSolid())
	})
	return nil
}

type sink interface {
	storage.Writer
	Close() error
	Abort()
}

func openSink(location, compression string) (sink, func() error, error) {
	kind, path := parseLocation(location)
	if kind == "zip" {
		w, err := storage.CreateZip(path, compression)
		if err != nil {
			return nil, nil, err
		}
		return w, func() error { return nil }, nil
	}

	archive, err := storage.OpenBadger(path)
	if err != nil {
		return nil, nil, err
	}
	w, err := archive.NewWriter()
	if err != nil {
		archive.Close()
		return nil, nil, err
	}
	return w, archive.Close, nil
}

func convert(from, to, compression string) error {
	if to == "" {
		return fmt.Errorf("convert needs -dst")
	}
	src, err := openSource(from)
	if err != nil {
		return err
	}
	defer src.close()

	// Битое сохранение не копируем
	if _, err := loadWorld(src); err != nil {
		return err
	}

	dst, closeDst, err := openSink(to, compression)
	if err != nil {
		return err
	}
	defer closeDst()

	n, err := storage.Copy(dst, src)
	if err != nil {
		dst.Abort()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	title.Printf("✅ Copied %d entries: %s → %s\n", n, from, to)
	return nil
}
