package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docimport/extract"
)

var verses = []string{
	"Amazing grace, how sweet the sound",
	"That saved a wretch like me",
	"I once was lost, but now am found",
	"Was blind, but now I see",
	"Sublime gracia del Señor",
	"Que a un infeliz salvó",
	"Fui ciego mas hoy veo yo",
	"Perdido y Él me halló",
	"Be thou my vision, O Lord of my heart",
	"Naught be all else to me, save that thou art",
	"Great is thy faithfulness, O God my Father",
	"There is no shadow of turning with thee",
	"Morning has broken like the first morning",
	"Blackbird has spoken like the first bird",
	"Cuán grande es Él, cuán grande es Él",
	"Mi corazón entona la canción",
	"Holy, holy, holy, Lord God Almighty",
	"Early in the morning our song shall rise to thee",
	"It is well, it is well with my soul",
	"When peace like a river attendeth my way",
}

var (
	seedFileName = flag.String("src", "", "file of seed lines (default: built-in verses)")
	outDir       = flag.String("out", "./sample_songs", "directory to write the sample tree into")
	labels       = flag.String("labels", "English,Spanish", "comma separated label directories")
	perLabel     = flag.Int("count", 10, "documents per label")
	linesPerDoc  = flag.Int("lines", 4, "lines per document")
	withEmpty    = flag.Bool("empty", true, "also write one zero-length document per label")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// linesFromFile returns an iterator over non-blank lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// cycle repeats source forever.
func cycle(source iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			empty := true
			for line := range source {
				empty = false
				if !yield(line) {
					return
				}
			}
			if empty {
				return
			}
		}
	}
}

// writeDocuments fills dir with count documents of n lines each.
func writeDocuments(dir, label string, next func() (string, bool), count, n int) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	written := 0
	for i := 0; i < count; i++ {
		lines := make([]string, 0, n)
		for len(lines) < n {
			line, ok := next()
			if !ok {
				break
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			break
		}

		var buf bytes.Buffer
		if err := extract.WriteDocx(&buf, lines); err != nil {
			return written, err
		}
		name := fmt.Sprintf("%s %03d.docx", label, i+1)
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func main() {
	flag.Parse()

	var source iter.Seq[string]
	if *seedFileName != "" {
		var err error
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(verses)
	}

	next, stop := iter.Pull(cycle(source))
	defer stop()

	for _, label := range strings.Split(*labels, ",") {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		dir := filepath.Join(*outDir, label)

		written, err := writeDocuments(dir, label, next, *perLabel, *linesPerDoc)
		if err != nil {
			panic(err)
		}
		if *withEmpty {
			if err := os.WriteFile(filepath.Join(dir, "empty.docx"), nil, 0o644); err != nil {
				panic(err)
			}
		}
		slog.Info("wrote sample documents", "label", label, "dir", dir, "documents", written)
	}

	fmt.Printf("Import with:\n  docimport run")
	for _, label := range strings.Split(*labels, ",") {
		if label = strings.TrimSpace(label); label != "" {
			fmt.Printf(" --source %s=%s", label, filepath.Join(*outDir, label))
		}
	}
	fmt.Println()
}
