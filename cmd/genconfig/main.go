// Package main writes config.default.toml from config.ExampleConfig, with each
// documented key annotated from config.ConfigDocs.
//
// go generate runs it from internal/config.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/trackpad/internal/atomicfile"
	"tools.zach/dev/trackpad/internal/config"
)

func main() {
	out := flag.String("o", "../../config.default.toml", "output path")
	flag.Parse()

	text, err := render(config.ExampleConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := atomicfile.Write(*out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", *out)
}

const header = `# ///////////////////////////////////////////////
# Trackpad Configuration
# ///////////////////////////////////////////////`

// render encodes cfg and annotates the output.
func render(cfg *config.Config) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", err
	}

	a := newAnnotator(config.ConfigDocs)
	a.line(header)
	a.line("")

	sc := bufio.NewScanner(&raw)
	for sc.Scan() {
		a.feed(strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	a.closeSection()
	return a.String(), nil
}

// ///////////////////////////////////////////////
// Annotator
// ///////////////////////////////////////////////

// annotator rewrites encoder output line by line, inserting section banners,
// key comments and commented-out alternatives.
type annotator struct {
	// docs maps dotted key paths to their documentation.
	docs map[string]config.FieldDoc
	// section is the dotted path of the table being written; empty at top level.
	section string
	// seen records keys the encoder emitted in the current section.
	seen map[string]bool
	// buf accumulates the annotated file.
	buf strings.Builder
}

func newAnnotator(docs map[string]config.FieldDoc) *annotator {
	return &annotator{docs: docs, seen: map[string]bool{}}
}

// String returns the annotated text ending in exactly one newline.
func (a *annotator) String() string {
	return strings.TrimRight(a.buf.String(), "\n") + "\n"
}

func (a *annotator) line(s string) {
	a.buf.WriteString(s)
	a.buf.WriteByte('\n')
}

// comment writes each line of text prefixed with "# ".
func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for l := range strings.SplitSeq(text, "\n") {
		a.line("# " + l)
	}
}

// feed handles one trimmed line of encoder output.
func (a *annotator) feed(l string) {
	switch {
	case l == "":
	case isTableHeader(l):
		a.closeSection()
		a.openSection(strings.Trim(l, "[] "), l)
	case strings.HasPrefix(l, "#") || !strings.Contains(l, "="):
		a.line(l)
	default:
		a.key(l)
	}
}

func (a *annotator) openSection(name, raw string) {
	a.section = name
	a.seen = map[string]bool{}
	a.line("")
	a.line("# ///// " + title(name) + " /////")
	a.line("")
	a.comment(a.docs[name].Comment)
	a.line(raw)
}

func (a *annotator) key(l string) {
	name, _, _ := strings.Cut(l, "=")
	path := a.path(strings.TrimSpace(name))
	a.seen[path] = true

	doc, ok := a.docs[path]
	a.comment(doc.Comment)
	a.line(l)
	if ok {
		for _, alt := range doc.Alternatives {
			a.line("# " + alt)
		}
	}
}

// closeSection writes the documented keys of the current section that the
// encoder left out, usually omitempty fields at their zero value. They appear
// only as comments, sorted by path.
func (a *annotator) closeSection() {
	if a.section == "" {
		return
	}
	for _, path := range a.missing() {
		doc := a.docs[path]
		a.line("")
		a.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			a.line("# " + alt)
		}
		a.seen[path] = true
	}
}

// missing returns documented direct children of the current section that
// were not emitted.
func (a *annotator) missing() []string {
	prefix := a.section + "."
	var paths []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || a.seen[path] {
			continue
		}
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (a *annotator) path(key string) string {
	if a.section == "" {
		return key
	}
	return a.section + "." + key
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// isTableHeader matches "[table]" but not "[[array]]".
func isTableHeader(l string) bool {
	return strings.HasPrefix(l, "[") && !strings.HasPrefix(l, "[[")
}

// title capitalizes the last segment of a dotted section: "display.assets"
// becomes "Assets".
func title(section string) string {
	last := section[strings.LastIndex(section, ".")+1:]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
