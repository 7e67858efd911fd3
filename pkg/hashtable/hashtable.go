// Package hashtable resolves 32-bit script hashes to names.
//
// One table is loaded per supported game from a text resource of
// `hex_hash,name` lines. Tables are read-only once loaded and may be shared
// by every decode session of a run.
package hashtable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Placeholder prefixes used when a hash has no known name.
const (
	PrefixFunction  = "function"
	PrefixNamespace = "namespace"
	PrefixVariable  = "var"
	PrefixHash      = "hash"
)

// Table maps hashes to names for a single game.
type Table struct {
	Game  string
	names map[uint32]string
}

// FromMap builds a table from an in-memory map. The map is copied.
func FromMap(game string, m map[uint32]string) *Table {
	t := &Table{Game: game, names: make(map[uint32]string, len(m))}
	for k, v := range m {
		t.names[k] = v
	}
	return t
}

// Load parses a hash table. Blank lines, lines starting with '#' and lines
// that do not parse as `hex,name` are ignored; a later line for the same hash
// overrides an earlier one.
func Load(game string, r io.Reader) (*Table, error) {
	t := &Table{Game: game, names: make(map[uint32]string)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	skipped := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		h, name, ok := parseLine(line)
		if !ok {
			skipped++
			continue
		}
		t.names[h] = name
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s hash table", game)
	}
	if skipped > 0 {
		glog.V(1).Infof("%s: ignored %d malformed hash lines", game, skipped)
	}
	return t, nil
}

func parseLine(line string) (uint32, string, bool) {
	comma := strings.IndexByte(line, ',')
	if comma <= 0 {
		return 0, "", false
	}
	hex := strings.TrimSpace(line[:comma])
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(line[comma+1:])
	if name == "" {
		return 0, "", false
	}
	return uint32(v), name, true
}

// LoadFile loads a table from a file.
func LoadFile(game, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open hash table '%s'", path)
	}
	defer f.Close()
	return Load(game, f)
}

// LoadSet loads <dir>/<game>.txt for every game that has one. Games with no
// file get an empty table so every lookup falls back to a placeholder.
func LoadSet(dir string, games []string) (map[string]*Table, error) {
	set := make(map[string]*Table, len(games))
	for _, game := range games {
		path := filepath.Join(dir, game+".txt")
		if _, err := os.Stat(path); err != nil {
			glog.Warningf("no hash table for %s (%s)", game, path)
			set[game] = FromMap(game, nil)
			continue
		}
		t, err := LoadFile(game, path)
		if err != nil {
			return nil, err
		}
		glog.Infof("loaded %d hashes for %s", t.Len(), game)
		set[game] = t
	}
	return set, nil
}

// Len returns the number of known hashes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Lookup returns the name for hash, if known. A nil table knows nothing.
func (t *Table) Lookup(hash uint32) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[hash]
	return name, ok
}

// Resolve returns the name for hash, or "<prefix>_<hex>" when unknown.
func (t *Table) Resolve(hash uint32, prefix string) string {
	if name, ok := t.Lookup(hash); ok {
		return name
	}
	return Placeholder(hash, prefix)
}

// Placeholder returns the deterministic name used for an unknown hash.
func Placeholder(hash uint32, prefix string) string {
	return fmt.Sprintf("%s_%x", prefix, hash)
}
