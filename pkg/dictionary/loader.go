package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// LoadError reports a dictionary path that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dictionary %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// StoreConfig lists everything a static Store is built from.
type StoreConfig struct {
	SystemPaths     []string
	AdditionalPaths []string
	AddressBook     []NamePhonetic
	AddressBookCost int
	ProperNounAttr  uint16
}

// ReadText parses the tab separated dictionary format:
//
//	reading<TAB>surface<TAB>left<TAB>right<TAB>cost[<TAB>trievalue]
//
// Blank lines and lines starting with '#' are skipped. A surface may carry an
// SKK style ";annotation" suffix which is dropped. Missing trie values are
// numbered from 1 in file order.
func ReadText(r io.Reader) ([]*Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []*Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 || len(fields) > 6 {
			return nil, fmt.Errorf("line %d: expected 5 or 6 tab separated fields, got %d", lineNo, len(fields))
		}
		reading := utils.NormalizeKana(strings.TrimSpace(fields[0]))
		surface, _, _ := strings.Cut(strings.TrimSpace(fields[1]), ";")
		if reading == "" || surface == "" {
			return nil, fmt.Errorf("line %d: empty reading or surface", lineNo)
		}
		left, err := parseAttr(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: left attribute: %w", lineNo, err)
		}
		right, err := parseAttr(fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: right attribute: %w", lineNo, err)
		}
		cost, err := strconv.Atoi(strings.TrimSpace(fields[4]))
		if err != nil {
			return nil, fmt.Errorf("line %d: cost: %w", lineNo, err)
		}
		value := uint32(len(entries) + 1)
		if len(fields) == 6 {
			v, err := strconv.ParseUint(strings.TrimSpace(fields[5]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: trie value: %w", lineNo, err)
			}
			value = uint32(v)
		}
		entries = append(entries, &Entry{
			Surface:   surface,
			Reading:   reading,
			LeftAttr:  left,
			RightAttr: right,
			Cost:      cost,
			TrieValue: value,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseAttr(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// ReadBinary decodes the compiled format produced by WriteBinary.
func ReadBinary(r io.Reader) ([]*Entry, error) {
	reader := bufio.NewReader(r)

	var total int32
	if err := binary.Read(reader, binary.LittleEndian, &total); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if total < 0 || total > MaxBinaryEntries {
		return nil, fmt.Errorf("invalid entry count %d", total)
	}

	entries := make([]*Entry, 0, total)
	for i := 0; i < int(total); i++ {
		reading, err := readString(reader)
		if err != nil {
			return nil, fmt.Errorf("entry %d: reading: %w", i, err)
		}
		surface, err := readString(reader)
		if err != nil {
			return nil, fmt.Errorf("entry %d: surface: %w", i, err)
		}
		var rec struct {
			Left, Right uint16
			Cost        int32
			Value       uint32
		}
		if err := binary.Read(reader, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("entry %d: attributes: %w", i, err)
		}
		if reading == "" || surface == "" {
			return nil, fmt.Errorf("entry %d: empty reading or surface", i)
		}
		entries = append(entries, &Entry{
			Surface:   surface,
			Reading:   utils.NormalizeKana(reading),
			LeftAttr:  rec.Left,
			RightAttr: rec.Right,
			Cost:      int(rec.Cost),
			TrieValue: rec.Value,
		})
	}
	return entries, nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteBinary encodes entries in the compiled dictionary format.
func WriteBinary(w io.Writer, entries []*Entry) error {
	if len(entries) > MaxBinaryEntries {
		return fmt.Errorf("too many entries: %d", len(entries))
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(entries))); err != nil {
		return err
	}
	for i, e := range entries {
		if len(e.Reading) > math.MaxUint16 || len(e.Surface) > math.MaxUint16 {
			return fmt.Errorf("entry %d: string too long", i)
		}
		if e.Cost > math.MaxInt32 || e.Cost < math.MinInt32 {
			return fmt.Errorf("entry %d: cost %d out of range", i, e.Cost)
		}
		for _, s := range []string{e.Reading, e.Surface} {
			if err := binary.Write(bw, binary.LittleEndian, uint16(len(s))); err != nil {
				return err
			}
			if _, err := bw.WriteString(s); err != nil {
				return err
			}
		}
		rec := struct {
			Left, Right uint16
			Cost        int32
			Value       uint32
		}{e.LeftAttr, e.RightAttr, int32(e.Cost), e.TrieValue}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadFile reads one dictionary file, picking the decoder from its extension.
func LoadFile(path string) ([]*Entry, error) {
	format := DetectFileFormat(path)
	if format != FormatText && format != FormatBinary {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported dictionary format")}
	}
	if err := ValidateFileFormat(path, format); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	var entries []*Entry
	if format == FormatBinary {
		entries, err = ReadBinary(file)
	} else {
		entries, err = ReadText(file)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	log.Debugf("Loaded %d entries from %s (%s)", len(entries), path, format)
	return entries, nil
}

// LoadMatrix reads a connection matrix file.
func LoadMatrix(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()
	m, err := ReadMatrix(file)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	rights, lefts := m.Size()
	log.Debugf("Loaded %dx%d connection matrix from %s", rights, lefts, path)
	return m, nil
}

// expandPath turns a dictionary path into the files it stands for. A directory
// contributes every dictionary file inside it (sorted) plus its matrix, if any.
func expandPath(path string) (files []string, matrix string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if !info.IsDir() {
		return []string{path}, "", nil
	}
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, "", err
	}
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		full := filepath.Join(path, de.Name())
		switch DetectFileFormat(full) {
		case FormatText, FormatBinary:
			files = append(files, full)
		case FormatMatrix:
			matrix = full
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, "", errors.New("no dictionary files found")
	}
	return files, matrix, nil
}

type loadedPath struct {
	entries []*Entry
	matrix  *Matrix
}

// loadPath reads every file behind one configured path.
func loadPath(path string) (*loadedPath, error) {
	files, matrixPath, err := expandPath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	out := &loadedPath{}
	for _, f := range files {
		entries, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		out.entries = append(out.entries, entries...)
	}
	if matrixPath != "" {
		if out.matrix, err = LoadMatrix(matrixPath); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadStore builds the static dictionary store. Paths are read in parallel;
// the first failure aborts the whole build and no Store is returned.
func LoadStore(cfg StoreConfig) (*Store, error) {
	paths := append(append([]string{}, cfg.SystemPaths...), cfg.AdditionalPaths...)
	results := make([]*loadedPath, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			res, err := loadPath(p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matrix *Matrix
	layers := make([]*Layer, 0, len(paths)+1)
	for i, res := range results {
		source, index := SourceSystem, i
		if i >= len(cfg.SystemPaths) {
			source, index = SourceAdditional, i-len(cfg.SystemPaths)
		}
		if res.matrix != nil {
			if matrix == nil && source == SourceSystem {
				matrix = res.matrix
			} else {
				log.Warnf("Ignoring extra connection matrix under %s", paths[i])
			}
		}
		layers = append(layers, NewLayer(paths[i], source, index, res.entries))
	}
	if len(cfg.AddressBook) > 0 {
		layers = append(layers, AddressBookLayer(cfg.AddressBook, cfg.AddressBookCost, cfg.ProperNounAttr))
	}
	return NewStore(matrix, layers...), nil
}

// AddressBookLayer turns name/phonetic pairs into a dictionary layer.
// Pairs with an empty name or phonetic are skipped.
func AddressBookLayer(pairs []NamePhonetic, cost int, attr uint16) *Layer {
	entries := make([]*Entry, 0, len(pairs))
	for i, p := range pairs {
		name := strings.TrimSpace(p.Name)
		reading := utils.NormalizeKana(strings.TrimSpace(p.Phonetic))
		if name == "" || reading == "" {
			continue
		}
		entries = append(entries, &Entry{
			Surface:   name,
			Reading:   reading,
			LeftAttr:  attr,
			RightAttr: attr,
			Cost:      cost,
			TrieValue: uint32(i + 1),
		})
	}
	return NewLayer("addressbook", SourceAddressBook, 0, entries)
}
