// Package difutil finds debug information files (DIFs) on disk and extracts
// the identifiers Sentry uses to match them against crash reports.
package difutil

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// FileType identifies the container format of a debug information file.
type FileType string

const (
	TypeELF      FileType = "elf"
	TypeMachO    FileType = "macho"
	TypePE       FileType = "pe"
	TypePDB      FileType = "pdb"
	TypeBreakpad FileType = "breakpad"
)

// AllTypes lists every supported file type.
var AllTypes = []FileType{TypeELF, TypeMachO, TypePE, TypePDB, TypeBreakpad}

// ParseType validates a file type name.
func ParseType(s string) (FileType, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported debug file type %q", s)
}

// DebugFile describes one debug information file found on disk.
type DebugFile struct {
	Path     string    `json:"path" yaml:"path"`
	Type     FileType  `json:"type" yaml:"type"`
	ID       uuid.UUID `json:"-" yaml:"-"`
	Age      uint32    `json:"-" yaml:"-"`
	Arch     string    `json:"arch,omitempty" yaml:"arch,omitempty"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Size     int64     `json:"size" yaml:"size"`
	Checksum string    `json:"sha1" yaml:"sha1"`
}

// DebugID returns the Sentry debug identifier: the UUID, followed by the
// hexadecimal age when it is non-zero.
func (f *DebugFile) DebugID() string {
	if f.ID == uuid.Nil {
		return ""
	}
	if f.Age == 0 {
		return f.ID.String()
	}
	return fmt.Sprintf("%s-%x", f.ID, f.Age)
}

var (
	elfMagic      = []byte("\x7fELF")
	pdbMagic      = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")
	breakpadMagic = []byte("MODULE ")
	peMagic       = []byte("MZ")
)

// machoMagics are the thin 32- and 64-bit Mach-O magics in both byte orders.
var machoMagics = [][]byte{
	{0xfe, 0xed, 0xfa, 0xce},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xcf, 0xfa, 0xed, 0xfe},
}

// Sniff returns the file type indicated by the leading bytes of a file, or
// "" when the header is not a known debug file format.
func Sniff(header []byte) FileType {
	switch {
	case bytes.HasPrefix(header, elfMagic):
		return TypeELF
	case bytes.HasPrefix(header, pdbMagic):
		return TypePDB
	case bytes.HasPrefix(header, breakpadMagic):
		return TypeBreakpad
	case bytes.HasPrefix(header, peMagic):
		return TypePE
	}
	for _, m := range machoMagics {
		if bytes.HasPrefix(header, m) {
			return TypeMachO
		}
	}
	return ""
}

// Inspect opens path and returns its description, or nil if the file is not
// a recognised debug information file.
func Inspect(path string) (*DebugFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, len(pdbMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	typ := Sniff(header[:n])
	if typ == "" {
		return nil, nil
	}

	dif := &DebugFile{Path: path, Type: typ}
	switch typ {
	case TypeELF:
		err = inspectELF(f, dif)
	case TypeMachO:
		err = inspectMachO(f, dif)
	case TypePE:
		err = inspectPE(f, dif)
	case TypeBreakpad:
		err = inspectBreakpad(f, dif)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", typ, path, err)
	}

	if err := checksum(f, dif); err != nil {
		return nil, fmt.Errorf("checksum %s: %w", path, err)
	}
	return dif, nil
}

func checksum(f *os.File, dif *DebugFile) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	h := sha1.New()
	n, err := io.Copy(h, bufio.NewReader(f))
	if err != nil {
		return err
	}
	dif.Size = n
	dif.Checksum = hex.EncodeToString(h.Sum(nil))
	return nil
}
