package difutil

import (
	"bufio"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	pageSize          = 4096
	ntGNUBuildID      = 3
	lcUUID            = 0x1b
	debugTypeCodeView = 2
	peDebugDirectory  = 6
)

// guidToUUID converts the leading 16 bytes of a little-endian GUID to a UUID
// by swapping its first three fields. Shorter input is zero padded.
func guidToUUID(b []byte) uuid.UUID {
	var id uuid.UUID
	copy(id[:], b)
	id[0], id[1], id[2], id[3] = id[3], id[2], id[1], id[0]
	id[4], id[5] = id[5], id[4]
	id[6], id[7] = id[7], id[6]
	return id
}

// hashText folds the first page of a .text section into 16 bytes. Sentry
// uses this as the identifier of ELF files without a GNU build id.
func hashText(text []byte) []byte {
	if len(text) > pageSize {
		text = text[:pageSize]
	}
	out := make([]byte, 16)
	for i, b := range text {
		out[i%16] ^= b
	}
	return out
}

func inspectELF(r io.ReaderAt, dif *DebugFile) error {
	f, err := elf.NewFile(r)
	if err != nil {
		return err
	}
	defer f.Close()

	dif.Arch = elfArch(f.Machine)

	id, err := elfBuildID(f)
	if err != nil {
		return err
	}
	if id == nil {
		text := f.Section(".text")
		if text == nil || text.Type == elf.SHT_NOBITS {
			return nil
		}
		data, err := text.Data()
		if err != nil {
			return fmt.Errorf("read .text: %w", err)
		}
		id = hashText(data)
	}

	if f.ByteOrder == binary.LittleEndian {
		dif.ID = guidToUUID(id)
	} else {
		copy(dif.ID[:], id)
	}
	return nil
}

// elfBuildID returns the descriptor of the NT_GNU_BUILD_ID note, or nil.
func elfBuildID(f *elf.File) ([]byte, error) {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_NOTE {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.Name, err)
		}
		for len(data) >= 12 {
			nameSize := int(f.ByteOrder.Uint32(data[0:4]))
			descSize := int(f.ByteOrder.Uint32(data[4:8]))
			noteType := f.ByteOrder.Uint32(data[8:12])
			nameEnd := 12 + align4(nameSize)
			descEnd := nameEnd + align4(descSize)
			if descEnd > len(data) {
				break
			}
			name := strings.TrimRight(string(data[12:12+nameSize]), "\x00")
			if name == "GNU" && noteType == ntGNUBuildID {
				return data[nameEnd : nameEnd+descSize], nil
			}
			data = data[descEnd:]
		}
	}
	return nil, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func elfArch(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "x86_64"
	case elf.EM_386:
		return "x86"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_ARM:
		return "arm"
	default:
		return strings.ToLower(strings.TrimPrefix(m.String(), "EM_"))
	}
}

func inspectMachO(r io.ReaderAt, dif *DebugFile) error {
	f, err := macho.NewFile(r)
	if err != nil {
		return err
	}
	defer f.Close()

	switch f.Cpu {
	case macho.CpuAmd64:
		dif.Arch = "x86_64"
	case macho.Cpu386:
		dif.Arch = "x86"
	case macho.CpuArm64:
		dif.Arch = "arm64"
	case macho.CpuArm:
		dif.Arch = "arm"
	default:
		dif.Arch = strings.ToLower(f.Cpu.String())
	}

	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) >= 24 && f.ByteOrder.Uint32(raw[0:4]) == lcUUID {
			copy(dif.ID[:], raw[8:24])
			break
		}
	}
	return nil
}

func inspectPE(r io.ReaderAt, dif *DebugFile) error {
	f, err := pe.NewFile(r)
	if err != nil {
		return err
	}
	defer f.Close()

	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		dif.Arch = "x86_64"
		if oh.NumberOfRvaAndSizes > peDebugDirectory {
			dir = oh.DataDirectory[peDebugDirectory]
		}
	case *pe.OptionalHeader32:
		dif.Arch = "x86"
		if oh.NumberOfRvaAndSizes > peDebugDirectory {
			dir = oh.DataDirectory[peDebugDirectory]
		}
	}
	if f.Machine == pe.IMAGE_FILE_MACHINE_ARM64 {
		dif.Arch = "arm64"
	}
	if dir.Size == 0 {
		return nil
	}

	var sect *pe.Section
	for _, s := range f.Sections {
		if dir.VirtualAddress >= s.VirtualAddress && dir.VirtualAddress < s.VirtualAddress+s.VirtualSize {
			sect = s
			break
		}
	}
	if sect == nil {
		return errors.New("debug directory outside of any section")
	}

	entries := make([]byte, dir.Size)
	if _, err := sect.ReadAt(entries, int64(dir.VirtualAddress-sect.VirtualAddress)); err != nil {
		return fmt.Errorf("read debug directory: %w", err)
	}

	// IMAGE_DEBUG_DIRECTORY entries are 28 bytes each.
	for off := 0; off+28 <= len(entries); off += 28 {
		e := entries[off : off+28]
		if binary.LittleEndian.Uint32(e[12:16]) != debugTypeCodeView {
			continue
		}
		size := binary.LittleEndian.Uint32(e[16:20])
		ptr := binary.LittleEndian.Uint32(e[24:28])
		if size < 24 {
			continue
		}
		cv := make([]byte, 24)
		if _, err := r.ReadAt(cv, int64(ptr)); err != nil {
			return fmt.Errorf("read codeview record: %w", err)
		}
		if string(cv[0:4]) != "RSDS" {
			continue
		}
		dif.ID = guidToUUID(cv[4:20])
		dif.Age = binary.LittleEndian.Uint32(cv[20:24])
		return nil
	}
	return nil
}

// inspectBreakpad parses the "MODULE <os> <arch> <id> <name>" header line.
func inspectBreakpad(r io.ReadSeeker, dif *DebugFile) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}

	fields := strings.Fields(line)
	if len(fields) < 5 {
		return fmt.Errorf("malformed MODULE record %q", strings.TrimSpace(line))
	}
	dif.Arch = fields[2]
	dif.Name = strings.Join(fields[4:], " ")

	id, age, err := parseBreakpadID(fields[3])
	if err != nil {
		return err
	}
	dif.ID = id
	dif.Age = age
	return nil
}

// parseBreakpadID splits a breakpad identifier into its GUID (32 hex digits)
// and trailing hexadecimal age.
func parseBreakpadID(s string) (uuid.UUID, uint32, error) {
	if len(s) < 32 {
		return uuid.Nil, 0, fmt.Errorf("breakpad id %q too short", s)
	}
	raw, err := hex.DecodeString(s[:32])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("breakpad id %q: %w", s, err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, 0, err
	}

	var age uint64
	if rest := s[32:]; rest != "" {
		age, err = strconv.ParseUint(rest, 16, 32)
		if err != nil {
			return uuid.Nil, 0, fmt.Errorf("breakpad age %q: %w", rest, err)
		}
	}
	return id, uint32(age), nil
}
