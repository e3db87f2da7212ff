package ebase

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Container layout (all integers little-endian):
//
//	magic "EBSE" | version u32 | tableCount u32 | poolOffset u32 | poolLength u32
//	tableCount directory entries:
//	    name [16]byte NUL-padded | offset u32 | length u32 | rowSize u32 | rowCount u32
//	table blobs and string pool at their recorded offsets
//
// The entry length is authoritative: corrupted tables are physically shorter
// than rowSize*rowCount, which is exactly what the decoder repairs.
const (
	containerMagic = "EBSE"
	headerSize     = 20
	entrySize      = 32
)

// Table is one raw table blob of a container.
type Table struct {
	Name     string
	RowSize  int
	RowCount int
	Data     []byte
}

// Container is an opened pdata.ebase file: a directory of fixed-schema table
// blobs plus one shared string pool.
type Container struct {
	Version uint32
	Pool    *StringPool
	tables  map[string]Table
}

// Table returns the named table blob.
func (c *Container) Table(name string) (Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames lists the contained tables in stable order.
func (c *Container) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReadContainer parses a raw pdata.ebase file. Structural problems at this
// level (bad magic, out-of-bounds directory entries) are hard errors; the
// caller isolates them per manufacturer.
func ReadContainer(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("ebase: file too short for header (%d bytes)", len(data))
	}
	if string(data[0:4]) != containerMagic {
		return nil, fmt.Errorf("ebase: bad magic %q", string(data[0:4]))
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	tableCount := int(binary.LittleEndian.Uint32(data[8:12]))
	poolOff := int(binary.LittleEndian.Uint32(data[12:16]))
	poolLen := int(binary.LittleEndian.Uint32(data[16:20]))

	if poolOff < 0 || poolLen < 0 || poolOff+poolLen > len(data) {
		return nil, fmt.Errorf("ebase: string pool [%d:%d] outside file of %d bytes", poolOff, poolOff+poolLen, len(data))
	}
	dirEnd := headerSize + tableCount*entrySize
	if tableCount < 0 || dirEnd > len(data) {
		return nil, fmt.Errorf("ebase: directory of %d entries exceeds file", tableCount)
	}

	c := &Container{
		Version: version,
		Pool:    NewStringPool(data[poolOff : poolOff+poolLen]),
		tables:  make(map[string]Table, tableCount),
	}

	for i := 0; i < tableCount; i++ {
		e := data[headerSize+i*entrySize : headerSize+(i+1)*entrySize]
		name := strings.TrimRight(string(e[0:16]), "\x00")
		offset := int(binary.LittleEndian.Uint32(e[16:20]))
		length := int(binary.LittleEndian.Uint32(e[20:24]))
		rowSize := int(binary.LittleEndian.Uint32(e[24:28]))
		rowCount := int(binary.LittleEndian.Uint32(e[28:32]))

		if offset < 0 || length < 0 || offset+length > len(data) {
			return nil, fmt.Errorf("ebase: table %q blob [%d:%d] outside file of %d bytes", name, offset, offset+length, len(data))
		}
		c.tables[name] = Table{
			Name:     name,
			RowSize:  rowSize,
			RowCount: rowCount,
			Data:     data[offset : offset+length],
		}
	}
	return c, nil
}

// ReadContainerFile opens and parses a pdata.ebase file from disk.
func ReadContainerFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ebase: reading %s: %w", path, err)
	}
	c, err := ReadContainer(data)
	if err != nil {
		return nil, fmt.Errorf("ebase: parsing %s: %w", path, err)
	}
	return c, nil
}
