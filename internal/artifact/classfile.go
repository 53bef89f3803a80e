package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// ClassInfo is what the compiler recorded about a class file's origin
type ClassInfo struct {
	// Name is the binary class name, e.g. com/acme/Foo$1
	Name string
	// SourceFile is the SourceFile attribute, e.g. Foo.java; empty when compiled with -g:none
	SourceFile string
}

// ReadClassInfo parses the header, constant pool and class attributes of a .class file
func ReadClassInfo(path string) (ClassInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ClassInfo{}, err
	}
	defer f.Close()

	info, err := parseClass(bufio.NewReader(f))
	if err != nil {
		return ClassInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

type classReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (c *classReader) u1() uint8 {
	if c.err != nil {
		return 0
	}
	_, c.err = io.ReadFull(c.r, c.buf[:1])
	return c.buf[0]
}

func (c *classReader) u2() uint16 {
	if c.err != nil {
		return 0
	}
	_, c.err = io.ReadFull(c.r, c.buf[:2])
	return binary.BigEndian.Uint16(c.buf[:2])
}

func (c *classReader) u4() uint32 {
	if c.err != nil {
		return 0
	}
	_, c.err = io.ReadFull(c.r, c.buf[:4])
	return binary.BigEndian.Uint32(c.buf[:4])
}

func (c *classReader) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, c.err = io.ReadFull(c.r, b)
	return b
}

func (c *classReader) skip(n int64) {
	if c.err != nil {
		return
	}
	_, c.err = io.CopyN(io.Discard, c.r, n)
}

// skipMembers skips a fields or methods table
func (c *classReader) skipMembers() {
	count := c.u2()
	for i := 0; i < int(count) && c.err == nil; i++ {
		c.skip(6) // access_flags, name_index, descriptor_index
		c.skipAttributes()
	}
}

func (c *classReader) skipAttributes() {
	count := c.u2()
	for i := 0; i < int(count) && c.err == nil; i++ {
		c.skip(2)
		c.skip(int64(c.u4()))
	}
}

func parseClass(r io.Reader) (ClassInfo, error) {
	c := &classReader{r: r}

	if magic := c.u4(); c.err == nil && magic != classMagic {
		return ClassInfo{}, fmt.Errorf("not a class file (magic %#x)", magic)
	}
	c.skip(4) // minor_version, major_version

	count := c.u2()
	utf8 := make(map[uint16]string)
	classes := make(map[uint16]uint16)

	for i := uint16(1); i < count && c.err == nil; i++ {
		tag := c.u1()
		switch tag {
		case tagUtf8:
			utf8[i] = string(c.bytes(int(c.u2())))
		case tagClass:
			classes[i] = c.u2()
		case tagString, tagMethodType, tagModule, tagPackage:
			c.skip(2)
		case tagMethodHandle:
			c.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.skip(4)
		case tagLong, tagDouble:
			c.skip(8)
			i++ // eight-byte constants take two slots
		default:
			if c.err == nil {
				return ClassInfo{}, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
			}
		}
	}

	c.skip(2) // access_flags
	thisClass := c.u2()
	c.skip(2) // super_class
	c.skip(int64(c.u2()) * 2)
	c.skipMembers() // fields
	c.skipMembers() // methods

	info := ClassInfo{Name: utf8[classes[thisClass]]}

	attrCount := c.u2()
	for i := 0; i < int(attrCount) && c.err == nil; i++ {
		name := utf8[c.u2()]
		length := c.u4()
		if name == "SourceFile" && length == 2 {
			info.SourceFile = utf8[c.u2()]
			continue
		}
		c.skip(int64(length))
	}

	if c.err != nil {
		return ClassInfo{}, fmt.Errorf("truncated class file: %w", c.err)
	}
	return info, nil
}
