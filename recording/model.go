package recording

import (
	"github.com/abs-tudelft/vhdmmio-sub000/addr"
	"github.com/abs-tudelft/vhdmmio-sub000/regfile"
)

// RegisterEntry is one row of the registers table.
type RegisterEntry struct {
	RegFile    string
	RegFileID  string
	Name       string
	Width      int
	BusWidth   int
	Endianness string
	Readable   bool
	Writable   bool
	CanDefer   bool
}

// BlockEntry is one row of the blocks table.
type BlockEntry struct {
	RegFile  string
	Register string
	Name     string
	Index    int
	Address  string
	Bits     string
}

// FieldEntry is one row of the fields table.
type FieldEntry struct {
	RegFile  string
	Register string
	Name     string
	High     int
	Low      int
	Readable bool
	Writable bool
}

// RecordCompiled writes the full model of a compiled register file
// into the registers, blocks and fields tables, creating them when
// they do not exist yet.
func RecordCompiled(recorder Recorder, compiled *regfile.Compiled) {
	ensureTables(recorder)

	width := compiled.AddressWidth()
	for _, register := range compiled.Registers() {
		_, canDefer := register.DeferTag(addr.Read)
		if !canDefer {
			_, canDefer = register.DeferTag(addr.Write)
		}

		recorder.Insert("registers", RegisterEntry{
			RegFile:    compiled.Name(),
			RegFileID:  compiled.ID(),
			Name:       register.Name(),
			Width:      register.Width(),
			BusWidth:   register.BusWidth(),
			Endianness: register.Endianness().String(),
			Readable:   register.Caps(addr.Read) != nil,
			Writable:   register.Caps(addr.Write) != nil,
			CanDefer:   canDefer,
		})

		for _, block := range register.Blocks() {
			recorder.Insert("blocks", BlockEntry{
				RegFile:  compiled.Name(),
				Register: register.Name(),
				Name:     block.Name,
				Index:    block.Index,
				Address:  block.Pattern.Render(width),
				Bits:     block.Pattern.BitString(width),
			})
		}

		for _, field := range register.Fields() {
			recorder.Insert("fields", FieldEntry{
				RegFile:  compiled.Name(),
				Register: register.Name(),
				Name:     field.Name,
				High:     field.High,
				Low:      field.Low,
				Readable: field.Caps.Read != nil,
				Writable: field.Caps.Write != nil,
			})
		}
	}

	recorder.Flush()
}

func ensureTables(recorder Recorder) {
	existing := make(map[string]bool)
	for _, name := range recorder.ListTables() {
		existing[name] = true
	}
	if !existing["registers"] {
		recorder.CreateTable("registers", RegisterEntry{})
	}
	if !existing["blocks"] {
		recorder.CreateTable("blocks", BlockEntry{})
	}
	if !existing["fields"] {
		recorder.CreateTable("fields", FieldEntry{})
	}
}
