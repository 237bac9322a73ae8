// Package memory implements the CPU and PPU address space decoding for
// the NES bus.
package memory

import "github.com/nesgrove/gones/internal/cartridge"

// Memory represents the NES CPU memory map.
type Memory struct {
	// Internal RAM (2KB, mirrored every 0x800 through $1FFF)
	ram [0x800]uint8

	ppuRegisters PPUInterface
	apuRegisters APUInterface
	inputSystem  InputInterface
	cartridge    CartridgeInterface

	dmaCallback func(uint8)

	// openBusValue is the last byte that crossed the bus, returned for
	// reads that hit unmapped regions.
	openBusValue uint8
}

// MirrorMode is an alias of cartridge.MirrorMode so PPU memory mirroring
// always follows the cartridge rather than a separately configured value.
type MirrorMode = cartridge.MirrorMode

const (
	MirrorHorizontal = cartridge.MirrorHorizontal
	MirrorVertical   = cartridge.MirrorVertical
	MirrorFourScreen = cartridge.MirrorFourScreen
)

// PPUMemory represents the PPU's own address space ($0000-$3FFF): pattern
// tables via the cartridge, nametables, and palette RAM.
type PPUMemory struct {
	vram       [0x1000]uint8 // up to 4KB VRAM (four-screen mirroring uses all of it)
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
	mirroring  MirrorMode
}

// PPUInterface defines the interface for PPU register access.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface defines the interface for APU register access.
type APUInterface interface {
	WriteRegister(address uint16, value uint8)
	ReadStatus() uint8
}

// InputInterface defines the interface for input system access.
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface defines the interface for cartridge access.
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// New creates a new Memory instance. RAM starts zero-initialized, matching
// Go's zero value for arrays — no invariant in this emulator depends on a
// particular power-up noise pattern.
func New(ppu PPUInterface, apu APUInterface, cart CartridgeInterface) *Memory {
	return &Memory{
		ppuRegisters: ppu,
		apuRegisters: apu,
		cartridge:    cart,
	}
}

// SetInputSystem sets the input system for controller access.
func (m *Memory) SetInputSystem(input InputInterface) {
	m.inputSystem = input
}

// SetDMACallback sets the DMA callback function, invoked on a $4014 write
// with the requested page.
func (m *Memory) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// Read reads a byte from the given CPU address.
func (m *Memory) Read(address uint16) uint8 {
	var value uint8

	switch {
	case address < 0x2000:
		value = m.ram[address&0x07FF]

	case address < 0x4000:
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		switch {
		case address == 0x4015:
			value = m.apuRegisters.ReadStatus()
		case address == 0x4016 || address == 0x4017:
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			}
		default:
			// Write-only APU/IO registers: open bus.
			value = m.openBusValue
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}

	case address < 0x8000:
		// $4020-$5FFF: unmapped expansion area, reads return 0.
		value = 0

	default:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}
	}

	m.openBusValue = value
	return value
}

// Write writes a byte to the given CPU address.
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value

	case address < 0x4000:
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		switch {
		case address == 0x4014:
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			} else {
				m.performOAMDMA(value)
			}
		case address == 0x4016:
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		case address >= 0x4000 && address <= 0x4013:
			m.apuRegisters.WriteRegister(address, value)
		case address == 0x4015:
			m.apuRegisters.WriteRegister(address, value)
		case address == 0x4017:
			m.apuRegisters.WriteRegister(address, value)
		}
		// $4018-$401F (APU/IO test mode) is ignored.

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}

	case address < 0x8000:
		// $4020-$5FFF unmapped: writes ignored.

	default:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}
	}
}

// performOAMDMA performs an immediate OAM DMA transfer when no DMA stall
// callback has been wired up (used by unit tests that exercise Memory in
// isolation from the bus driver).
func (m *Memory) performOAMDMA(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < 256; i++ {
		m.ppuRegisters.WriteRegister(0x2004, m.Read(base+i))
	}
}

// NewPPUMemory creates a new PPU memory instance.
func NewPPUMemory(cart CartridgeInterface, mirroring MirrorMode) *PPUMemory {
	mem := &PPUMemory{
		cartridge: cart,
		mirroring: mirroring,
	}
	for i := 0; i < 32; i += 4 {
		mem.paletteRAM[i] = 0x0F // universal background color: black
	}
	return mem
}

// SetMirroring updates the nametable mirroring mode, used when a cartridge
// is (re)loaded.
func (pm *PPUMemory) SetMirroring(mirroring MirrorMode) {
	pm.mirroring = mirroring
}

// Read reads from PPU memory space ($0000-$3FFF).
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		return pm.cartridge.ReadCHR(address)
	case address < 0x3000:
		return pm.readNametable(address)
	case address < 0x3F00:
		return pm.readNametable(address - 0x1000)
	default:
		return pm.readPalette(address)
	}
}

// Write writes to PPU memory space ($0000-$3FFF).
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)
	case address < 0x3000:
		pm.writeNametable(address, value)
	case address < 0x3F00:
		pm.writeNametable(address-0x1000, value)
	default:
		pm.writePalette(address, value)
	}
}

func (pm *PPUMemory) readNametable(address uint16) uint8 {
	return pm.vram[pm.getNametableIndex(address)]
}

func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	pm.vram[pm.getNametableIndex(address)] = value
}

// getNametableIndex calculates the physical VRAM index for a nametable
// address under the cartridge's mirroring mode.
func (pm *PPUMemory) getNametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch pm.mirroring {
	case MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset

	case MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset

	case MirrorFourScreen:
		return uint16(nametable)*0x400 + offset

	default:
		return offset
	}
}

// readPalette reads from palette RAM with the $10/$14/$18/$1C mirrors.
func (pm *PPUMemory) readPalette(address uint16) uint8 {
	index := (address - 0x3F00) & 0x1F
	if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1C {
		index &= 0x0F
	}
	return pm.paletteRAM[index]
}

// writePalette writes to palette RAM with the $10/$14/$18/$1C mirrors.
func (pm *PPUMemory) writePalette(address uint16, value uint8) {
	index := (address - 0x3F00) & 0x1F
	if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1C {
		index &= 0x0F
	}
	pm.paletteRAM[index] = value
}
