package dma

// Register layouts of the first generation. Lock ids are shared between
// acquire and release, lock values are single bits and the tile length is
// stored in words minus one.

var aieTileBdProp = newBdProp(BdProp{
	Gen:       GenAIE,
	Tile:      TileTypeTile,
	Base:      0x1D000,
	Stride:    0x20,
	NumBds:    16,
	NumWords:  7,
	AddrAlign: 4,
	AddrShift: 2,
	LenUnit:   4,
	LenBias:   1,
},
	fieldDef{FieldLockAcqID, field(0, 22, 4)},
	fieldDef{FieldLockRelEn, field(0, 21, 1)},
	fieldDef{FieldLockRelVal, field(0, 20, 1)},
	fieldDef{FieldLockRelValEn, field(0, 19, 1)},
	fieldDef{FieldLockAcqEn, field(0, 18, 1)},
	fieldDef{FieldLockAcqVal, field(0, 17, 1)},
	fieldDef{FieldLockAcqValEn, field(0, 16, 1)},
	fieldDef{FieldBaseAddr, field(0, 0, 13)},

	fieldDef{FieldLockBAcqID, field(1, 22, 4)},
	fieldDef{FieldLockBRelEn, field(1, 21, 1)},
	fieldDef{FieldLockBRelVal, field(1, 20, 1)},
	fieldDef{FieldLockBRelValEn, field(1, 19, 1)},
	fieldDef{FieldLockBAcqEn, field(1, 18, 1)},
	fieldDef{FieldLockBAcqVal, field(1, 17, 1)},
	fieldDef{FieldLockBAcqValEn, field(1, 16, 1)},
	fieldDef{FieldBaseAddrB, field(1, 0, 13)},

	fieldDef{FieldXWrap, field(2, 24, 8)},
	fieldDef{FieldXOffset, field(2, 12, 12)},
	fieldDef{FieldXIncr, field(2, 0, 12)},

	fieldDef{FieldYWrap, field(3, 24, 8)},
	fieldDef{FieldYOffset, field(3, 12, 12)},
	fieldDef{FieldYIncr, field(3, 0, 12)},

	fieldDef{FieldPktType, field(4, 12, 3)},
	fieldDef{FieldPktID, field(4, 0, 5)},

	fieldDef{FieldBuffSelect, field(5, 8, 1)},
	fieldDef{FieldCurrPtr, field(5, 0, 8)},

	fieldDef{FieldValidBd, field(6, 31, 1)},
	fieldDef{FieldEnDoubleBuff, field(6, 30, 1)},
	fieldDef{FieldFifoMode, field(6, 28, 2)},
	fieldDef{FieldEnPkt, field(6, 27, 1)},
	fieldDef{FieldEnInterleave, field(6, 26, 1)},
	fieldDef{FieldInterleaveCount, field(6, 18, 8)},
	fieldDef{FieldUseNextBd, field(6, 17, 1)},
	fieldDef{FieldNextBd, field(6, 13, 4)},
	fieldDef{FieldLength, field(6, 0, 13)},
)

var aieShimBdProp = newBdProp(BdProp{
	Gen:       GenAIE,
	Tile:      TileTypeShim,
	Base:      0x1D000,
	Stride:    0x14,
	NumBds:    16,
	NumWords:  5,
	AddrAlign: 4,
	LenUnit:   4,
	BurstLens: []uint8{4, 8, 16},
},
	fieldDef{FieldBaseAddr, field(0, 0, 32)},

	fieldDef{FieldLength, field(1, 0, 32)},

	fieldDef{FieldBaseAddrHigh, field(2, 16, 16)},
	fieldDef{FieldNextBd, field(2, 12, 4)},
	fieldDef{FieldUseNextBd, field(2, 11, 1)},
	fieldDef{FieldValidBd, field(2, 10, 1)},
	fieldDef{FieldLockAcqID, field(2, 6, 4)},
	fieldDef{FieldLockRelEn, field(2, 5, 1)},
	fieldDef{FieldLockRelVal, field(2, 4, 1)},
	fieldDef{FieldLockRelValEn, field(2, 3, 1)},
	fieldDef{FieldLockAcqEn, field(2, 2, 1)},
	fieldDef{FieldLockAcqVal, field(2, 1, 1)},
	fieldDef{FieldLockAcqValEn, field(2, 0, 1)},

	fieldDef{FieldSmid, field(3, 28, 4)},
	fieldDef{FieldBurstLen, field(3, 24, 2)},
	fieldDef{FieldQos, field(3, 20, 4)},
	fieldDef{FieldSecure, field(3, 19, 1)},
	fieldDef{FieldCache, field(3, 15, 4)},

	fieldDef{FieldEnPkt, field(4, 15, 1)},
	fieldDef{FieldPktType, field(4, 12, 3)},
	fieldDef{FieldPktID, field(4, 0, 5)},
)

// aieStatusFields returns the status layout of channel ch of a status
// register shared by two channels.
func aieStatusFields(ch uint8) ChStatusFields {
	return ChStatusFields{
		Status:        field(0, 2*ch, 2),
		Stalled:       field(0, 4+ch, 1),
		QueueOverflow: field(0, 6+ch, 1),
		QueueSize:     field(0, 8+4*ch, 3),
		CurBd:         field(0, 16+4*ch, 4),
	}
}

var aieTileChProp = &ChProp{
	NumChannels:  2,
	MaxQueueSize: 4,
	CtrlBase:     [numDirections]uint32{S2MM: 0x1DE00, MM2S: 0x1DE10},
	CtrlStride:   8,
	QueueOffset:  4,
	StatusBase:   [numDirections]uint32{S2MM: 0x1DF00, MM2S: 0x1DF10},
	Enable:       field(0, 0, 1),
	Reset:        field(0, 1, 1),
	StartBd:      field(0, 0, 4),
	StatusFields: []ChStatusFields{aieStatusFields(0), aieStatusFields(1)},
}

var aieShimChProp = &ChProp{
	NumChannels:  2,
	MaxQueueSize: 4,
	CtrlBase:     [numDirections]uint32{S2MM: 0x1D140, MM2S: 0x1D150},
	CtrlStride:   8,
	QueueOffset:  4,
	StatusBase:   [numDirections]uint32{S2MM: 0x1D160, MM2S: 0x1D164},
	Enable:       field(0, 0, 1),
	Reset:        field(0, 1, 1),
	StartBd:      field(0, 0, 4),
	StatusFields: []ChStatusFields{aieStatusFields(0), aieStatusFields(1)},
}
