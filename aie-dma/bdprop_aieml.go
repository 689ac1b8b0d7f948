package dma

// Register layouts of AIE-ML. Lock values are signed, step sizes and
// iteration parameters are stored minus one and every tile class supports
// up to four addressing dimensions plus BD iteration.

// aieMlLockFields returns the lock word shared by the tile and shim BDs.
func aieMlLockFields(idx uint8) []fieldDef {
	return []fieldDef{
		{FieldTlastSuppress, field(idx, 31, 1)},
		{FieldNextBd, field(idx, 27, 4)},
		{FieldUseNextBd, field(idx, 26, 1)},
		{FieldValidBd, field(idx, 25, 1)},
		{FieldLockRelVal, signedField(idx, 18, 7)},
		{FieldLockRelID, field(idx, 13, 4)},
		{FieldLockAcqEn, field(idx, 12, 1)},
		{FieldLockAcqVal, signedField(idx, 5, 7)},
		{FieldLockAcqID, field(idx, 0, 4)},
	}
}

var aieMlTileBdProp = newBdProp(BdProp{
	Gen:       GenAIEML,
	Tile:      TileTypeTile,
	Base:      0x1D000,
	Stride:    0x20,
	NumBds:    16,
	NumWords:  6,
	AddrAlign: 4,
	AddrShift: 2,
	LenUnit:   4,
}, append([]fieldDef{
	{FieldBaseAddr, field(0, 14, 14)},
	{FieldLength, field(0, 0, 14)},

	{FieldEnCompression, field(1, 31, 1)},
	{FieldEnPkt, field(1, 30, 1)},
	{FieldOutOfOrderBdID, field(1, 24, 6)},
	{FieldPktID, field(1, 19, 5)},
	{FieldPktType, field(1, 16, 3)},

	{FieldD1Step, field(2, 13, 13)},
	{FieldD0Step, field(2, 0, 13)},

	{FieldD1Wrap, field(3, 21, 8)},
	{FieldD0Wrap, field(3, 13, 8)},
	{FieldD2Step, field(3, 0, 13)},

	{FieldIterCurr, field(4, 19, 6)},
	{FieldIterWrap, field(4, 13, 6)},
	{FieldIterStep, field(4, 0, 13)},
}, aieMlLockFields(5)...)...)

var aieMlShimBdProp = newBdProp(BdProp{
	Gen:       GenAIEML,
	Tile:      TileTypeShim,
	Base:      0x1D000,
	Stride:    0x20,
	NumBds:    16,
	NumWords:  8,
	AddrAlign: 4,
	LenUnit:   4,
	BurstLens: []uint8{4, 8, 16},
}, append([]fieldDef{
	{FieldLength, field(0, 0, 32)},

	{FieldBaseAddr, field(1, 2, 30)},

	{FieldEnPkt, field(2, 30, 1)},
	{FieldOutOfOrderBdID, field(2, 24, 6)},
	{FieldPktID, field(2, 19, 5)},
	{FieldPktType, field(2, 16, 3)},
	{FieldBaseAddrHigh, field(2, 0, 16)},

	{FieldSecure, field(3, 30, 1)},
	{FieldD0Wrap, field(3, 20, 10)},
	{FieldD0Step, field(3, 0, 20)},

	{FieldBurstLen, field(4, 30, 2)},
	{FieldD1Wrap, field(4, 20, 10)},
	{FieldD1Step, field(4, 0, 20)},

	{FieldSmid, field(5, 28, 4)},
	{FieldQos, field(5, 24, 4)},
	{FieldCache, field(5, 20, 4)},
	{FieldD2Step, field(5, 0, 20)},

	{FieldIterCurr, field(6, 26, 6)},
	{FieldIterWrap, field(6, 20, 6)},
	{FieldIterStep, field(6, 0, 20)},
}, aieMlLockFields(7)...)...)

var aieMlMemTileBdProp = newBdProp(BdProp{
	Gen:       GenAIEML,
	Tile:      TileTypeMemTile,
	Base:      0xA0000,
	Stride:    0x20,
	NumBds:    48,
	NumWords:  8,
	AddrAlign: 4,
	AddrShift: 2,
	LenUnit:   4,
},
	fieldDef{FieldEnPkt, field(0, 31, 1)},
	fieldDef{FieldPktType, field(0, 28, 3)},
	fieldDef{FieldPktID, field(0, 23, 5)},
	fieldDef{FieldOutOfOrderBdID, field(0, 17, 6)},
	fieldDef{FieldLength, field(0, 0, 17)},

	fieldDef{FieldD0PadBefore, field(1, 26, 6)},
	fieldDef{FieldNextBd, field(1, 20, 6)},
	fieldDef{FieldUseNextBd, field(1, 19, 1)},
	fieldDef{FieldBaseAddr, field(1, 0, 19)},

	fieldDef{FieldTlastSuppress, field(2, 31, 1)},
	fieldDef{FieldD0Wrap, field(2, 17, 10)},
	fieldDef{FieldD0Step, field(2, 0, 17)},

	fieldDef{FieldD1PadBefore, field(3, 27, 5)},
	fieldDef{FieldD1Wrap, field(3, 17, 10)},
	fieldDef{FieldD1Step, field(3, 0, 17)},

	fieldDef{FieldEnCompression, field(4, 31, 1)},
	fieldDef{FieldD2PadBefore, field(4, 27, 4)},
	fieldDef{FieldD2Wrap, field(4, 17, 10)},
	fieldDef{FieldD2Step, field(4, 0, 17)},

	fieldDef{FieldD2PadAfter, field(5, 28, 4)},
	fieldDef{FieldD1PadAfter, field(5, 23, 5)},
	fieldDef{FieldD0PadAfter, field(5, 17, 6)},
	fieldDef{FieldD3Step, field(5, 0, 17)},

	fieldDef{FieldIterCurr, field(6, 23, 6)},
	fieldDef{FieldIterWrap, field(6, 17, 6)},
	fieldDef{FieldIterStep, field(6, 0, 17)},

	fieldDef{FieldValidBd, field(7, 31, 1)},
	fieldDef{FieldLockRelVal, signedField(7, 24, 7)},
	fieldDef{FieldLockRelID, field(7, 16, 8)},
	fieldDef{FieldLockAcqEn, field(7, 15, 1)},
	fieldDef{FieldLockAcqVal, signedField(7, 8, 7)},
	fieldDef{FieldLockAcqID, field(7, 0, 8)},
)

var aieMlStatusFields = ChStatusFields{
	Status:              field(0, 0, 2),
	StalledLockAcq:      field(0, 2, 1),
	StalledLockRel:      field(0, 3, 1),
	StalledStreamStarve: field(0, 4, 1),
	StalledTCT:          field(0, 5, 1),
	QueueOverflow:       field(0, 18, 1),
	ChannelRunning:      field(0, 19, 1),
	QueueSize:           field(0, 20, 3),
	CurBd:               field(0, 24, 6),
}

// aieMlChProp fills in the control and queue fields common to all AIE-ML
// tile classes.
func aieMlChProp(c ChProp, startBdWidth uint8) *ChProp {
	c.MaxQueueSize = 4
	c.QueueOffset = 4
	c.Enable = field(0, 0, 1)
	c.Reset = field(0, 1, 1)
	c.EnOutOfOrder = field(0, 3, 1)
	c.EnCompress = field(0, 4, 1)
	c.ControllerID = field(0, 8, 8)
	c.FoTMode = field(0, 16, 2)
	c.StartBd = field(0, 0, startBdWidth)
	c.RepeatCount = field(0, 16, 8)
	c.EnTokenIssue = field(0, 31, 1)
	c.StatusFields = make([]ChStatusFields, c.NumChannels)
	for i := range c.StatusFields {
		c.StatusFields[i] = aieMlStatusFields
	}
	return &c
}

var aieMlTileChProp = aieMlChProp(ChProp{
	NumChannels:  2,
	CtrlBase:     [numDirections]uint32{S2MM: 0x1DE00, MM2S: 0x1DE10},
	CtrlStride:   8,
	StatusBase:   [numDirections]uint32{S2MM: 0x1DF00, MM2S: 0x1DF10},
	StatusStride: 4,
}, 4)

var aieMlShimChProp = aieMlChProp(ChProp{
	NumChannels:  2,
	CtrlBase:     [numDirections]uint32{S2MM: 0x1D200, MM2S: 0x1D210},
	CtrlStride:   8,
	StatusBase:   [numDirections]uint32{S2MM: 0x1D220, MM2S: 0x1D228},
	StatusStride: 4,
}, 4)

var aieMlMemTileChProp = aieMlChProp(ChProp{
	NumChannels:  6,
	CtrlBase:     [numDirections]uint32{S2MM: 0xA0600, MM2S: 0xA0630},
	CtrlStride:   8,
	StatusBase:   [numDirections]uint32{S2MM: 0xA0660, MM2S: 0xA0680},
	StatusStride: 4,
}, 6)
