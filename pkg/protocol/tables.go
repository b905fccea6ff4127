package protocol

// Unit and flag labels as they appear in the bitfield table.
const (
	LabelAC       = "AC"
	LabelDC       = "DC"
	LabelAuto     = "AUTO"
	LabelRS232    = "RS232"
	LabelBeep     = "beep"
	LabelDelta    = "REL delta"
	LabelHold     = "Hold"
	LabelDiode    = "diode"
	LabelDuty     = "duty-cycle"
	LabelFarad    = "F"
	LabelOhms     = "Ohms"
	LabelAmps     = "A"
	LabelVolts    = "V"
	LabelHertz    = "Hertz"
	LabelCelsius  = "degC"
	LabelNano     = "n"
	LabelMicro    = "u"
	LabelMilli    = "m"
	LabelKilo     = "k"
	LabelMega     = "M"
	LabelLowBatt  = "other_13_1"
	LabelOther144 = "other_14_4"
	LabelOther142 = "other_14_2"
	LabelOther141 = "other_14_1"
)

type nibblePair struct {
	a, b byte
}

// Segment patterns split over two nibbles. The first nibble has its high
// bit stripped before lookup.
var digitTable = map[nibblePair]rune{
	{7, 13}: '0',
	{0, 5}:  '1',
	{5, 11}: '2',
	{1, 15}: '3',
	{2, 7}:  '4',
	{3, 14}: '5',
	{7, 14}: '6',
	{1, 5}:  '7',
	{7, 15}: '8',
	{3, 15}: '9',
	{6, 8}:  'L',
	{0, 0}:  ' ',
}

// Frame positions of the four digit pairs, most significant digit first.
var digitPositions = [4][2]int{{2, 3}, {4, 5}, {6, 7}, {8, 9}}

type bitLabel struct {
	category Category
	label    string
}

type flagByte struct {
	position int
	// bits 8, 4, 2, 1 in that order
	bits [4]bitLabel
}

// Mirrors the meter's wiring; do not reorder.
var flagTable = []flagByte{
	{1, [4]bitLabel{
		{CategoryFlags, LabelAC}, {CategoryFlags, LabelDC},
		{CategoryFlags, LabelAuto}, {CategoryFlags, LabelRS232},
	}},
	{10, [4]bitLabel{
		{CategoryScale, LabelMicro}, {CategoryScale, LabelNano},
		{CategoryScale, LabelKilo}, {CategoryMeasure, LabelDiode},
	}},
	{11, [4]bitLabel{
		{CategoryScale, LabelMilli}, {CategoryMeasure, LabelDuty},
		{CategoryScale, LabelMega}, {CategoryFlags, LabelBeep},
	}},
	{12, [4]bitLabel{
		{CategoryMeasure, LabelFarad}, {CategoryMeasure, LabelOhms},
		{CategoryFlags, LabelDelta}, {CategoryFlags, LabelHold},
	}},
	{13, [4]bitLabel{
		{CategoryMeasure, LabelAmps}, {CategoryMeasure, LabelVolts},
		{CategoryMeasure, LabelHertz}, {CategoryOther, LabelLowBatt},
	}},
	{14, [4]bitLabel{
		{CategoryOther, LabelOther144}, {CategoryMeasure, LabelCelsius},
		{CategoryOther, LabelOther142}, {CategoryOther, LabelOther141},
	}},
}
