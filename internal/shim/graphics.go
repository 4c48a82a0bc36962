package shim

// GraphicsSound is the narrow interface for PSET/LINE/CIRCLE/PAINT/
// DRAW/PLAY/POINT/SCREEN/COLOR/BEEP/SOUND. The default implementation
// here accepts every call and renders nothing — a real CGA/EGA framebuffer
// and PC speaker are out of this module's scope per its external-shim
// boundary, but programs that call these statements still need a
// target that accepts the calls instead of failing to compile against
// the interface.
type GraphicsSound interface {
	Pset(x, y, color int)
	Line(x1, y1, x2, y2, color int, style string) // style: "", "B", "BF"
	Circle(x, y, radius int, color int, start, end, aspect float64)
	Paint(x, y, color, border int)
	Draw(mml string)
	Play(mml string)
	Point(x, y int) int
	Cls()
	SetColor(fg, bg, border int)
	ScreenMode(mode int)
	Beep()
	Tone(freqHz, ms int)
}

// NullGraphics discards every call, matching a machine with SCREEN 0
// and no sound card attached.
type NullGraphics struct {
	lastPointX, lastPointY int
}

func (NullGraphics) Pset(x, y, color int)                                {}
func (NullGraphics) Line(x1, y1, x2, y2, color int, style string)        {}
func (NullGraphics) Circle(x, y, radius, color int, start, end, aspect float64) {}
func (NullGraphics) Paint(x, y, color, border int)                      {}
func (NullGraphics) Draw(mml string)                                    {}
func (NullGraphics) Play(mml string)                                    {}
func (NullGraphics) Point(x, y int) int                                 { return -1 }
func (NullGraphics) Cls()                                               {}
func (NullGraphics) SetColor(fg, bg, border int)                        {}
func (NullGraphics) ScreenMode(mode int)                                {}
func (NullGraphics) Beep()                                              {}
func (NullGraphics) Tone(freqHz, ms int)                                {}
