package shim

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"gwbasic/internal/gwerror"
)

// Mode is an OPEN file mode.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
	ModeAppend
	ModeRandom
)

// File is one open GW-BASIC file, addressed by its #number everywhere
// above this package.
type File struct {
	f          *os.File
	mode       Mode
	recLen     int
	reader     *bufio.Reader
	fieldBuf   []byte
	recordNum  int64
}

// FileSystem is the file contract the core's OPEN/CLOSE/PRINT#/INPUT#/
// FIELD/PUT/GET dispatch against.
type FileSystem struct {
	files map[int]*File
}

func NewFileSystem() *FileSystem {
	return &FileSystem{files: make(map[int]*File)}
}

func (fs *FileSystem) Open(number int, path string, mode Mode, recLen int) error {
	if number < 1 || number > 15 {
		return gwerror.New(gwerror.BadFileNumber)
	}
	if _, exists := fs.files[number]; exists {
		return gwerror.New(gwerror.FileAlreadyOpen)
	}
	var flag int
	switch mode {
	case ModeInput:
		flag = os.O_RDONLY
	case ModeOutput:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeRandom:
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return gwerror.New(gwerror.FileNotFound)
		}
		return gwerror.Wrap(gwerror.DeviceIOError, errors.Wrapf(err, "open %s", path))
	}
	if recLen <= 0 {
		recLen = 128
	}
	fs.files[number] = &File{
		f:        f,
		mode:     mode,
		recLen:   recLen,
		reader:   bufio.NewReader(f),
		fieldBuf: make([]byte, recLen),
	}
	return nil
}

func (fs *FileSystem) Close(number int) error {
	f, ok := fs.files[number]
	if !ok {
		return gwerror.New(gwerror.BadFileNumber)
	}
	delete(fs.files, number)
	if err := f.f.Close(); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return nil
}

// CloseAll closes every open file, the way NEW/CLEAR/end-of-program do.
func (fs *FileSystem) CloseAll() {
	for n := range fs.files {
		fs.Close(n)
	}
}

func (fs *FileSystem) get(number int) (*File, error) {
	f, ok := fs.files[number]
	if !ok {
		return nil, gwerror.New(gwerror.BadFileNumber)
	}
	return f, nil
}

// ReadLine reads one INPUT-mode line (without its terminator).
func (fs *FileSystem) ReadLine(number int) (string, error) {
	f, err := fs.get(number)
	if err != nil {
		return "", err
	}
	line, err := f.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	if err == io.EOF && line == "" {
		return "", gwerror.New(gwerror.InputPastEnd)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// ReadChars reads exactly n bytes for INPUT$(n,#f), erroring at
// end-of-file rather than returning a short read.
func (fs *FileSystem) ReadChars(number, n int) (string, error) {
	f, err := fs.get(number)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.reader, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", gwerror.New(gwerror.InputPastEnd)
		}
		return "", gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return string(buf), nil
}

// WriteBytes appends raw bytes for OUTPUT/APPEND-mode PRINT#/WRITE#.
func (fs *FileSystem) WriteBytes(number int, data []byte) error {
	f, err := fs.get(number)
	if err != nil {
		return err
	}
	if _, err := f.f.Write(data); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	return nil
}

// FieldBuffer returns the RANDOM-mode record buffer FIELD carves
// offsets into and LSET/RSET write through.
func (fs *FileSystem) FieldBuffer(number int) ([]byte, error) {
	f, err := fs.get(number)
	if err != nil {
		return nil, err
	}
	if f.mode != ModeRandom {
		return nil, gwerror.New(gwerror.BadFileMode)
	}
	return f.fieldBuf, nil
}

// Get reads record recordNum (1-based; 0 means "next") into the field
// buffer.
func (fs *FileSystem) Get(number int, recordNum int64) error {
	f, err := fs.get(number)
	if err != nil {
		return err
	}
	if f.mode != ModeRandom {
		return gwerror.New(gwerror.BadFileMode)
	}
	if recordNum <= 0 {
		recordNum = f.recordNum + 1
	}
	off := (recordNum - 1) * int64(f.recLen)
	n, err := f.f.ReadAt(f.fieldBuf, off)
	if err != nil && err != io.EOF {
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	for i := n; i < len(f.fieldBuf); i++ {
		f.fieldBuf[i] = 0
	}
	f.recordNum = recordNum
	return nil
}

// Put writes the field buffer out as record recordNum (0 means "next").
func (fs *FileSystem) Put(number int, recordNum int64) error {
	f, err := fs.get(number)
	if err != nil {
		return err
	}
	if f.mode != ModeRandom {
		return gwerror.New(gwerror.BadFileMode)
	}
	if recordNum <= 0 {
		recordNum = f.recordNum + 1
	}
	off := (recordNum - 1) * int64(f.recLen)
	if _, err := f.f.WriteAt(f.fieldBuf, off); err != nil {
		return gwerror.Wrap(gwerror.DeviceIOError, err)
	}
	f.recordNum = recordNum
	return nil
}

// EOF reports whether an INPUT-mode file has no more buffered/readable
// bytes.
func (fs *FileSystem) EOF(number int) (bool, error) {
	f, err := fs.get(number)
	if err != nil {
		return false, err
	}
	_, peekErr := f.reader.Peek(1)
	return peekErr != nil, nil
}

// Loc returns the current record/byte position, Lof the file's total
// length in records/bytes — both 1-based record counts for Random files.
func (fs *FileSystem) Loc(number int) (int64, error) {
	f, err := fs.get(number)
	if err != nil {
		return 0, err
	}
	return f.recordNum, nil
}

func (fs *FileSystem) Lof(number int) (int64, error) {
	f, err := fs.get(number)
	if err != nil {
		return 0, err
	}
	info, statErr := f.f.Stat()
	if statErr != nil {
		return 0, gwerror.Wrap(gwerror.DeviceIOError, statErr)
	}
	if f.mode == ModeRandom {
		return info.Size() / int64(f.recLen), nil
	}
	return info.Size(), nil
}
