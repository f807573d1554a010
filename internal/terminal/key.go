package terminal

import (
	"io"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// escWait is how long ReadKey waits for a continuation byte after ESC
// before treating it as a bare Escape press.
const escWait = 50 * time.Millisecond

// KeyKind classifies a decoded key.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyTab
	KeyCtrl
	KeyMeta
	KeyUnknown
)

// Key is one logical key press. Rune is set for KeyRune (the printable
// rune), KeyCtrl (the lowercase letter, so ctrl+c is Rune 'c') and KeyMeta
// (the byte following a bare ESC).
type Key struct {
	Kind KeyKind
	Rune rune
}

// Rune builds a printable-rune key.
func Rune(r rune) Key { return Key{Kind: KeyRune, Rune: r} }

// Ctrl builds a control key from its letter, e.g. Ctrl('c').
func Ctrl(r rune) Key { return Key{Kind: KeyCtrl, Rune: r} }

// Meta builds an alt/meta key from its letter, e.g. Meta('f').
func Meta(r rune) Key { return Key{Kind: KeyMeta, Rune: r} }

func (k Key) String() string {
	switch k.Kind {
	case KeyRune:
		return string(k.Rune)
	case KeyEnter:
		return "enter"
	case KeyEscape:
		return "esc"
	case KeyBackspace:
		return "backspace"
	case KeyDelete:
		return "delete"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyHome:
		return "home"
	case KeyEnd:
		return "end"
	case KeyPageUp:
		return "pgup"
	case KeyPageDown:
		return "pgdn"
	case KeyTab:
		return "tab"
	case KeyCtrl:
		return "ctrl+" + string(k.Rune)
	case KeyMeta:
		return "alt+" + string(k.Rune)
	}
	return "unknown"
}

// KeyReader delivers decoded keys one at a time. ReadKey blocks until a
// full logical key is available.
type KeyReader interface {
	ReadKey() (Key, error)
}

// byteSource yields raw input bytes. nextWithin reports ok=false when no
// byte arrived inside d; that timeout is what turns a lone ESC into a bare
// Escape key.
type byteSource interface {
	next() (byte, error)
	nextWithin(d time.Duration) (byte, bool, error)
}

// keyDecoder decodes a byte stream into keys.
type keyDecoder struct {
	src byteSource
}

func (d *keyDecoder) ReadKey() (Key, error) {
	b, err := d.src.next()
	if err != nil {
		return Key{}, err
	}
	return d.decode(b)
}

func (d *keyDecoder) decode(b byte) (Key, error) {
	switch b {
	case 0x0d, 0x0a:
		return Key{Kind: KeyEnter}, nil
	case 0x7f, 0x08:
		return Key{Kind: KeyBackspace}, nil
	case 0x09:
		return Key{Kind: KeyTab}, nil
	case 0x1b:
		return d.decodeEscape()
	}
	if b < 0x20 {
		if b >= 0x01 && b <= 0x1a {
			return Key{Kind: KeyCtrl, Rune: rune('a' + b - 1)}, nil
		}
		if b == 0x1c {
			return Key{Kind: KeyCtrl, Rune: '\\'}, nil
		}
		if b == 0x1f {
			return Key{Kind: KeyCtrl, Rune: '_'}, nil
		}
		return Key{Kind: KeyUnknown}, nil
	}
	if b >= utf8.RuneSelf {
		return d.decodeRune(b)
	}
	return Key{Kind: KeyRune, Rune: rune(b)}, nil
}

// decodeEscape runs after an ESC byte. No continuation within escWait
// means the user pressed Escape itself.
func (d *keyDecoder) decodeEscape() (Key, error) {
	b, ok, err := d.src.nextWithin(escWait)
	if err != nil {
		return Key{}, err
	}
	if !ok {
		return Key{Kind: KeyEscape}, nil
	}
	switch b {
	case '[':
		return d.decodeCSI()
	case 'O':
		return d.decodeSS3()
	default:
		// ESC then a plain byte is how most terminals send alt+<key>.
		return Key{Kind: KeyMeta, Rune: rune(b)}, nil
	}
}

// decodeCSI consumes parameter bytes (0x30..0x3F), intermediate bytes
// (0x20..0x2F) and the final byte (0x40..0x7E) of a CSI sequence.
func (d *keyDecoder) decodeCSI() (Key, error) {
	var params []byte
	for {
		b, ok, err := d.src.nextWithin(escWait)
		if err != nil {
			return Key{}, err
		}
		if !ok {
			return Key{Kind: KeyUnknown}, nil
		}
		if b >= 0x30 && b <= 0x3f {
			params = append(params, b)
			continue
		}
		if b >= 0x20 && b <= 0x2f {
			continue
		}
		if b >= 0x40 && b <= 0x7e {
			return csiKey(string(params), b), nil
		}
		return Key{Kind: KeyUnknown}, nil
	}
}

func csiKey(params string, final byte) Key {
	switch final {
	case 'A':
		return Key{Kind: KeyUp}
	case 'B':
		return Key{Kind: KeyDown}
	case 'C':
		return Key{Kind: KeyRight}
	case 'D':
		return Key{Kind: KeyLeft}
	case 'H':
		return Key{Kind: KeyHome}
	case 'F':
		return Key{Kind: KeyEnd}
	case '~':
		// First parameter selects the key; modifiers follow a ';'.
		for i := 0; i < len(params); i++ {
			if params[i] == ';' {
				params = params[:i]
				break
			}
		}
		switch params {
		case "1", "7":
			return Key{Kind: KeyHome}
		case "3":
			return Key{Kind: KeyDelete}
		case "4", "8":
			return Key{Kind: KeyEnd}
		case "5":
			return Key{Kind: KeyPageUp}
		case "6":
			return Key{Kind: KeyPageDown}
		}
	}
	return Key{Kind: KeyUnknown}
}

// decodeSS3 handles ESC O <final>, sent for arrows and Home/End in
// application cursor mode.
func (d *keyDecoder) decodeSS3() (Key, error) {
	b, ok, err := d.src.nextWithin(escWait)
	if err != nil {
		return Key{}, err
	}
	if !ok {
		return Key{Kind: KeyUnknown}, nil
	}
	switch b {
	case 'A':
		return Key{Kind: KeyUp}, nil
	case 'B':
		return Key{Kind: KeyDown}, nil
	case 'C':
		return Key{Kind: KeyRight}, nil
	case 'D':
		return Key{Kind: KeyLeft}, nil
	case 'H':
		return Key{Kind: KeyHome}, nil
	case 'F':
		return Key{Kind: KeyEnd}, nil
	}
	return Key{Kind: KeyUnknown}, nil
}

// decodeRune collects the continuation bytes of a UTF-8 sequence.
func (d *keyDecoder) decodeRune(first byte) (Key, error) {
	buf := []byte{first}
	for !utf8.FullRune(buf) && len(buf) < utf8.UTFMax {
		b, ok, err := d.src.nextWithin(escWait)
		if err != nil {
			return Key{}, err
		}
		if !ok {
			break
		}
		buf = append(buf, b)
	}
	r, _ := utf8.DecodeRune(buf)
	return Key{Kind: KeyRune, Rune: r}, nil
}

// ttySource reads single bytes from a terminal fd. nextWithin polls the fd
// so a lone ESC can be distinguished from the start of a sequence without
// a background reader owning stdin (the fd is handed whole to child
// processes while a session runs).
type ttySource struct {
	fd int
}

func (t *ttySource) next() (byte, error) {
	var b [1]byte
	for {
		n, err := unix.Read(t.fd, b[:])
		if n == 1 {
			return b[0], nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
}

func (t *ttySource) nextWithin(d time.Duration) (byte, bool, error) {
	deadline := time.Now().Add(d)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, false, nil
		}
		fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remain/time.Millisecond)+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if n == 0 {
			return 0, false, nil
		}
		b, err := t.next()
		if err != nil {
			return 0, false, err
		}
		return b, true, nil
	}
}

// keyList replays fixed keys and then reports EOF. Interactive views are
// tested against it without a TTY.
type keyList struct {
	keys []Key
	i    int
}

// Keys returns a KeyReader that replays the given keys in order.
func Keys(keys ...Key) KeyReader {
	return &keyList{keys: keys}
}

func (l *keyList) ReadKey() (Key, error) {
	if l.i >= len(l.keys) {
		return Key{}, io.EOF
	}
	k := l.keys[l.i]
	l.i++
	return k, nil
}
