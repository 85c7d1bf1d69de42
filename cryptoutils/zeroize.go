package cryptoutils

// Wipe zero-fills a byte slice in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Secret is a scoped wrapper for secret byte buffers. It takes ownership of
// the underlying slice; callers arrange `defer s.Destroy()` immediately
// after construction so the buffer is zeroed on every exit path, including
// error returns.
type Secret struct {
	buf []byte
}

// NewSecret wraps buf. The caller must not retain or reuse buf afterwards.
func NewSecret(buf []byte) *Secret {
	return &Secret{buf: buf}
}

// CopySecret wraps a private copy of buf, leaving the original untouched.
func CopySecret(buf []byte) *Secret {
	c := make([]byte, len(buf))
	copy(c, buf)
	return &Secret{buf: c}
}

// Bytes returns the underlying buffer, or nil after Destroy.
func (s *Secret) Bytes() []byte {
	return s.buf
}

// Destroy zero-fills and releases the buffer. Safe to call more than once.
func (s *Secret) Destroy() {
	Wipe(s.buf)
	s.buf = nil
}
