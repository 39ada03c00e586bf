// uvmac.go - UVMAC message authentication
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package uvmac implements UVMAC, an unconditionally secure Message
// Authentication Code built by combining the VHASH almost-delta-universal
// hash family with a one-time-pad encryption of the hash output.
//
// The sender and receiver share a long-lived universal hashing key, and a
// stream of fresh pad key material of which one 64-bit word is consumed
// per 64 bits of tag. Because the outer encryption is a true one-time pad,
// the forgery probability is bounded information-theoretically (roughly
// 2^-61 per 64-bit tag), with no computational hardness assumption.
//
// Reusing any pad key word voids the security argument. The pad key
// stream and its cursor belong to the caller; this package only ever
// moves the cursor forward.
//
// This implementation is derived from the reference implementation by
// Jean-Daniel Bancal, which builds on the VHASH code by Ted Krovetz and
// Wei Dai.
package uvmac

import (
	"encoding/binary"
	"errors"
)

const (
	// MinBlockBytes is the smallest supported NH block size.
	MinBlockBytes = 16

	// MaxBlockBytes is the largest supported NH block size.
	MaxBlockBytes = 4096

	// DefaultBlockBytes is the NH block size used by the reference
	// implementation and its published test vectors.
	DefaultBlockBytes = 128
)

var (
	// ErrInsufficientKeyMaterial is the error returned when the user key
	// is exhausted before the key schedule completes, including the
	// rejection sampling of the l3 keys.
	ErrInsufficientKeyMaterial = errors.New("uvmac: user key exhausted during key schedule")

	// ErrPadKeyExhausted is the error returned when the pad key cursor
	// would move past the end of the stream.
	ErrPadKeyExhausted = errors.New("uvmac: pad key exhausted")

	// ErrInvalidUpdateLength is the error returned when Update is called
	// with a length that is zero or not a multiple of the block size.
	ErrInvalidUpdateLength = errors.New("uvmac: update length not a positive multiple of the block size")

	// ErrInvalidConfiguration is the error returned when Params violates
	// the documented ranges.
	ErrInvalidConfiguration = errors.New("uvmac: invalid parameters")

	// ErrInvalidSeedSize is the error returned when a key derivation seed
	// is not SeedSize bytes.
	ErrInvalidSeedSize = errors.New("uvmac: invalid seed size")
)

// Params fixes the per-context UVMAC parameters. Interoperating peers must
// agree on all three values, and on the universal hashing key.
type Params struct {
	// TagBits is the tag length in bits, either 64 or 128.
	TagBits int

	// BlockBytes is the NH block size, a power of two in
	// [MinBlockBytes, MaxBlockBytes]. Zero selects DefaultBlockBytes.
	BlockBytes int

	// BigEndian interprets message bytes as big-endian 64-bit words
	// instead of the default little-endian. User key and pad key words
	// are big-endian regardless.
	BigEndian bool
}

// DefaultParams returns the parameters of the reference implementation:
// 64-bit tags, 128-byte NH blocks, little-endian message words.
func DefaultParams() Params {
	return Params{TagBits: 64, BlockBytes: DefaultBlockBytes}
}

func (p *Params) blockBytes() int {
	if p.BlockBytes == 0 {
		return DefaultBlockBytes
	}
	return p.BlockBytes
}

func (p *Params) tagWords() int {
	return p.TagBits / 64
}

func (p *Params) validate() error {
	switch p.TagBits {
	case 64, 128:
	default:
		return ErrInvalidConfiguration
	}
	b := p.blockBytes()
	if b < MinBlockBytes || b > MaxBlockBytes || b&(b-1) != 0 {
		return ErrInvalidConfiguration
	}
	return nil
}

// KeyWords returns the number of 64-bit words of user key the key schedule
// consumes when no l3 candidate is rejected. Each rejection, probability
// 257/2^64 per draw, consumes one extra word.
func (p Params) KeyWords() int {
	t := p.tagWords()
	return p.blockBytes()/8 + 2*(t-1) + 4*t
}

// KeyBytes returns KeyWords in bytes: 160 for 64-bit tags and 208 for
// 128-bit tags at the default block size. A user key of this length
// completes the key schedule with overwhelming probability.
func (p Params) KeyBytes() int {
	return 8 * p.KeyWords()
}

// TagSize returns the tag length in bytes.
func (p Params) TagSize() int {
	return 8 * p.tagWords()
}

// Context holds the long-lived per-key state: the NH key table, the poly
// and l3 keys, and the running poly accumulators. A Context is not safe
// for concurrent use; distinct Contexts are fully independent.
type Context struct {
	nhKey   []uint64
	polyKey []uint64
	l3Key   []uint64
	polyTmp []uint64

	blockBytes          int
	tagWords            int
	bigEndian           bool
	firstBlockProcessed bool
}

// New returns an unkeyed Context for p.
func New(p Params) (*Context, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	t := p.tagWords()
	return &Context{
		nhKey:      make([]uint64, p.blockBytes()/8+2*(t-1)),
		polyKey:    make([]uint64, 2*t),
		l3Key:      make([]uint64, 2*t),
		polyTmp:    make([]uint64, 2*t),
		blockBytes: p.blockBytes(),
		tagWords:   t,
		bigEndian:  p.BigEndian,
	}, nil
}

// TagSize returns the tag length in bytes.
func (ctx *Context) TagSize() int {
	return 8 * ctx.tagWords
}

// BlockSize returns the NH block size in bytes. Update only accepts
// positive multiples of this value.
func (ctx *Context) BlockSize() int {
	return ctx.blockBytes
}

// SetKey consumes userKey sequentially as big-endian 64-bit words and fills
// the NH key table, the masked poly keys, and the rejection-sampled l3
// keys. The trailing partial word of userKey, if any, is ignored.
//
// On ErrInsufficientKeyMaterial the Context is unusable until SetKey is
// retried with a longer key.
func (ctx *Context) SetKey(userKey []byte) error {
	words := len(userKey) / 8
	pos := 0
	draw := func() (uint64, bool) {
		if pos >= words {
			return 0, false
		}
		w := binary.BigEndian.Uint64(userKey[8*pos:])
		pos++
		return w, true
	}

	for i := range ctx.nhKey {
		w, ok := draw()
		if !ok {
			return ErrInsufficientKeyMaterial
		}
		ctx.nhKey[i] = w
	}

	// Masking each 32-bit lane to 29 bits keeps a*k below 2^127 in the
	// poly layer.
	for i := range ctx.polyKey {
		w, ok := draw()
		if !ok {
			return ErrInsufficientKeyMaterial
		}
		ctx.polyKey[i] = w & mPoly
		ctx.polyTmp[i] = ctx.polyKey[i]
	}

	for i := range ctx.l3Key {
		for {
			w, ok := draw()
			if !ok {
				return ErrInsufficientKeyMaterial
			}
			if w < p64 {
				ctx.l3Key[i] = w
				break
			}
		}
	}

	ctx.firstBlockProcessed = false
	return nil
}

// Update absorbs m into the running hash. len(m) must be a positive
// multiple of BlockSize; the final short tail of a message goes to Hash or
// Sum instead.
func (ctx *Context) Update(m []byte) error {
	if len(m) == 0 || len(m)%ctx.blockBytes != 0 {
		return ErrInvalidUpdateLength
	}
	ctx.absorbBlocks(m)
	return nil
}

// Hash absorbs the remainder of the message, of any length, and returns
// the VHASH output: one 64-bit half per 64 bits of tag (lo is zero for
// 64-bit tags). The Context is reset and ready for the next message.
//
// Hash output is not a tag. It leaks information about the hashing key if
// disclosed; use Sum unless the one-time-pad combine happens elsewhere.
func (ctx *Context) Hash(m []byte) (hi, lo uint64) {
	if full := len(m) &^ (ctx.blockBytes - 1); full > 0 {
		ctx.absorbBlocks(m[:full])
		m = m[full:]
	}
	return ctx.finalize(m)
}

// Sum computes the tag over the remainder of the message, consuming one
// pad word per 64 bits of tag. The tag is the big-endian encoding of the
// 64-bit halves, high half first. On error the Context, the pad cursor,
// and the running hash state are all left untouched.
func (ctx *Context) Sum(m []byte, pad *PadKey) ([]byte, error) {
	if pad.Remaining() < uint64(ctx.tagWords) {
		return nil, ErrPadKeyExhausted
	}
	p1, _ := pad.Consume()
	var p2 uint64
	if ctx.tagWords == 2 {
		p2, _ = pad.Consume()
	}

	hi, lo := ctx.Hash(m)
	tag := make([]byte, 8*ctx.tagWords)
	binary.BigEndian.PutUint64(tag, hi+p1)
	if ctx.tagWords == 2 {
		binary.BigEndian.PutUint64(tag[8:], lo+p2)
	}
	return tag, nil
}

// Abort discards the running hash state: the poly accumulators are
// restored to the poly keys and the first-block flag is cleared. Aborting
// a fresh Context is a no-op.
func (ctx *Context) Abort() {
	copy(ctx.polyTmp, ctx.polyKey)
	ctx.firstBlockProcessed = false
}

// Wipe purges all key material and hash state from the Context. The
// Context is unusable until SetKey is called again.
func (ctx *Context) Wipe() {
	burnUint64s(ctx.nhKey)
	burnUint64s(ctx.polyKey)
	burnUint64s(ctx.l3Key)
	burnUint64s(ctx.polyTmp)
	ctx.firstBlockProcessed = false
}

// PadKey is a caller-owned stream of fresh uniform 64-bit pad words with a
// read cursor measured in words. Any given word position must encrypt at
// most one tag half, ever; enforcing that across processes (by persisting
// Position) is the caller's responsibility.
type PadKey struct {
	raw []byte
	pos uint64
}

// NewPadKey wraps raw pad key material. The stream holds len(raw)/8
// words; a trailing partial word is ignored. The bytes are not copied.
func NewPadKey(raw []byte) *PadKey {
	return &PadKey{raw: raw}
}

// Len returns the total stream length in words.
func (pk *PadKey) Len() uint64 {
	return uint64(len(pk.raw) / 8)
}

// Position returns the cursor, in words.
func (pk *PadKey) Position() uint64 {
	return pk.pos
}

// Seek moves the cursor to the given word position. Seeking backwards over
// consumed words reuses pad material and voids the security guarantee.
func (pk *PadKey) Seek(word uint64) {
	pk.pos = word
}

// Remaining returns the number of unconsumed words.
func (pk *PadKey) Remaining() uint64 {
	if pk.pos >= pk.Len() {
		return 0
	}
	return pk.Len() - pk.pos
}

// Consume returns the next pad word, as a big-endian 64-bit integer, and
// advances the cursor.
func (pk *PadKey) Consume() (uint64, error) {
	if pk.pos >= pk.Len() {
		return 0, ErrPadKeyExhausted
	}
	w := binary.BigEndian.Uint64(pk.raw[8*pk.pos:])
	pk.pos++
	return w, nil
}
