// vhash.go - VHASH three-layer universal hash
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package uvmac

import (
	"encoding/binary"
	"math/bits"
)

const (
	m62 = (1 << 62) - 1
	m63 = (1 << 63) - 1

	// p64 is the l3 prime 2^64 - 257.
	p64 = 0xfffffffffffffeff

	// mPoly clears bits 29..31 of each 32-bit lane of a poly key word.
	mPoly = 0x1fffffff1fffffff
)

func add128(rh, rl, ih, il uint64) (uint64, uint64) {
	lo, c := bits.Add64(rl, il, 0)
	return rh + ih + c, lo
}

// ctIsZero64 returns 1 if x == 0 and 0 otherwise, without branching on x.
func ctIsZero64(x uint64) uint64 {
	return 1 ^ ((x | -x) >> 63)
}

// nh compresses nw 64-bit message words against the key window starting at
// koff, summing the pairwise products mod 2^128. nw must be even and
// 8*nw <= len(m).
func (ctx *Context) nh(m []byte, nw, koff int) (rh, rl uint64) {
	k := ctx.nhKey[koff:]
	_, _ = m[8*nw-1], k[nw-1] // Bounds check elimination.
	if ctx.bigEndian {
		for i := 0; i < nw; i += 2 {
			th, tl := bits.Mul64(
				binary.BigEndian.Uint64(m[8*i:])+k[i],
				binary.BigEndian.Uint64(m[8*i+8:])+k[i+1],
			)
			var c uint64
			rl, c = bits.Add64(rl, tl, 0)
			rh += th + c
		}
		return
	}
	for i := 0; i < nw; i += 2 {
		th, tl := bits.Mul64(
			binary.LittleEndian.Uint64(m[8*i:])+k[i],
			binary.LittleEndian.Uint64(m[8*i+8:])+k[i+1],
		)
		var c uint64
		rl, c = bits.Add64(rl, tl, 0)
		rh += th + c
	}
	return
}

// nhDouble computes nh against the base key window and against the window
// shifted by two words in a single pass over the message.
func (ctx *Context) nhDouble(m []byte, nw int) (rh, rl, rh2, rl2 uint64) {
	k := ctx.nhKey
	_, _ = m[8*nw-1], k[nw+1] // Bounds check elimination.
	for i := 0; i < nw; i += 2 {
		var m0, m1 uint64
		if ctx.bigEndian {
			m0 = binary.BigEndian.Uint64(m[8*i:])
			m1 = binary.BigEndian.Uint64(m[8*i+8:])
		} else {
			m0 = binary.LittleEndian.Uint64(m[8*i:])
			m1 = binary.LittleEndian.Uint64(m[8*i+8:])
		}
		var c uint64
		th, tl := bits.Mul64(m0+k[i], m1+k[i+1])
		rl, c = bits.Add64(rl, tl, 0)
		rh += th + c
		th, tl = bits.Mul64(m0+k[i+2], m1+k[i+3])
		rl2, c = bits.Add64(rl2, tl, 0)
		rh2 += th + c
	}
	return
}

// polyStep computes a*k + m mod 2^127-1 over the (hi, lo) representation.
// The poly key mask bounds every product below 2^128; the top bits of the
// accumulator fold back through 2^127 = 1 mod p127.
func polyStep(ah, al, kh, kl, mh, ml uint64) (uint64, uint64) {
	var c uint64

	t3h, t3l := bits.Mul64(al, kh)
	t2h, t2l := bits.Mul64(ah, kl)
	t1h, t1l := bits.Mul64(ah, 2*kh)
	ah, al = bits.Mul64(al, kl)

	al, c = bits.Add64(al, t1l, 0)
	ah += t1h + c

	t2l, c = bits.Add64(t2l, t3l, 0)
	t2h += t3h + c

	ah, c = bits.Add64(ah, t2l, 0)
	t2h += c
	t2h = 2*t2h + ah>>63
	ah &= m63

	al, c = bits.Add64(al, ml, 0)
	ah += mh + c
	al, c = bits.Add64(al, t2h, 0)
	ah += c
	return ah, al
}

// l3Hash folds the 127-bit poly state plus the length encoding into a
// 64-bit scalar below p64 = 2^64 - 257. lenBits is the tail length in
// bits, not the total message length.
func l3Hash(p1, p2, k1, k2, lenBits uint64) uint64 {
	var c uint64

	// Fully reduce (p1,p2)+(lenBits,0) mod 2^127-1. After the first fold
	// p1 exceeds m63 by at most the carry plus lenBits, so a single
	// conditional increment (2^127 = 1 mod p127) completes the reduction.
	t := p1 >> 63
	p1 &= m63
	p2, c = bits.Add64(p2, t, 0)
	p1 += lenBits + c
	t = p1>>63 + ctIsZero64((p1^m63)|^p2)
	p2, c = bits.Add64(p2, t, 0)
	p1 = (p1 + c) & m63

	// Express the value as q*(2^64 - 2^32) + r: t accumulates the
	// quotient with a double-carry correction.
	t = p1 + p2>>32
	t += t >> 32
	t += ((t & 0xffffffff) + 1) >> 32
	p1 += t >> 32
	p2 += p1 << 32

	// (q + k1) mod p64 and (r + k2) mod p64.
	p1, c = bits.Add64(p1, k1, 0)
	p1 += -c & 257
	p2, c = bits.Add64(p2, k2, 0)
	p2 += -c & 257

	// (p1 * p2) mod p64, folding the high half twice via 2^64 = 257.
	rh, rl := bits.Mul64(p1, p2)
	t = rh >> 56
	rl, c = bits.Add64(rl, rh, 0)
	t += c
	rl, c = bits.Add64(rl, rh<<8, 0)
	t += c
	t += t << 8
	rl, c = bits.Add64(rl, t, 0)
	rl += -c & 257
	_, c = bits.Add64(rl, 257, 0)
	rl += -c & 257
	return rl
}

// absorbBlocks runs the NH-to-poly state machine over len(m)/blockBytes
// full blocks. The first block of a message enters the polynomial as an
// addition, every later block as a poly step.
func (ctx *Context) absorbBlocks(m []byte) {
	nw := ctx.blockBytes / 8
	ch, cl := ctx.polyTmp[0], ctx.polyTmp[1]

	if ctx.tagWords == 1 {
		if !ctx.firstBlockProcessed {
			ctx.firstBlockProcessed = true
			rh, rl := ctx.nh(m, nw, 0)
			ch, cl = add128(ch, cl, rh&m62, rl)
			m = m[ctx.blockBytes:]
		}
		pkh, pkl := ctx.polyKey[0], ctx.polyKey[1]
		for len(m) > 0 {
			rh, rl := ctx.nh(m, nw, 0)
			ch, cl = polyStep(ch, cl, pkh, pkl, rh&m62, rl)
			m = m[ctx.blockBytes:]
		}
		ctx.polyTmp[0], ctx.polyTmp[1] = ch, cl
		return
	}

	ch2, cl2 := ctx.polyTmp[2], ctx.polyTmp[3]
	if !ctx.firstBlockProcessed {
		ctx.firstBlockProcessed = true
		rh, rl, rh2, rl2 := ctx.nhDouble(m, nw)
		ch, cl = add128(ch, cl, rh&m62, rl)
		ch2, cl2 = add128(ch2, cl2, rh2&m62, rl2)
		m = m[ctx.blockBytes:]
	}
	pkh, pkl := ctx.polyKey[0], ctx.polyKey[1]
	pkh2, pkl2 := ctx.polyKey[2], ctx.polyKey[3]
	for len(m) > 0 {
		rh, rl, rh2, rl2 := ctx.nhDouble(m, nw)
		ch, cl = polyStep(ch, cl, pkh, pkl, rh&m62, rl)
		ch2, cl2 = polyStep(ch2, cl2, pkh2, pkl2, rh2&m62, rl2)
		m = m[ctx.blockBytes:]
	}
	ctx.polyTmp[0], ctx.polyTmp[1] = ch, cl
	ctx.polyTmp[2], ctx.polyTmp[3] = ch2, cl2
}

// finalize absorbs the zero-padded tail (len(tail) < blockBytes), runs the
// l3 layer with the tail length in bits, and resets the context. The tail
// is copied into a zeroed block so callers never supply padding; for an
// empty message the poly keys themselves feed l3.
func (ctx *Context) finalize(tail []byte) (hi, lo uint64) {
	rem := len(tail)
	ch, cl := ctx.polyTmp[0], ctx.polyTmp[1]
	var ch2, cl2 uint64
	if ctx.tagWords == 2 {
		ch2, cl2 = ctx.polyTmp[2], ctx.polyTmp[3]
	}

	if rem > 0 {
		var block [MaxBlockBytes]byte
		copy(block[:], tail)
		nw := 2 * ((rem + 15) / 16)
		if ctx.tagWords == 1 {
			rh, rl := ctx.nh(block[:], nw, 0)
			if ctx.firstBlockProcessed {
				ch, cl = polyStep(ch, cl, ctx.polyKey[0], ctx.polyKey[1], rh&m62, rl)
			} else {
				ch, cl = add128(ch, cl, rh&m62, rl)
			}
		} else {
			rh, rl, rh2, rl2 := ctx.nhDouble(block[:], nw)
			if ctx.firstBlockProcessed {
				ch, cl = polyStep(ch, cl, ctx.polyKey[0], ctx.polyKey[1], rh&m62, rl)
				ch2, cl2 = polyStep(ch2, cl2, ctx.polyKey[2], ctx.polyKey[3], rh2&m62, rl2)
			} else {
				ch, cl = add128(ch, cl, rh&m62, rl)
				ch2, cl2 = add128(ch2, cl2, rh2&m62, rl2)
			}
		}
		burnBytes(block[:nw*8])
	}

	lenBits := uint64(rem) * 8
	hi = l3Hash(ch, cl, ctx.l3Key[0], ctx.l3Key[1], lenBits)
	if ctx.tagWords == 2 {
		lo = l3Hash(ch2, cl2, ctx.l3Key[2], ctx.l3Key[3], lenBits)
	}
	ctx.Abort()
	return
}
