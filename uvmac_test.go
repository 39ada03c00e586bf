// uvmac_test.go - UVMAC tests
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

package uvmac

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// Vectors from the reference implementation: user key and pad key are the
// ASCII string "abcdefgh" repeated, messages are "abc" repeated. Every pad
// word of that stream is identical, so the cursor position does not affect
// the expected tags.
var knownAnswerVectors = []struct {
	reps int
	tag  string
}{
	{0, "8124d03c89c8b774"},
	{1, "1e59621dea8080aa"},
	{16, "c92f7fc29a334af6"},
	{100, "fc48c8853c7e9cab"},
	{1000000, "70cc2c64273263c4"},
}

func testUserKey(words int) []byte {
	return bytes.Repeat([]byte("abcdefgh"), words)
}

func testPadKey() *PadKey {
	return NewPadKey(bytes.Repeat([]byte("abcdefgh"), 20))
}

func TestVectors64(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")

	pad := testPadKey()
	for _, vec := range knownAnswerVectors {
		m := bytes.Repeat([]byte("abc"), vec.reps)

		tag, err := ctx.Sum(m, pad)
		require.NoError(err, "Sum(): %d reps", vec.reps)
		require.Equal(vec.tag, hex.EncodeToString(tag), "tag: %d reps", vec.reps)

		// Recompute with the prefix streamed through Update, the way the
		// reference test harness does.
		if len(m) > ctx.BlockSize() {
			split := len(m) / ctx.BlockSize() * ctx.BlockSize()
			require.NoError(ctx.Update(m[:split]), "Update(): %d reps", vec.reps)
			tag, err = ctx.Sum(m[split:], pad)
			require.NoError(err, "Sum() after Update(): %d reps", vec.reps)
			require.Equal(vec.tag, hex.EncodeToString(tag), "streamed tag: %d reps", vec.reps)
		}
	}
}

func TestVectors128(t *testing.T) {
	require := require.New(t)

	ctx, err := New(Params{TagBits: 128})
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(26)), "SetKey()")

	// For the repeated-ASCII test key, each 128-bit tag is the 64-bit tag
	// concatenated with itself.
	pad := testPadKey()
	for _, vec := range knownAnswerVectors {
		m := bytes.Repeat([]byte("abc"), vec.reps)
		tag, err := ctx.Sum(m, pad)
		require.NoError(err, "Sum(): %d reps", vec.reps)
		require.Equal(vec.tag+vec.tag, hex.EncodeToString(tag), "tag: %d reps", vec.reps)
	}
}

func TestStreamingEquivalence(t *testing.T) {
	require := require.New(t)

	hashKey, msg, err := DeriveKeyMaterial(make([]byte, SeedSize), DefaultParams().KeyBytes(), 1339)
	require.NoError(err, "DeriveKeyMaterial()")

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(hashKey), "SetKey()")

	wantHi, wantLo := ctx.Hash(msg)
	for split := ctx.BlockSize(); split < len(msg); split += ctx.BlockSize() {
		require.NoError(ctx.Update(msg[:split]), "Update(): split %d", split)
		hi, lo := ctx.Hash(msg[split:])
		require.Equal(wantHi, hi, "hi: split %d", split)
		require.Equal(wantLo, lo, "lo: split %d", split)
	}

	// Multiple Update calls before the final Hash.
	require.NoError(ctx.Update(msg[:512]), "Update(): first")
	require.NoError(ctx.Update(msg[512:1024]), "Update(): second")
	hi, lo := ctx.Hash(msg[1024:])
	require.Equal(wantHi, hi, "hi: chained updates")
	require.Equal(wantLo, lo, "lo: chained updates")
}

func TestEmptyMessage(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")

	// The empty string hashes the poly key itself through l3.
	hi, lo := ctx.Hash(nil)
	require.Equal(l3Hash(ctx.polyKey[0], ctx.polyKey[1], ctx.l3Key[0], ctx.l3Key[1], 0), hi, "hi")
	require.Zero(lo, "lo")

	// And is stable across invocations.
	hi2, _ := ctx.Hash([]byte{})
	require.Equal(hi, hi2, "repeated empty hash")
}

func TestAbortIdempotence(t *testing.T) {
	require := require.New(t)

	msg := bytes.Repeat([]byte("xyzzy"), 100)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")
	wantHi, wantLo := ctx.Hash(msg)

	// Abandoning a partial message must not disturb the next one.
	require.NoError(ctx.Update(bytes.Repeat([]byte{0xa5}, 2*ctx.BlockSize())), "Update()")
	ctx.Abort()
	hi, lo := ctx.Hash(msg)
	require.Equal(wantHi, hi, "hi after abort")
	require.Equal(wantLo, lo, "lo after abort")

	// abort; abort == abort.
	ctx.Abort()
	ctx.Abort()
	hi, _ = ctx.Hash(msg)
	require.Equal(wantHi, hi, "hi after double abort")

	// set_key; abort == set_key.
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")
	ctx.Abort()
	hi, _ = ctx.Hash(msg)
	require.Equal(wantHi, hi, "hi after rekey+abort")
}

func TestPadLinearity(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")

	msg := []byte("attack at dawn")
	rawA := []byte{0, 0, 0, 0, 0, 0, 0, 42}
	rawB := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22, 0x33}

	tagA, err := ctx.Sum(msg, NewPadKey(rawA))
	require.NoError(err, "Sum(): pad A")
	tagB, err := ctx.Sum(msg, NewPadKey(rawB))
	require.NoError(err, "Sum(): pad B")

	// The one-time-pad combine is additive mod 2^64: tags over the same
	// message differ by exactly the difference of the pad words.
	wordA := binary.BigEndian.Uint64(tagA)
	wordB := binary.BigEndian.Uint64(tagB)
	wantDiff := binary.BigEndian.Uint64(rawA) - binary.BigEndian.Uint64(rawB)
	require.Equal(wantDiff, wordA-wordB, "tag difference")
}

func TestPadExhaustion(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")

	pad := NewPadKey([]byte("abcdefgh"))
	msg := []byte("abc")

	tag, err := ctx.Sum(msg, pad)
	require.NoError(err, "Sum(): word available")
	require.Equal(knownAnswerVectors[1].tag, hex.EncodeToString(tag), "tag")
	require.Equal(uint64(1), pad.Position(), "cursor after Sum()")

	// A failed Sum must not move the cursor or disturb the hash state.
	require.NoError(ctx.Update(bytes.Repeat([]byte{0x7f}, ctx.BlockSize())), "Update()")
	_, err = ctx.Sum(msg, pad)
	require.Equal(ErrPadKeyExhausted, err, "Sum(): exhausted")
	require.Equal(uint64(1), pad.Position(), "cursor after failed Sum()")
	require.True(ctx.firstBlockProcessed, "hash state after failed Sum()")
	ctx.Abort()

	// 128-bit tags need two words; one remaining is not enough.
	ctx128, err := New(Params{TagBits: 128})
	require.NoError(err, "New(): 128")
	require.NoError(ctx128.SetKey(testUserKey(26)), "SetKey(): 128")
	_, err = ctx128.Sum(msg, NewPadKey([]byte("abcdefgh")))
	require.Equal(ErrPadKeyExhausted, err, "Sum(): 128, one word")
}

func TestPadCursor(t *testing.T) {
	require := require.New(t)

	raw := make([]byte, 8*4+3) // trailing partial word is ignored
	for i := range raw {
		raw[i] = byte(i)
	}
	pad := NewPadKey(raw)
	require.Equal(uint64(4), pad.Len(), "Len()")
	require.Equal(uint64(4), pad.Remaining(), "Remaining()")

	w, err := pad.Consume()
	require.NoError(err, "Consume()")
	require.Equal(binary.BigEndian.Uint64(raw), w, "first word")

	pad.Seek(3)
	w, err = pad.Consume()
	require.NoError(err, "Consume() after Seek()")
	require.Equal(binary.BigEndian.Uint64(raw[24:]), w, "last word")
	require.Equal(uint64(0), pad.Remaining(), "Remaining() at end")

	_, err = pad.Consume()
	require.Equal(ErrPadKeyExhausted, err, "Consume() past end")
}

func TestUpdateLength(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")
	require.NoError(ctx.SetKey(testUserKey(20)), "SetKey()")

	require.Equal(ErrInvalidUpdateLength, ctx.Update(nil), "Update(): empty")
	require.Equal(ErrInvalidUpdateLength, ctx.Update(make([]byte, 127)), "Update(): short")
	require.Equal(ErrInvalidUpdateLength, ctx.Update(make([]byte, 129)), "Update(): non-multiple")
	require.NoError(ctx.Update(make([]byte, 256)), "Update(): two blocks")
	ctx.Abort()
}

func TestSetKeyExhaustion(t *testing.T) {
	require := require.New(t)

	ctx, err := New(DefaultParams())
	require.NoError(err, "New()")

	require.Equal(ErrInsufficientKeyMaterial, ctx.SetKey(nil), "SetKey(): empty")
	require.Equal(ErrInsufficientKeyMaterial, ctx.SetKey(testUserKey(19)), "SetKey(): one word short")

	// Words at or above p64 are rejected during the l3 fill and consume
	// extra key material.
	key := testUserKey(20)
	for i := 8 * 18; i < 8*19; i++ {
		key[i] = 0xff
	}
	require.Equal(ErrInsufficientKeyMaterial, ctx.SetKey(key), "SetKey(): rejection shortfall")
	require.NoError(ctx.SetKey(append(key, []byte("abcdefgh")...)), "SetKey(): rejection absorbed")
}

func TestInvalidConfiguration(t *testing.T) {
	require := require.New(t)

	for _, p := range []Params{
		{TagBits: 96, BlockBytes: 128},
		{TagBits: 0, BlockBytes: 128},
		{TagBits: 64, BlockBytes: 8},
		{TagBits: 64, BlockBytes: 8192},
		{TagBits: 64, BlockBytes: 96},
	} {
		_, err := New(p)
		require.Equal(ErrInvalidConfiguration, err, "New(%+v)", p)
	}

	require.Equal(20, DefaultParams().KeyWords(), "KeyWords(): 64")
	require.Equal(160, DefaultParams().KeyBytes(), "KeyBytes(): 64")
	require.Equal(26, Params{TagBits: 128}.KeyWords(), "KeyWords(): 128")
	require.Equal(208, Params{TagBits: 128}.KeyBytes(), "KeyBytes(): 128")
}

func TestBigEndianMessages(t *testing.T) {
	require := require.New(t)

	le, err := New(DefaultParams())
	require.NoError(err, "New(): le")
	require.NoError(le.SetKey(testUserKey(20)), "SetKey(): le")

	be, err := New(Params{TagBits: 64, BigEndian: true})
	require.NoError(err, "New(): be")
	require.NoError(be.SetKey(testUserKey(20)), "SetKey(): be")

	msg := bytes.Repeat([]byte("abc"), 100)
	leHi, _ := le.Hash(msg)
	beHi, _ := be.Hash(msg)
	require.NotEqual(leHi, beHi, "byte order changes the hash")

	beHi2, _ := be.Hash(msg)
	require.Equal(beHi, beHi2, "big-endian mode is deterministic")

	// Byte order is invisible when every message word is a palindrome.
	pal := bytes.Repeat([]byte("abcddcba"), 6)
	leHi, _ = le.Hash(pal)
	beHi, _ = be.Hash(pal)
	require.Equal(leHi, beHi, "palindrome words hash identically")
}

var benchLengths = []int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

func BenchmarkHash(b *testing.B) {
	ctx, err := New(DefaultParams())
	if err != nil {
		b.Fatal(err)
	}
	if err = ctx.SetKey(testUserKey(20)); err != nil {
		b.Fatal(err)
	}
	msg := make([]byte, MaxBlockBytes)
	for _, n := range benchLengths {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.SetBytes(int64(n))
			for i := 0; i < b.N; i++ {
				_, _ = ctx.Hash(msg[:n])
			}
		})
	}
}

func BenchmarkSum(b *testing.B) {
	ctx, err := New(DefaultParams())
	if err != nil {
		b.Fatal(err)
	}
	if err = ctx.SetKey(testUserKey(20)); err != nil {
		b.Fatal(err)
	}
	msg := make([]byte, MaxBlockBytes)
	pad := testPadKey()
	for _, n := range benchLengths {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.SetBytes(int64(n))
			for i := 0; i < b.N; i++ {
				pad.Seek(0)
				if _, err := ctx.Sum(msg[:n], pad); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
