// main.go - File authentication tool
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Command authenticate computes a UVMAC tag for a file.
//
//	authenticate [flags] hashKeyFile padKeyFile inputFile messageNumber
//
// hashKeyFile selects the hash function within the universal family and
// can be reused indefinitely. padKeyFile holds the one-time-pad key
// stream; messageNumber (>= 1) selects the slice of it to consume, and no
// number may ever be used twice with the same pad key file. The tag is
// written in hexadecimal to inputFile.tag.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gitlab.com/yawning/uvmac.git"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] hashKeyFile padKeyFile inputFile messageNumber\n\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	tagBits := flag.Int("tag-bits", 64, "tag length in bits (64 or 128)")
	blockBytes := flag.Int("block-bytes", uvmac.DefaultBlockBytes, "NH block size in bytes")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 4 {
		usage()
		os.Exit(1)
	}

	params := uvmac.Params{TagBits: *tagBits, BlockBytes: *blockBytes}
	ctx, err := uvmac.New(params)
	if err != nil {
		return err
	}

	hashKey, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("reading hash key: %w", err)
	}
	if len(hashKey) < params.KeyBytes() {
		return fmt.Errorf("hash key file %s holds %d bytes, need at least %d", flag.Arg(0), len(hashKey), params.KeyBytes())
	}
	if err = ctx.SetKey(hashKey); err != nil {
		return err
	}

	msgNum, err := strconv.ParseUint(flag.Arg(3), 10, 64)
	if err != nil || msgNum < 1 {
		return fmt.Errorf("message number must be an integer >= 1")
	}

	padFile, err := os.Open(flag.Arg(1))
	if err != nil {
		return fmt.Errorf("reading pad key: %w", err)
	}
	defer padFile.Close()
	padSlice := make([]byte, ctx.TagSize())
	if _, err = padFile.ReadAt(padSlice, int64(msgNum-1)*int64(ctx.TagSize())); err != nil {
		return fmt.Errorf("pad key file %s has no slice for message %d: %w", flag.Arg(1), msgNum, err)
	}

	in, err := os.Open(flag.Arg(2))
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}

	// Stream full block-multiple chunks; the remainder goes to Sum.
	const chunkSize = 3 << 20
	buf := make([]byte, chunkSize)
	left := fi.Size()
	for left > int64(chunkSize) {
		if _, err = io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if err = ctx.Update(buf); err != nil {
			return err
		}
		left -= chunkSize
	}
	tail := buf[:left]
	if _, err = io.ReadFull(in, tail); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	tag, err := ctx.Sum(tail, uvmac.NewPadKey(padSlice))
	if err != nil {
		return err
	}

	outName := flag.Arg(2) + ".tag"
	if err = os.WriteFile(outName, []byte(hex.EncodeToString(tag)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing tag: %w", err)
	}
	fmt.Printf("%s: %s\n", outName, hex.EncodeToString(tag))
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authenticate: %v\n", err)
		os.Exit(1)
	}
}
