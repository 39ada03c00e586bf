// main.go - Throughput sweep plotter
//
// To the extent possible under law, Yawning Angel has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Command benchsweep times UVMAC over the reference implementation's
// speed-test message lengths and renders the throughput curve to an HTML
// chart.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"gitlab.com/yawning/uvmac.git"
)

var sweepLengths = []int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

type sweepPoint struct {
	msgBytes int
	nsPerOp  float64
	mbPerSec float64
}

func sweep(params uvmac.Params, hashOnly bool, minDuration time.Duration) ([]sweepPoint, error) {
	seed := make([]byte, uvmac.SeedSize)
	hashKey, padKey, err := uvmac.DeriveKeyMaterial(seed, params.KeyBytes(), params.TagSize())
	if err != nil {
		return nil, err
	}
	ctx, err := uvmac.New(params)
	if err != nil {
		return nil, err
	}
	if err = ctx.SetKey(hashKey); err != nil {
		return nil, err
	}

	msg := make([]byte, uvmac.MaxBlockBytes)
	pad := uvmac.NewPadKey(padKey)
	points := make([]sweepPoint, 0, len(sweepLengths))
	for _, n := range sweepLengths {
		var iters int
		start := time.Now()
		for elapsed := time.Duration(0); elapsed < minDuration; elapsed = time.Since(start) {
			for i := 0; i < 1000; i++ {
				if hashOnly {
					ctx.Hash(msg[:n])
					continue
				}
				pad.Seek(0)
				if _, err := ctx.Sum(msg[:n], pad); err != nil {
					return nil, err
				}
			}
			iters += 1000
		}
		elapsed := time.Since(start)
		nsPerOp := float64(elapsed.Nanoseconds()) / float64(iters)
		points = append(points, sweepPoint{
			msgBytes: n,
			nsPerOp:  nsPerOp,
			mbPerSec: float64(n) / nsPerOp * 1e3,
		})
	}
	return points, nil
}

func renderChart(points []sweepPoint, title, outPath string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "message length sweep, single goroutine",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "message bytes", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MB/s"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	xAxis := make([]string, 0, len(points))
	series := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		xAxis = append(xAxis, fmt.Sprintf("%d", p.msgBytes))
		series = append(series, opts.LineData{Value: p.mbPerSec})
	}
	line.SetXAxis(xAxis).AddSeries("throughput", series,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
	)

	page := components.NewPage().SetPageTitle(title)
	page.AddCharts(line)
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func main() {
	tagBits := flag.Int("tag-bits", 64, "tag length in bits (64 or 128)")
	blockBytes := flag.Int("block-bytes", uvmac.DefaultBlockBytes, "NH block size in bytes")
	hashOnly := flag.Bool("hash-only", false, "time the hash alone, without the tag combine")
	minTime := flag.Duration("min-time", 250*time.Millisecond, "minimum measurement time per length")
	outPath := flag.String("out", "benchsweep.html", "output HTML file")
	flag.Parse()

	params := uvmac.Params{TagBits: *tagBits, BlockBytes: *blockBytes}
	points, err := sweep(params, *hashOnly, *minTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchsweep: %v\n", err)
		os.Exit(1)
	}

	for _, p := range points {
		fmt.Printf("%4d bytes, %8.1f ns/op, %7.1f MB/s\n", p.msgBytes, p.nsPerOp, p.mbPerSec)
	}

	title := fmt.Sprintf("UVMAC throughput (%d-bit tags, %d-byte blocks)", *tagBits, *blockBytes)
	if err := renderChart(points, title, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "benchsweep: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}
