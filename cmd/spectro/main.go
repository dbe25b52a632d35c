// Command spectro renders a WAV file's spectrogram to PNG with the
// extracted constellation peaks overlaid. Useful for tuning presets:
// the peak pattern is what the matcher actually sees.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"

	"github.com/eligwz/spectrogram"

	"github.com/nmalhotra/waveprint/pkg/audio"
	"github.com/nmalhotra/waveprint/pkg/fingerprint"
)

var (
	inPath  string
	outPath string
	preset  string
	width   int
	height  int
	noPeaks bool
)

func init() {
	flag.StringVar(&inPath, "in", "", "Input WAV file (required)")
	flag.StringVar(&outPath, "out", "spectrogram.png", "Output PNG file")
	flag.StringVar(&preset, "preset", "microphone", "Parameter preset: microphone or studio")
	flag.IntVar(&width, "width", 2048, "Image width in pixels")
	flag.IntVar(&height, "height", 512, "Image height in pixels (frequency bins)")
	flag.BoolVar(&noPeaks, "no-peaks", false, "Skip the constellation overlay")
}

func main() {
	flag.Parse()
	if inPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	var params fingerprint.Params
	switch preset {
	case "microphone":
		params = fingerprint.MicrophoneParams()
	case "studio":
		params = fingerprint.StudioParams()
	default:
		log.Fatalf("Unknown preset %q (want microphone or studio)", preset)
	}

	samples, sampleRate, err := audio.ReadWAV(inPath)
	if err != nil {
		log.Fatalf("Reading %s: %v", inPath, err)
	}
	fmt.Printf("Read %d samples at %d Hz\n", len(samples), sampleRate)

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale.
	spectrogram.Drawfft(img, samples, uint32(sampleRate), uint32(height), false, false, true, false)

	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, image.Point{}, draw.Src)

	if !noPeaks {
		if err := overlayPeaks(out, samples, sampleRate, params); err != nil {
			log.Fatalf("Extracting peaks: %v", err)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Creating %s: %v", outPath, err)
	}
	defer f.Close()
	if err := png.Encode(f, out); err != nil {
		log.Fatalf("Encoding PNG: %v", err)
	}
	fmt.Printf("Saved spectrogram to %s\n", outPath)
}

// overlayPeaks runs the fingerprinting front half on the samples and
// marks each constellation peak with a red cross.
func overlayPeaks(img *image.RGBA, samples []float64, sampleRate int, params fingerprint.Params) error {
	if sampleRate != params.SampleRate {
		down, err := fingerprint.Downsample(samples, sampleRate, params.SampleRate)
		if err != nil {
			return fmt.Errorf("preset expects %d Hz: %w", params.SampleRate, err)
		}
		samples = down
	}

	spec, err := fingerprint.Spectrogram(samples, params)
	if err != nil {
		return err
	}
	peaks := fingerprint.ExtractPeaks(spec, params)
	fmt.Printf("Overlaying %d peaks\n", len(peaks))

	bounds := img.Bounds()
	nFrames := len(spec)
	nyquistBins := params.WindowSize / 2
	red := color.RGBA{R: 255, A: 255}

	for _, pk := range peaks {
		x := bounds.Min.X + pk.TimeIdx*bounds.Dx()/nFrames
		y := bounds.Max.Y - 1 - pk.FreqIdx*bounds.Dy()/nyquistBins
		drawCross(img, x, y, red)
	}
	return nil
}

func drawCross(img *image.RGBA, x, y int, c color.RGBA) {
	for d := -2; d <= 2; d++ {
		setIfInside(img, x+d, y, c)
		setIfInside(img, x, y+d, c)
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
