package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

const wavFormatIEEEFloat = 3

// DecodeFile reads a WAV, MP3 or FLAC file and returns 16 kHz mono samples.
func DecodeFile(path string) ([]float32, error) {
	container, err := DetectFileContainer(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect audio: %w", err)
	}

	var (
		samples    []float32
		sampleRate int
	)
	switch container {
	case ContainerWAV:
		samples, sampleRate, err = readWAVSamples(path)
	case ContainerMP3:
		samples, sampleRate, err = readMP3Samples(path)
	case ContainerFLAC:
		samples, sampleRate, err = readFLACSamples(path)
	default:
		return nil, ErrUnknownContainer
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", container, err)
	}

	return Resample(samples, sampleRate, SampleRate), nil
}

// downmix averages the channels of each frame into one sample scaled to
// [-1, 1]. at returns the raw integer sample for a frame and channel; bias is
// subtracted first to centre unsigned formats.
func downmix(dst []float32, frames, channels int, at func(frame, ch int) int, bias int, bitDepth int) []float32 {
	fullScale := float64(int64(1) << (bitDepth - 1))
	for i := 0; i < frames; i++ {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(at(i, ch) - bias)
		}
		dst = append(dst, float32(float64(sum)/float64(channels)/fullScale))
	}
	return dst
}

// readWAVSamples decodes integer PCM WAV and downmixes to mono.
func readWAVSamples(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file")
	}
	if decoder.WavAudioFormat == wavFormatIEEEFloat {
		return nil, 0, fmt.Errorf("floating-point WAV is not supported")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	channels := max(int(decoder.NumChans), 1)
	bitDepth := int(decoder.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	// 8-bit WAV is unsigned
	bias := 0
	if bitDepth == 8 {
		bias = 128
	}

	frames := len(buf.Data) / channels
	at := func(frame, ch int) int { return buf.Data[frame*channels+ch] }
	samples := downmix(make([]float32, 0, frames), frames, channels, at, bias, bitDepth)
	return samples, int(decoder.SampleRate), nil
}

// readMP3Samples decodes MP3. go-mp3 always yields 16-bit little-endian stereo.
func readMP3Samples(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, err
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, err
	}

	const channels, frameBytes = 2, 4
	frames := len(data) / frameBytes
	at := func(frame, ch int) int {
		return int(int16(binary.LittleEndian.Uint16(data[frame*frameBytes+ch*2:])))
	}
	samples := downmix(make([]float32, 0, frames), frames, channels, at, 0, 16)
	return samples, decoder.SampleRate(), nil
}

func readFLACSamples(path string) ([]float32, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		at := func(i, ch int) int { return int(frame.Subframes[ch].Samples[i]) }
		samples = downmix(samples, len(frame.Subframes[0].Samples), channels, at, 0, bitDepth)
	}

	return samples, int(stream.Info.SampleRate), nil
}
