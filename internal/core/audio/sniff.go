package audio

import (
	"bytes"
	"io"
	"os"
)

// Container identifies an audio file format by its leading bytes.
type Container string

const (
	ContainerUnknown Container = ""
	ContainerWAV     Container = "wav"
	ContainerMP3     Container = "mp3"
	ContainerFLAC    Container = "flac"
)

// DetectContainer inspects the first bytes of a file.
func DetectContainer(header []byte) Container {
	n := len(header)

	// WAV: RIFF....WAVE
	if n >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE" {
		return ContainerWAV
	}

	// FLAC: fLaC
	if n >= 4 && string(header[0:4]) == "fLaC" {
		return ContainerFLAC
	}

	// MP3: ID3 tag or an MPEG frame sync
	if n >= 3 && bytes.Equal(header[0:3], []byte("ID3")) {
		return ContainerMP3
	}
	if n >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		return ContainerMP3
	}

	return ContainerUnknown
}

// DetectFileContainer reads the header of the file at path.
func DetectFileContainer(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ContainerUnknown, err
	}
	return DetectContainer(header[:n]), nil
}
