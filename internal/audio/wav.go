package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrUnsupportedFormat indicates a WAV file the decoder cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported wav format")

const pcmFormatCode = 1

// ReadWAV decodes a 16-bit PCM WAV file into a mono buffer. Multi-channel
// audio is down-mixed by per-sample channel averaging.
func ReadWAV(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()
	return DecodeWAV(file)
}

// DecodeWAV decodes 16-bit PCM WAV data from a reader.
func DecodeWAV(r io.Reader) (*Buffer, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrUnsupportedFormat)
	}

	var (
		channels   int
		sampleRate int
		bitDepth   int
		haveFormat bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrUnsupportedFormat)
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != pcmFormatCode {
				return nil, fmt.Errorf("%w: format code %d", ErrUnsupportedFormat, format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			if channels < 1 || sampleRate <= 0 {
				return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate)
			}
			if bitDepth != 16 {
				return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, bitDepth)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrUnsupportedFormat)
			}
			return decodeData(r, chunkSize, channels, sampleRate)
		default:
			// Skip ancillary chunks (LIST, fact, ...). Chunks are word aligned.
			skip := chunkSize
			if skip%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", chunkID, err)
			}
		}
	}
}

func decodeData(r io.Reader, size int64, channels, sampleRate int) (*Buffer, error) {
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read data chunk: %w", err)
	}

	frameBytes := channels * 2
	frames := len(raw) / frameBytes
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			offset := i*frameBytes + ch*2
			value := int16(binary.LittleEndian.Uint16(raw[offset : offset+2]))
			sum += float64(value)
		}
		samples[i] = (sum / float64(channels)) / 32768.0
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// WriteWAV encodes a mono buffer as 16-bit PCM WAV, clamping samples to
// [-1, 1]. Used to hand chunks to the external speech model.
func WriteWAV(w io.Writer, buf *Buffer) error {
	dataSize := len(buf.Samples) * 2

	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(36+dataSize))
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, pcmFormatCode)
	header = binary.LittleEndian.AppendUint16(header, 1) // mono
	header = binary.LittleEndian.AppendUint32(header, uint32(buf.SampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(buf.SampleRate*2))
	header = binary.LittleEndian.AppendUint16(header, 2)
	header = binary.LittleEndian.AppendUint16(header, 16)
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataSize))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	pcm := make([]byte, dataSize)
	for i, s := range buf.Samples {
		clamped := math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(clamped*32767)))
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
