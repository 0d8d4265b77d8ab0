// ABOUTME: Audio file decoders producing interleaved float32 samples
// ABOUTME: Supports MP3, FLAC and WAV and loops back to the start at EOF
package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// pcmDecoder reads interleaved float32 samples in [-1, 1].
type pcmDecoder interface {
	// Read fills samples and returns how many were written; io.EOF marks the
	// end of the stream.
	Read(samples []float32) (int, error)
	SampleRate() int
	Channels() int
	// Rewind restarts decoding from the first sample.
	Rewind() error
	Close() error
}

// openDecoder picks a decoder by file extension.
func openDecoder(path string) (pcmDecoder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return newMP3Decoder(path)
	case ".flac":
		return newFLACDecoder(path)
	case ".wav":
		return newWAVDecoder(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", ext)
	}
}

// readLooping fills samples completely, rewinding at EOF.
func readLooping(d pcmDecoder, samples []float32) error {
	filled := 0
	empty := 0
	for filled < len(samples) {
		n, err := d.Read(samples[filled:])
		filled += n
		if errors.Is(err, io.EOF) {
			if n == 0 {
				empty++
			}
			// a file with no audio would spin forever
			if empty > 1 {
				return fmt.Errorf("audio file has no samples")
			}
			if err := d.Rewind(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			empty = 0
		}
	}
	return nil
}

// mp3Decoder reads an MP3 file; go-mp3 always yields 16-bit stereo.
type mp3Decoder struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Decoder(path string) (*mp3Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Decoder{file: f, decoder: decoder}, nil
}

func (d *mp3Decoder) Read(samples []float32) (int, error) {
	need := len(samples) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := io.ReadFull(d.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	count := n / 2
	for i := range count {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = float32(s) / 32768
	}
	return count, err
}

func (d *mp3Decoder) SampleRate() int { return d.decoder.SampleRate() }
func (d *mp3Decoder) Channels() int   { return 2 }

func (d *mp3Decoder) Rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(d.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	d.decoder = decoder
	return nil
}

func (d *mp3Decoder) Close() error { return d.file.Close() }

// flacDecoder reads a FLAC file frame by frame.
type flacDecoder struct {
	file     *os.File
	stream   *flac.Stream
	rate     int
	channels int
	scale    float32

	// samples of the current frame not yet handed out
	pending []float32
}

func newFLACDecoder(path string) (*flacDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &flacDecoder{
		file:     f,
		stream:   stream,
		rate:     int(info.SampleRate),
		channels: int(info.NChannels),
		scale:    fullScale(int(info.BitsPerSample)),
	}, nil
}

func (d *flacDecoder) Read(samples []float32) (int, error) {
	read := 0
	for read < len(samples) {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err != nil {
				return read, err
			}
			blockSize := int(frame.BlockSize)
			d.pending = d.pending[:0]
			for i := range blockSize {
				for ch := range d.channels {
					d.pending = append(d.pending, float32(frame.Subframes[ch].Samples[i])/d.scale)
				}
			}
		}
		n := copy(samples[read:], d.pending)
		d.pending = d.pending[n:]
		read += n
	}
	return read, nil
}

func (d *flacDecoder) SampleRate() int { return d.rate }
func (d *flacDecoder) Channels() int   { return d.channels }

func (d *flacDecoder) Rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(d.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	d.stream = stream
	d.pending = nil
	return nil
}

func (d *flacDecoder) Close() error { return d.file.Close() }

// wavDecoder reads PCM WAV files through go-audio.
type wavDecoder struct {
	file     *os.File
	decoder  *wav.Decoder
	rate     int
	channels int
	scale    float32
	offset   int // 8-bit WAV samples are unsigned, centred on 128
	buf      *audio.IntBuffer
}

func newWAVDecoder(path string) (*wavDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %v", decoder.Err())
	}

	d := &wavDecoder{
		file:     f,
		decoder:  decoder,
		rate:     int(decoder.SampleRate),
		channels: int(decoder.NumChans),
		scale:    fullScale(int(decoder.BitDepth)),
	}
	if decoder.BitDepth == 8 {
		d.offset = 128
	}
	d.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: d.channels, SampleRate: d.rate},
		SourceBitDepth: int(decoder.BitDepth),
	}
	return d, nil
}

func (d *wavDecoder) Read(samples []float32) (int, error) {
	if cap(d.buf.Data) < len(samples) {
		d.buf.Data = make([]int, len(samples))
	}
	d.buf.Data = d.buf.Data[:len(samples)]

	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	for i := range n {
		samples[i] = float32(d.buf.Data[i]-d.offset) / d.scale
	}
	if n == 0 || n < len(samples) {
		return n, io.EOF
	}
	return n, nil
}

func (d *wavDecoder) SampleRate() int { return d.rate }
func (d *wavDecoder) Channels() int   { return d.channels }

func (d *wavDecoder) Rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder := wav.NewDecoder(d.file)
	if !decoder.IsValidFile() {
		return fmt.Errorf("failed to decode WAV: %v", decoder.Err())
	}
	d.decoder = decoder
	return nil
}

func (d *wavDecoder) Close() error { return d.file.Close() }

// fullScale is the magnitude of a full-scale integer sample.
func fullScale(bits int) float32 {
	if bits <= 0 || bits > 32 {
		bits = 16
	}
	return float32(uint64(1) << (bits - 1))
}
