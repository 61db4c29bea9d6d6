package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/spf13/afero"
)

// Codec identifies the audio container a music file is decoded as.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecWAV
	CodecOggVorbis
	CodecMPEG
)

func (c Codec) String() string {
	switch c {
	case CodecWAV:
		return "WAV"
	case CodecOggVorbis:
		return "OggVorbis"
	case CodecMPEG:
		return "MPEG"
	default:
		return "Unknown"
	}
}

var codecs = map[string]Codec{
	".wav": CodecWAV,
	".ogg": CodecOggVorbis,
	".mp3": CodecMPEG,
}

// CodecForExtension maps a file extension (with dot, any case) to its codec.
func CodecForExtension(ext string) (Codec, error) {
	if c, ok := codecs[strings.ToLower(ext)]; ok {
		return c, nil
	}
	return CodecUnknown, fmt.Errorf("%w: unsupported audio extension %q", shared.ErrDecode, ext)
}

// CodecForPath is [CodecForExtension] applied to the extension of path.
func CodecForPath(path string) (Codec, error) {
	return CodecForExtension(filepath.Ext(path))
}

// AudioDecoder turns a music file into an [models.AudioClip].
type AudioDecoder interface {
	DecodeAudio(ctx context.Context, path string, codec Codec) (*models.AudioClip, error)
}

// FileAudioDecoder decodes music files on a filesystem.
type FileAudioDecoder struct {
	fs afero.Fs
}

// NewFileAudioDecoder creates a decoder reading from fsys.
func NewFileAudioDecoder(fsys afero.Fs) *FileAudioDecoder {
	return &FileAudioDecoder{fs: fsys}
}

// DecodeAudio reads path and decodes its whole stream as codec.
//
// A file whose headers parse but whose audio body is corrupt or truncated fails with [shared.ErrDecode].
func (d *FileAudioDecoder) DecodeAudio(ctx context.Context, path string, codec Codec) (*models.AudioClip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readAsset(d.fs, path)
	if err != nil {
		return nil, err
	}

	clip := &models.AudioClip{Path: path, Codec: codec.String(), Size: int64(len(data))}

	switch codec {
	case CodecWAV:
		err = decodeWAV(ctx, data, clip)
	case CodecOggVorbis:
		err = decodeOgg(ctx, data, clip)
	case CodecMPEG:
		err = decodeMPEG(ctx, data, clip)
	default:
		err = fmt.Errorf("unsupported codec %s", codec)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrDecode, path, err)
	}
	return clip, nil
}

// frames converts a per-channel sample count to a duration.
func frames(samples int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func decodeWAV(ctx context.Context, data []byte, clip *models.AudioClip) error {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if dec.NumChans == 0 || dec.BitDepth == 0 || buf == nil {
		return errors.New("missing fmt or data chunk")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bytesPerSample := (int(dec.BitDepth)-1)/8 + 1
	if len(buf.Data)*bytesPerSample < dec.PCMSize {
		return fmt.Errorf("data chunk truncated: %d of %d bytes", len(buf.Data)*bytesPerSample, dec.PCMSize)
	}

	clip.Channels = int(dec.NumChans)
	clip.SampleRate = int(dec.SampleRate)
	clip.Duration = frames(int64(len(buf.Data)/clip.Channels), clip.SampleRate)
	return nil
}

func decodeOgg(ctx context.Context, data []byte, clip *models.AudioClip) error {
	r, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	clip.Channels = r.Channels()
	clip.SampleRate = r.SampleRate()
	if clip.Channels <= 0 {
		return errors.New("no channels")
	}

	var samples int64
	buf := make([]float32, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		samples += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	clip.Duration = frames(samples/int64(clip.Channels), clip.SampleRate)
	return nil
}

// mpegOutputFrame is the size of one decoded MPEG sample frame: 16-bit stereo.
const mpegOutputFrame = 4

func decodeMPEG(ctx context.Context, data []byte, clip *models.AudioClip) error {
	if tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true}); err == nil {
		clip.Title = tag.Title()
		clip.Artist = tag.Artist()
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return err
	}
	clip.SampleRate = dec.SampleRate()
	clip.Channels = 2

	var decoded int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := dec.Read(buf)
		decoded += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	if decoded == 0 {
		return errors.New("no audio frames")
	}

	clip.Duration = frames(decoded/mpegOutputFrame, clip.SampleRate)
	return nil
}
