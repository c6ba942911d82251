package helper

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for audio that is not a readable WAV file
var ErrInvalidWAV = errors.New("not a valid wav file")

// WAVInfo describes a recorded utterance
type WAVInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	BitDepth   int
}

// InspectWAV reads the header of a WAV payload
func InspectWAV(data []byte) (WAVInfo, error) {
	if !wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
		return WAVInfo{}, ErrInvalidWAV
	}
	// Duration forwards to the PCM chunk and fills the format fields on the way
	dec := wav.NewDecoder(bytes.NewReader(data))
	dur, err := dec.Duration()
	if err != nil {
		return WAVInfo{}, err
	}
	return WAVInfo{
		Duration:   dur,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// SoundRef turns a file under the Asterisk sounds directory into a media
// reference. Asterisk picks the extension itself.
func SoundRef(path string) string {
	return "sound:" + strings.TrimSuffix(path, filepath.Ext(path))
}

// CacheFileName names a synthesized file after the text and the voice
func CacheFileName(dir, text, engine, voice, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%x_%s_%s%s", md5.Sum([]byte(text)), engine, voice, ext))
}
