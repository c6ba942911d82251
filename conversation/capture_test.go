package conversation

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
)

func pcmWAV(sampleRate, samples int) []byte {
	var b bytes.Buffer
	dataLen := samples * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

// fakeRecorder reports every recording finished with the given outcome
type fakeRecorder struct {
	waiters *asterisk.Waiters
	outcome asterisk.Completion
	audio   []byte

	mu      sync.Mutex
	fetched []string
	deleted []string
}

func (f *fakeRecorder) RecordBridge(ctx context.Context, callID, bridgeID, name string, opts asterisk.RecordingOptions) error {
	c := f.outcome
	c.ID = name
	go f.waiters.Notify(c)
	return nil
}

func (f *fakeRecorder) FetchStoredRecording(ctx context.Context, callID, name string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, name)
	f.mu.Unlock()
	return f.audio, nil
}

func (f *fakeRecorder) DeleteStoredRecording(ctx context.Context, callID, name string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, name)
	f.mu.Unlock()
	return nil
}

func TestRecordingCapture(t *testing.T) {
	opts := asterisk.RecordingOptions{Format: "wav", MaxDuration: time.Second, MaxSilence: time.Second}
	tests := []struct {
		name        string
		outcome     asterisk.Completion
		audio       []byte
		wantErr     error
		wantFetch   bool
		wantSeconds time.Duration
	}{
		{
			name:        "speech",
			outcome:     asterisk.Completion{Duration: 2, TalkingDuration: 1},
			audio:       pcmWAV(8000, 16000),
			wantFetch:   true,
			wantSeconds: 2 * time.Second,
		},
		{
			name:    "silence only",
			outcome: asterisk.Completion{Duration: 2},
			wantErr: ErrNoSpeech,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waiters := asterisk.NewWaiters()
			rec := &fakeRecorder{waiters: waiters, outcome: tt.outcome, audio: tt.audio}
			u, err := NewRecordingCapture(rec, waiters, opts).Capture(context.Background(), "C1", "B1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if (len(rec.fetched) == 1) != tt.wantFetch {
				t.Errorf("fetched = %v", rec.fetched)
			}
			if len(rec.deleted) != 1 {
				t.Errorf("stored recording not deleted: %v", rec.deleted)
			}
			if waiters.Len() != 0 {
				t.Errorf("%d waiters left behind", waiters.Len())
			}
			if err == nil && (u.Duration != tt.wantSeconds || u.SampleRate != 8000) {
				t.Errorf("utterance = %+v", u)
			}
		})
	}
}

func TestRecordingCaptureFailed(t *testing.T) {
	waiters := asterisk.NewWaiters()
	rec := &fakeRecorder{waiters: waiters, outcome: asterisk.Completion{Failed: true, Cause: "disk full"}}
	_, err := NewRecordingCapture(rec, waiters, asterisk.RecordingOptions{}).Capture(context.Background(), "C1", "B1")
	if err == nil || errors.Is(err, ErrNoSpeech) {
		t.Fatalf("err = %v, want a failure", err)
	}
}

func TestRecordingCaptureNoBridge(t *testing.T) {
	_, err := NewRecordingCapture(&fakeRecorder{}, asterisk.NewWaiters(), asterisk.RecordingOptions{}).Capture(context.Background(), "C1", "")
	if err == nil {
		t.Fatal("expected error without a bridge")
	}
}

type fakeBridgePlayer struct {
	waiters *asterisk.Waiters
	finish  bool
	failed  bool
	err     error
}

func (f *fakeBridgePlayer) PlayOnBridge(ctx context.Context, callID, bridgeID, playbackID, mediaRef string) error {
	if f.err != nil {
		return f.err
	}
	if f.finish {
		go f.waiters.Notify(asterisk.Completion{ID: playbackID, Failed: f.failed})
	}
	return nil
}

func TestPlaybackPlayer(t *testing.T) {
	t.Run("finished", func(t *testing.T) {
		waiters := asterisk.NewWaiters()
		p := NewPlaybackPlayer(&fakeBridgePlayer{waiters: waiters, finish: true}, waiters, time.Minute)
		if err := p.Play(context.Background(), "C1", "B1", "sound:hello-world"); err != nil {
			t.Fatalf("Play: %v", err)
		}
	})
	t.Run("failed", func(t *testing.T) {
		waiters := asterisk.NewWaiters()
		p := NewPlaybackPlayer(&fakeBridgePlayer{waiters: waiters, finish: true, failed: true}, waiters, time.Minute)
		err := p.Play(context.Background(), "C1", "B1", "sound:missing-file")
		if err == nil || !strings.Contains(err.Error(), "sound:missing-file") {
			t.Fatalf("err = %v, want playback failure", err)
		}
	})
	t.Run("never reported", func(t *testing.T) {
		waiters := asterisk.NewWaiters()
		p := NewPlaybackPlayer(&fakeBridgePlayer{waiters: waiters}, waiters, 10*time.Millisecond)
		if err := p.Play(context.Background(), "C1", "B1", "sound:hello-world"); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if waiters.Len() != 0 {
			t.Error("waiter left behind")
		}
	})
	t.Run("command error", func(t *testing.T) {
		waiters := asterisk.NewWaiters()
		p := NewPlaybackPlayer(&fakeBridgePlayer{waiters: waiters, err: errors.New("404")}, waiters, time.Minute)
		if err := p.Play(context.Background(), "C1", "B1", "sound:x"); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		waiters := asterisk.NewWaiters()
		p := NewPlaybackPlayer(&fakeBridgePlayer{waiters: waiters}, waiters, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Play(ctx, "C1", "B1", "sound:x"); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}
