package beep

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeWAV writes a silent PCM16 mono WAV file.
func writeWAV(t *testing.T, path string, sampleRate, numSamples int) {
	t.Helper()
	dataLen := numSamples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing wav fixture: %v", err)
	}
}

func TestDecode_WAV(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, 8000, 8000) // 1 second

	stream, format, err := decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer stream.Close()

	if int(format.SampleRate) != 8000 {
		t.Errorf("sample rate = %d, want 8000", format.SampleRate)
	}
	if got := format.SampleRate.D(stream.Len()).Seconds(); got != 1.0 {
		t.Errorf("duration = %v, want 1.0", got)
	}
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "clip.flac")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := decode(path)
	if err == nil {
		t.Fatal("decode of unsupported extension should fail")
	}
	if !strings.Contains(err.Error(), "unsupported audio format") {
		t.Errorf("err = %v", err)
	}
}

func TestOpen_MissingFileReportsError(t *testing.T) {
	t.Parallel()
	src := Open(filepath.Join(t.TempDir(), "missing.wav"))
	defer src.Close()

	errCh := make(chan error, 1)
	src.OnError(func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a load error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no load error arrived")
	}

	if src.Duration() != 0 {
		t.Errorf("duration = %v, want 0 for a failed source", src.Duration())
	}
}
