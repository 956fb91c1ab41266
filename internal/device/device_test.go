package device

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sweeney/edge-sensors/internal/gpio"
	"github.com/sweeney/edge-sensors/internal/rht03"
)

type fakeSource struct {
	text []byte
	err  error
}

func (f *fakeSource) Read() ([]byte, error) {
	return f.text, f.err
}

func TestReadCopiesText(t *testing.T) {
	d := New("freq", &fakeSource{text: []byte("7000\n")})

	buf := make([]byte, 16)
	n, err := d.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "7000\n" {
		t.Errorf("got %q, want %q", buf[:n], "7000\n")
	}
}

func TestReadNoData(t *testing.T) {
	d := New("freq", &fakeSource{})

	n, err := d.Read(make([]byte, 16))
	if err != nil {
		t.Fatalf("no data should not be an error: %v", err)
	}
	if n != 0 {
		t.Errorf("n: got %d, want 0", n)
	}
}

func TestReadFault(t *testing.T) {
	d := New("rht03", &fakeSource{err: rht03.ErrFrame})

	_, err := d.Read(make([]byte, 16))
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, rht03.ErrFrame) {
		t.Errorf("expected the sensor error to be preserved, got %v", err)
	}
	if errors.Is(err, ErrCopy) {
		t.Error("sensor fault must not look like a copy fault")
	}
}

func TestReadShortBuffer(t *testing.T) {
	d := New("rht03", &fakeSource{text: []byte("h=400 t=250\n")})

	_, err := d.Read(make([]byte, 4))
	if !errors.Is(err, ErrCopy) {
		t.Errorf("expected ErrCopy, got %v", err)
	}
	if errors.Is(err, ErrIO) {
		t.Error("copy fault must not look like a sensor fault")
	}
}

func TestWriteRejected(t *testing.T) {
	var w io.Writer = New("freq", &fakeSource{})

	n, err := w.Write([]byte("1"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if n != 0 {
		t.Errorf("n: got %d, want 0", n)
	}
}

func TestReadString(t *testing.T) {
	d := New("freq", &fakeSource{text: []byte("5123\n")})

	got, err := d.ReadString()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5123\n" {
		t.Errorf("got %q", got)
	}
	if d.Name() != "freq" {
		t.Errorf("name: got %q", d.Name())
	}
}

func TestDeviceOverDecoder(t *testing.T) {
	line := gpio.NewFakeLine()
	dec, err := rht03.New(line, rht03.DefaultConfig(), rht03.WithSleep(func(d time.Duration) {}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := New("rht03", dec)

	_, err = d.Read(make([]byte, MaxReading))
	if !errors.Is(err, rht03.ErrFrame) || !errors.Is(err, ErrIO) {
		t.Errorf("silent sensor: expected frame fault as i/o fault, got %v", err)
	}
}
