package transport

import (
	"bytes"
	"testing"
)

func TestFrame_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(""),
		[]byte("hello"),
		bytes.Repeat([]byte("x"), 125),
		bytes.Repeat([]byte("x"), 126),
		bytes.Repeat([]byte("x"), 1000),
		bytes.Repeat([]byte("x"), 70000),
	}

	for _, p := range payloads {
		encoded, err := EncodeFrame(p)
		if err != nil {
			t.Fatalf("EncodeFrame(%d bytes) error: %v", len(p), err)
		}
		decoded, err := DecodeFrame(encoded)
		if err != nil {
			t.Fatalf("DecodeFrame(%d bytes) error: %v", len(p), err)
		}
		if !bytes.Equal(decoded.Payload, p) {
			t.Errorf("round trip mismatch for %d-byte payload", len(p))
		}
		if decoded.Consumed != len(encoded) {
			t.Errorf("Consumed = %d, want %d", decoded.Consumed, len(encoded))
		}
	}
}

func TestFrame_EncodeIsMasked(t *testing.T) {
	payload := []byte("secret")
	encoded, err := EncodeFrame(payload)
	if err != nil {
		t.Fatal(err)
	}
	if encoded[1]&maskBit == 0 {
		t.Error("client frames must set the mask bit")
	}
}

func TestFrame_DecodeUnmaskedServerFrame(t *testing.T) {
	payload := []byte(`{"type":"registered"}`)
	header := []byte{finBit | opcodeText, byte(len(payload))}
	buf := append(append([]byte{}, header...), payload...)

	decoded, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("Payload = %q, want %q", decoded.Payload, payload)
	}
}

func TestFrame_DecodeIncompleteFrame(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x81}); err != ErrIncompleteFrame {
		t.Errorf("expected ErrIncompleteFrame for a 1-byte buffer, got %v", err)
	}

	full, _ := EncodeFrame([]byte("hello world"))
	if _, err := DecodeFrame(full[:len(full)-2]); err != ErrIncompleteFrame {
		t.Errorf("expected ErrIncompleteFrame for a truncated frame, got %v", err)
	}
}

func TestFrame_DecodeConsumesOnlyOneFrameFromABuffer(t *testing.T) {
	f1, _ := EncodeFrame([]byte("first"))
	f2, _ := EncodeFrame([]byte("second"))
	buf := append(append([]byte{}, f1...), f2...)

	decoded, err := DecodeFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded.Payload) != "first" {
		t.Errorf("Payload = %q, want first", decoded.Payload)
	}
	if decoded.Consumed != len(f1) {
		t.Errorf("Consumed = %d, want %d", decoded.Consumed, len(f1))
	}

	rest := buf[decoded.Consumed:]
	decoded2, err := DecodeFrame(rest)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded2.Payload) != "second" {
		t.Errorf("Payload = %q, want second", decoded2.Payload)
	}
}

func TestFrame_EncodeWithFixedMaskIsDeterministic(t *testing.T) {
	mask := []byte{1, 2, 3, 4}
	a := encodeFrameWithMask([]byte("abc"), mask)
	b := encodeFrameWithMask([]byte("abc"), mask)
	if !bytes.Equal(a, b) {
		t.Error("encoding with the same mask should be deterministic")
	}
}
