package storage

import (
	"errors"
	"testing"
	"time"

	"treegp/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	input := sampleRun("run-1", started)
	input.BestExpression = "(($0 * $1) + ($1 - ($0 * $0)))"

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.ID != input.ID || !output.StartedAt.Equal(started) || output.BestExpression != input.BestExpression {
		t.Fatalf("unexpected run: %+v", output)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	run := sampleRun("run-1", time.Now())
	run.CodecVersion = 99
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeRunRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeRun([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeGenerationHistory([]byte("[")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGenerationHistoryCodecRoundTrip(t *testing.T) {
	input := []model.GenerationStats{{Generation: 3, BestFitness: 0.25, BestSize: 5}}
	data, err := EncodeGenerationHistory(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeGenerationHistory(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(output) != 1 || output[0] != input[0] {
		t.Fatalf("unexpected history: %+v", output)
	}
}
