package tts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

// voicesDir builds a fake Piper voices directory.
func voicesDir(t *testing.T, voices ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, v := range voices {
		for _, name := range []string{v + ".onnx", v + ".onnx.json"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

// fakePiperBin writes a script that accepts piper's flags and copies
// stdin to the requested output file.
func fakePiperBin(t *testing.T, fail bool) string {
	t.Helper()
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_file" ]; then out="$2"; fi
  shift
done
`
	if fail {
		script += "echo 'phoneme table missing' >&2\nexit 1\n"
	} else {
		script += "cat > \"$out\"\n"
	}
	path := filepath.Join(t.TempDir(), "piper")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPiperVoices(t *testing.T) {
	dir := voicesDir(t, "en_GB-jarvis-medium", "en_US-amy-low", "en_US-amy-high")
	p, err := NewPiper(WithVoicesDir(dir))
	if err != nil {
		t.Fatalf("NewPiper: %v", err)
	}
	voices, err := p.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	want := []string{"en_GB-jarvis", "en_US-amy"}
	if len(voices) != len(want) {
		t.Fatalf("voices = %v, want %v", voices, want)
	}
	for i := range want {
		if voices[i] != want[i] {
			t.Errorf("voices[%d] = %q, want %q", i, voices[i], want[i])
		}
	}
}

func TestPiperResolveVoice(t *testing.T) {
	dir := voicesDir(t, "en_GB-jarvis-medium", "en_US-amy-low")
	p, _ := NewPiper(WithVoicesDir(dir))
	ctx := context.Background()

	t.Run("exact match", func(t *testing.T) {
		got, err := p.ResolveVoice(ctx, "en_US-amy")
		if err != nil || got != "en_US-amy" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("strips quality suffix", func(t *testing.T) {
		got, err := p.ResolveVoice(ctx, "en_GB-jarvis-medium")
		if err != nil || got != "en_GB-jarvis" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("unknown falls back to first available", func(t *testing.T) {
		got, err := p.ResolveVoice(ctx, "fr_FR-ghost")
		if err != nil || got != "en_GB-jarvis" {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		empty, _ := NewPiper(WithVoicesDir(t.TempDir()))
		if _, err := empty.ResolveVoice(ctx, "en_GB-jarvis"); !errors.Is(err, ErrVoiceNotFound) {
			t.Errorf("error = %v, want ErrVoiceNotFound", err)
		}
	})
}

func TestPiperSynthesize(t *testing.T) {
	dir := voicesDir(t, "en_GB-jarvis-medium")
	p, _ := NewPiper(WithVoicesDir(dir), WithBinary(fakePiperBin(t, false)))

	res, err := p.Synthesize(context.Background(), "en_GB-jarvis", "Hello rover")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer res.Discard()

	if res.Voice != "en_GB-jarvis" {
		t.Errorf("voice = %q", res.Voice)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Hello rover" {
		t.Errorf("synthesized text = %q", data)
	}

	res.Cleanup()
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Errorf("cleanup left file behind")
	}
}

func TestPiperSynthesizeFailure(t *testing.T) {
	dir := voicesDir(t, "en_GB-jarvis-medium")
	p, _ := NewPiper(WithVoicesDir(dir), WithBinary(fakePiperBin(t, true)))

	_, err := p.Synthesize(context.Background(), "en_GB-jarvis", "Hello")
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("error = %v, want ErrSynthesisFailed", err)
	}
	if !strings.Contains(err.Error(), "phoneme table missing") {
		t.Errorf("stderr not surfaced: %q", err.Error())
	}
}

func TestPiperSynthesizeEmptyText(t *testing.T) {
	p, _ := NewPiper(WithVoicesDir(voicesDir(t, "en_GB-jarvis-medium")))
	if _, err := p.Synthesize(context.Background(), "en_GB-jarvis", "<think>only thoughts</think>"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestSanitizeForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"think tags stripped", "<think>reasoning</think>The answer is four.", "The answer is four."},
		{"markdown header", "## Plans\nrest", "Plans. rest"},
		{"url collapsed", "see https://example.com/x now", "see web link now"},
		{"symbols spoken", "50% of $10", "50 percent of dollars 10"},
		{"symbols flush against digits", "save 10%today on $5items", "save 10 percent today on dollars 5items"},
		{"dimensions", "at 1920x1080 please", "at 1920 by 1080 please"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForSpeech(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainFallsBack(t *testing.T) {
	bad := WithError(errors.New("cloud down"))
	good := NewMock()
	chain, err := NewChain(bad, good)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	res, err := chain.Synthesize(context.Background(), "en_GB-jarvis", "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Voice != "en_GB-jarvis" {
		t.Errorf("voice = %q", res.Voice)
	}
	if len(good.Calls()) != 1 {
		t.Errorf("fallback provider calls = %d, want 1", len(good.Calls()))
	}
}

func TestChainAllFail(t *testing.T) {
	sentinel := errors.New("down")
	chain, _ := NewChain(WithError(sentinel), WithError(sentinel))

	_, err := chain.Synthesize(context.Background(), "v", "hello")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("error = %v, want *ChainError", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("errors = %d, want 2", len(chainErr.Errors))
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("last error not unwrapped")
	}
}

func TestChainRequiresProvider(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("error = %v, want ErrProviderUnavailable", err)
	}
}

// fakePollyClient scripts the Polly API.
type fakePollyClient struct {
	pcm   []byte
	err   error
	voice string
}

func (f *fakePollyClient) SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.voice = string(in.VoiceId)
	return &polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(bytes.NewReader(f.pcm)),
	}, nil
}

func (f *fakePollyClient) DescribeVoices(ctx context.Context, in *polly.DescribeVoicesInput, _ ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &polly.DescribeVoicesOutput{
		Voices: []pollytypes.Voice{{Id: pollytypes.VoiceIdBrian}},
	}, nil
}

func TestPollySynthesizeWritesWAV(t *testing.T) {
	fake := &fakePollyClient{pcm: []byte{1, 2, 3, 4}}
	p, err := newPollyWithClient(fake, WithPollyVoice("Brian"))
	if err != nil {
		t.Fatalf("newPollyWithClient: %v", err)
	}

	res, err := p.Synthesize(context.Background(), "en_GB-jarvis", "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer res.Discard()

	// Local-style voice id maps to the configured Polly voice.
	if fake.voice != "Brian" {
		t.Errorf("polly voice = %q, want Brian", fake.voice)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if len(data) != 44+4 {
		t.Fatalf("wav size = %d, want 48", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("missing RIFF header: % x", data[:12])
	}
	if !bytes.Equal(data[44:], fake.pcm) {
		t.Errorf("pcm payload corrupted")
	}

	res.Discard()
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Errorf("temp wav still present after discard: %v", err)
	}
}

func TestPollyClassifiesErrors(t *testing.T) {
	fake := &fakePollyClient{err: &smithy.GenericAPIError{Code: "ValidationException", Message: "no such voice"}}
	p, _ := newPollyWithClient(fake)

	_, err := p.Synthesize(context.Background(), "Brian", "hello")
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Errorf("error = %v, want ErrVoiceNotFound", err)
	}

	fake.err = &smithy.GenericAPIError{Code: "ServiceFailureException", Message: "boom"}
	_, err = p.Synthesize(context.Background(), "Brian", "hello")
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Errorf("error = %v, want ErrSynthesisFailed", err)
	}
}

func TestPollyPassesThroughPlainVoice(t *testing.T) {
	fake := &fakePollyClient{pcm: []byte{0, 0}}
	p, _ := newPollyWithClient(fake, WithPollyVoice("Brian"))

	res, err := p.Synthesize(context.Background(), "Joanna", "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer res.Discard()
	if fake.voice != "Joanna" {
		t.Errorf("polly voice = %q, want Joanna", fake.voice)
	}
}
