package tts

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"github.com/codemusic/go-roverseer/pkg/audio"
	"github.com/codemusic/go-roverseer/pkg/usage"
)

const providerPolly = "polly"

// pollySampleRate is the PCM sample rate requested from Polly.
const pollySampleRate = 16000

// synthClient is the subset of the Polly API the provider uses.
// Narrowed so tests can substitute a fake.
type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
}

// Polly renders speech with Amazon Polly. Local-style voice identifiers
// (anything shaped like en_GB-jarvis) are mapped to the configured Polly
// voice; plain names are passed through as Polly voice IDs.
type Polly struct {
	region  string
	voice   string
	engine  pollytypes.Engine
	timeout time.Duration
	logger  *slog.Logger
	usage   *usage.Logger

	mu     sync.Mutex
	client synthClient
}

// NewPolly creates a Polly provider. The AWS client is constructed
// lazily from the default credential chain on first use.
func NewPolly(opts ...Option) (*Polly, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	engine := pollytypes.EngineStandard
	if strings.EqualFold(cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	return &Polly{
		region:  cfg.Region,
		voice:   cfg.PollyVoice,
		engine:  engine,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With("component", "tts.polly"),
		usage:   cfg.Usage,
	}, nil
}

// newPollyWithClient is used by tests to inject a fake client.
func newPollyWithClient(client synthClient, opts ...Option) (*Polly, error) {
	p, err := NewPolly(opts...)
	if err != nil {
		return nil, err
	}
	p.client = client
	return p, nil
}

func (p *Polly) resolveClient(ctx context.Context) (synthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.region))
	if err != nil {
		return nil, WrapError(providerPolly, fmt.Errorf("load aws config: %w", err))
	}
	p.client = polly.NewFromConfig(awsCfg)
	return p.client, nil
}

// resolveVoice maps the requested voice onto a Polly voice ID.
func (p *Polly) resolveVoice(requested string) string {
	if requested == "" || strings.ContainsAny(requested, "_-") {
		return p.voice
	}
	return requested
}

// Synthesize renders text to a temp WAV file via Polly PCM output.
func (p *Polly) Synthesize(ctx context.Context, voice, text string) (*AudioResult, error) {
	clean := SanitizeForSpeech(text)
	if clean == "" {
		return nil, WrapError(providerPolly, ErrEmptyText)
	}

	client, err := p.resolveClient(ctx)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resolved := p.resolveVoice(voice)
	sampleRate := fmt.Sprintf("%d", pollySampleRate)

	start := time.Now()
	out, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       p.engine,
		OutputFormat: pollytypes.OutputFormatPcm,
		SampleRate:   &sampleRate,
		Text:         &clean,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(resolved),
	})
	if err != nil {
		return nil, p.classify(err)
	}
	if out == nil || out.AudioStream == nil {
		return nil, WrapError(providerPolly, fmt.Errorf("%w: empty audio stream", ErrSynthesisFailed))
	}
	defer out.AudioStream.Close()

	pcm, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, WrapError(providerPolly, fmt.Errorf("%w: reading audio stream: %v", ErrSynthesisFailed, err))
	}
	elapsed := time.Since(start)

	path, cleanup, err := audio.WriteTemp(wavBytes(pcm, pollySampleRate))
	if err != nil {
		return nil, WrapError(providerPolly, err)
	}

	p.logger.Debug("synthesis complete",
		"voice", resolved, "chars", len(clean), "elapsed_ms", elapsed.Milliseconds())

	if p.usage != nil {
		p.usage.LogTTS(usage.TTSRecord{
			Voice:     resolved,
			Text:      text,
			Output:    path,
			LatencyMs: elapsed.Milliseconds(),
		})
	}

	return &AudioResult{
		Path:      path,
		Voice:     resolved,
		CharCount: len(clean),
		LatencyMs: elapsed.Milliseconds(),
		Cleanup:   cleanup,
	}, nil
}

// classify maps Polly failures onto the package sentinels.
func (p *Polly) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return WrapError(providerPolly, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ValidationException", "InvalidVoiceId":
			return WrapError(providerPolly, fmt.Errorf("%w: %s", ErrVoiceNotFound, apiErr.ErrorMessage()))
		default:
			return WrapError(providerPolly, fmt.Errorf("%w: %s (%s)", ErrSynthesisFailed, apiErr.ErrorMessage(), apiErr.ErrorCode()))
		}
	}
	return WrapError(providerPolly, fmt.Errorf("%w: %v", ErrSynthesisFailed, err))
}

// Voices lists the Polly voice IDs available in the region.
func (p *Polly) Voices(ctx context.Context) ([]string, error) {
	client, err := p.resolveClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeVoices(ctx, &polly.DescribeVoicesInput{Engine: p.engine})
	if err != nil {
		return nil, p.classify(err)
	}
	voices := make([]string, 0, len(out.Voices))
	for _, v := range out.Voices {
		voices = append(voices, string(v.Id))
	}
	return voices, nil
}

// Health checks connectivity and credentials with a voice listing.
func (p *Polly) Health(ctx context.Context) error {
	_, err := p.Voices(ctx)
	return err
}

// Close releases resources. The AWS client holds none.
func (p *Polly) Close() error { return nil }

// wavBytes wraps mono PCM16 samples in a RIFF header aplay can play.
func wavBytes(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header[:], pcm...)
}

// Verify Polly implements Provider at compile time.
var _ Provider = (*Polly)(nil)
