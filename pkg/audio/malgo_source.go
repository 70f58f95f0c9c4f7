package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrClosed is returned by Read once the source has been closed.
var ErrClosed = errors.New("audio: source closed")

// MicSource captures mono float32 samples from the default input device
// in fixed chunk_ms blocks. There is no playback path: this daemon only
// records, it never plays audio back.
type MicSource struct {
	sampleRate int
	chunkMs    int

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	chunks chan Chunk
	cancel context.CancelFunc
	runCtx context.Context

	mu     sync.Mutex
	closed bool
}

func NewMicSource(sampleRate, chunkMs int) *MicSource {
	return &MicSource{sampleRate: sampleRate, chunkMs: chunkMs}
}

func (m *MicSource) Open() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("audio: init malgo context: %w", err)
	}
	m.ctx = mctx

	chunkSamples := m.sampleRate * m.chunkMs / 1000
	m.chunks = make(chan Chunk, 8)
	m.runCtx, m.cancel = context.WithCancel(context.Background())

	pcmBuf := make([]byte, 0, chunkSamples*2)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(_, pInput []byte, _ uint32) {
		if pInput == nil {
			return
		}
		pcmBuf = append(pcmBuf, pInput...)
		frameBytes := chunkSamples * 2
		for len(pcmBuf) >= frameBytes {
			chunk := Chunk{
				Samples:    pcmToFloat32(pcmBuf[:frameBytes]),
				SampleRate: m.sampleRate,
			}
			pcmBuf = pcmBuf[frameBytes:]
			select {
			case m.chunks <- chunk:
			case <-m.runCtx.Done():
				return
			default:
				// Consumer fell behind; drop the oldest chunk rather than
				// block the capture callback.
				select {
				case <-m.chunks:
				default:
				}
				select {
				case m.chunks <- chunk:
				default:
				}
			}
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		mctx.Uninit()
		return fmt.Errorf("audio: init device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return fmt.Errorf("audio: start device: %w", err)
	}
	return nil
}

func (m *MicSource) Read() (Chunk, error) {
	select {
	case chunk, ok := <-m.chunks:
		if !ok {
			return Chunk{}, ErrClosed
		}
		return chunk, nil
	case <-m.runCtx.Done():
		return Chunk{}, ErrClosed
	}
}

func (m *MicSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	if m.device != nil {
		m.device.Uninit()
	}
	if m.ctx != nil {
		m.ctx.Uninit()
	}
	return nil
}

// pcmToFloat32 converts s16le PCM bytes to float32 samples normalized to
// [-1, 1]. Dividing by 32768 (not 32767) keeps the full int16 range inside
// [-1, 1) rather than overshooting at the positive end.
func pcmToFloat32(buf []byte) []float32 {
	n := len(buf) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}
