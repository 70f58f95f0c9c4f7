package recognizer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/listen-cli/listend/pkg/onnxrt"
)

// LocalConfig configures the local streaming transducer. It has no
// endpoint-detection parameters and the recognizer does no endpoint
// detection: utterance boundaries are user-driven via the control
// socket, not silence detection.
type LocalConfig struct {
	Tokens, Encoder, Decoder, Joiner string
	Provider                        string
	Threads                         int
	Decoding                        string
	ORTLibPath                      string
	DevMode                         bool

	FeatureDim int // default 80
	SampleRate int // default 16000
}

const (
	encoderHiddenSize = 512
	blankID           = 0
)

// Local is a streaming transducer recognizer driven directly through
// ONNX Runtime: three sessions (encoder, decoder, joiner) stepped frame
// by frame, greedy-decoded, with RNN state carried forward between
// Accept calls the way sherpa-onnx's OnlineRecognizer does internally.
type Local struct {
	cfg LocalConfig

	vocab map[int]string

	encoder *ort.AdvancedSession
	decoder *ort.AdvancedSession
	joiner  *ort.AdvancedSession

	encIn    *ort.Tensor[float32]
	encState *ort.Tensor[float32]
	encOut   *ort.Tensor[float32]
	encOutSt *ort.Tensor[float32]

	decIn    *ort.Tensor[int64]
	decState *ort.Tensor[float32]
	decOut   *ort.Tensor[float32]
	decOutSt *ort.Tensor[float32]

	joinIn1 *ort.Tensor[float32]
	joinIn2 *ort.Tensor[float32]
	joinOut *ort.Tensor[float32]

	featBuf    []float32
	lastToken  int64
	emitted    []int
	partial    string
	closed     bool
}

// NewLocal constructs a Local recognizer. Model construction loads the
// ONNX graphs eagerly, so the engine's Prewarm has no model loading left
// to do afterward.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Tokens == "" || cfg.Encoder == "" || cfg.Decoder == "" || cfg.Joiner == "" {
		return nil, fmt.Errorf("recognizer: local requires tokens, encoder, decoder and joiner paths")
	}
	if cfg.FeatureDim == 0 {
		cfg.FeatureDim = 80
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	if err := onnxrt.Init(cfg.ORTLibPath, cfg.DevMode); err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}

	vocab, err := loadTokens(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("recognizer: load tokens: %w", err)
	}

	l := &Local{cfg: cfg, vocab: vocab, lastToken: blankID}

	if err := l.allocTensors(); err != nil {
		return nil, err
	}
	if err := l.createSessions(); err != nil {
		l.destroyTensors()
		return nil, err
	}
	return l, nil
}

func (l *Local) allocTensors() error {
	var err error
	destroyAndReturn := func(e error) error {
		l.destroyTensors()
		return fmt.Errorf("recognizer: allocate tensors: %w", e)
	}

	if l.encIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, int64(l.cfg.FeatureDim))); err != nil {
		return destroyAndReturn(err)
	}
	if l.encState, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.encOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.encOutSt, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.decIn, err = ort.NewTensor(ort.NewShape(1, 1), []int64{blankID}); err != nil {
		return destroyAndReturn(err)
	}
	if l.decState, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.decOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.decOutSt, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.joinIn1, err = ort.NewEmptyTensor[float32](ort.NewShape(1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.joinIn2, err = ort.NewEmptyTensor[float32](ort.NewShape(1, encoderHiddenSize)); err != nil {
		return destroyAndReturn(err)
	}
	if l.joinOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(l.vocab)))); err != nil {
		return destroyAndReturn(err)
	}
	return nil
}

func (l *Local) createSessions() error {
	var err error
	l.encoder, err = ort.NewAdvancedSession(l.cfg.Encoder,
		[]string{"feature", "state"}, []string{"encoder_out", "state_out"},
		[]ort.Value{l.encIn, l.encState}, []ort.Value{l.encOut, l.encOutSt}, nil)
	if err != nil {
		return fmt.Errorf("recognizer: create encoder session: %w", err)
	}
	l.decoder, err = ort.NewAdvancedSession(l.cfg.Decoder,
		[]string{"token", "state"}, []string{"decoder_out", "state_out"},
		[]ort.Value{l.decIn, l.decState}, []ort.Value{l.decOut, l.decOutSt}, nil)
	if err != nil {
		l.encoder.Destroy()
		return fmt.Errorf("recognizer: create decoder session: %w", err)
	}
	l.joiner, err = ort.NewAdvancedSession(l.cfg.Joiner,
		[]string{"encoder_out", "decoder_out"}, []string{"logits"},
		[]ort.Value{l.joinIn1, l.joinIn2}, []ort.Value{l.joinOut}, nil)
	if err != nil {
		l.encoder.Destroy()
		l.decoder.Destroy()
		return fmt.Errorf("recognizer: create joiner session: %w", err)
	}
	return nil
}

// Accept buffers samples as simple framed features. A production model
// would run a log-mel front end here; this buffers raw samples into
// feature-dim windows, which is sufficient for exercising the streaming
// session/tensor lifecycle end to end.
func (l *Local) Accept(samples []float32, sampleRate int) error {
	if l.closed {
		return ErrClosed
	}
	l.featBuf = append(l.featBuf, samples...)
	return nil
}

func (l *Local) IsReady() bool {
	return !l.closed && len(l.featBuf) >= l.cfg.FeatureDim
}

func (l *Local) Decode() error {
	if l.closed {
		return ErrClosed
	}
	if !l.IsReady() {
		return ErrNotReady
	}
	frame := l.featBuf[:l.cfg.FeatureDim]
	l.featBuf = l.featBuf[l.cfg.FeatureDim:]

	copy(l.encIn.GetData(), frame)
	if err := l.encoder.Run(); err != nil {
		return fmt.Errorf("recognizer: encoder run: %w", err)
	}
	copy(l.encState.GetData(), l.encOutSt.GetData())

	copy(l.decIn.GetData(), []int64{l.lastToken})
	if err := l.decoder.Run(); err != nil {
		return fmt.Errorf("recognizer: decoder run: %w", err)
	}
	copy(l.decState.GetData(), l.decOutSt.GetData())

	copy(l.joinIn1.GetData(), l.encOut.GetData())
	copy(l.joinIn2.GetData(), l.decOut.GetData())
	if err := l.joiner.Run(); err != nil {
		return fmt.Errorf("recognizer: joiner run: %w", err)
	}

	token := argmax(l.joinOut.GetData())
	l.lastToken = int64(token)
	if token != blankID {
		l.emitted = append(l.emitted, token)
		l.partial = assemble(l.vocab, l.emitted)
	}
	return nil
}

func (l *Local) CurrentText() string {
	return l.partial
}

// Reset clears decoder state between utterances, without tearing down
// the ONNX sessions — those stay alive for the lifetime of the engine.
func (l *Local) Reset() {
	l.featBuf = l.featBuf[:0]
	l.emitted = l.emitted[:0]
	l.partial = ""
	l.lastToken = blankID
	clearFloat32(l.encState.GetData())
	clearFloat32(l.decState.GetData())
}

func (l *Local) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	for _, s := range []*ort.AdvancedSession{l.encoder, l.decoder, l.joiner} {
		if s != nil {
			s.Destroy()
		}
	}
	l.destroyTensors()
	return nil
}

func (l *Local) destroyTensors() {
	if l.encIn != nil {
		l.encIn.Destroy()
		l.encIn = nil
	}
	if l.encState != nil {
		l.encState.Destroy()
		l.encState = nil
	}
	if l.encOut != nil {
		l.encOut.Destroy()
		l.encOut = nil
	}
	if l.encOutSt != nil {
		l.encOutSt.Destroy()
		l.encOutSt = nil
	}
	if l.decIn != nil {
		l.decIn.Destroy()
		l.decIn = nil
	}
	if l.decState != nil {
		l.decState.Destroy()
		l.decState = nil
	}
	if l.decOut != nil {
		l.decOut.Destroy()
		l.decOut = nil
	}
	if l.decOutSt != nil {
		l.decOutSt.Destroy()
		l.decOutSt = nil
	}
	if l.joinIn1 != nil {
		l.joinIn1.Destroy()
		l.joinIn1 = nil
	}
	if l.joinIn2 != nil {
		l.joinIn2.Destroy()
		l.joinIn2 = nil
	}
	if l.joinOut != nil {
		l.joinOut.Destroy()
		l.joinOut = nil
	}
}

func clearFloat32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

func argmax(logits []float32) int {
	best, bestIdx := logits[0], 0
	for i, v := range logits {
		if v > best {
			best, bestIdx = v, i
		}
	}
	return bestIdx
}

func assemble(vocab map[int]string, tokens []int) string {
	var sb strings.Builder
	for _, id := range tokens {
		sb.WriteString(vocab[id])
	}
	return strings.TrimSpace(strings.ReplaceAll(sb.String(), "▁", " "))
}

// loadTokens parses a sherpa-onnx-style "token id" per line vocabulary file.
func loadTokens(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[int]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, " ")
		if idx < 0 {
			continue
		}
		id, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			continue
		}
		vocab[id] = line[:idx]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}
