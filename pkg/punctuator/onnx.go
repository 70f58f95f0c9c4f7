package punctuator

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/listen-cli/listend/pkg/onnxrt"
)

const maxTokens = 256

// ONNXConfig configures the CNN-BiLSTM punctuation/casing model.
type ONNXConfig struct {
	ModelDir    string // contains model.onnx and bpe.vocab
	Provider    string
	Threads     int
	ORTLibPath  string
	DevMode     bool
}

// ONNX looks each lowercase word up whole in the vocabulary (no subword
// splitting; unknown words map to <unk>), runs the id sequence through a
// small ONNX classification head and reassembles punctuation/casing
// labels into text, using the same session/tensor lifecycle idiom as the
// local recognizer.
type ONNX struct {
	session *ort.AdvancedSession
	vocab   map[string]int
	idToTok map[int]string

	input  *ort.Tensor[int64]
	output *ort.Tensor[float32]

	closed bool
}

// labelCount: {none, period, comma, question} x {lower, upper}
const labelCount = 8

func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	if cfg.ModelDir == "" {
		return nil, fmt.Errorf("punctuator: model dir required")
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	if err := onnxrt.Init(cfg.ORTLibPath, cfg.DevMode); err != nil {
		return nil, fmt.Errorf("punctuator: %w", err)
	}

	vocab, idToTok, err := loadVocab(filepath.Join(cfg.ModelDir, "bpe.vocab"))
	if err != nil {
		return nil, fmt.Errorf("punctuator: load vocab: %w", err)
	}

	input, err := ort.NewEmptyTensor[int64](ort.NewShape(1, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("punctuator: create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxTokens, labelCount))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("punctuator: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(filepath.Join(cfg.ModelDir, "model.onnx"),
		[]string{"tokens"}, []string{"labels"},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("punctuator: create session: %w", err)
	}

	return &ONNX{session: session, vocab: vocab, idToTok: idToTok, input: input, output: output}, nil
}

func (p *ONNX) Punctuate(raw string) (string, error) {
	if p.closed {
		return raw, fmt.Errorf("punctuator: closed")
	}
	words := strings.Fields(strings.ToLower(raw))
	if len(words) == 0 {
		return raw, nil
	}

	ids := tokenize(p.vocab, words, maxTokens)
	data := p.input.GetData()
	for i := range data {
		data[i] = 0
	}
	copy(data, ids)

	if err := p.session.Run(); err != nil {
		return raw, fmt.Errorf("punctuator: inference: %w", err)
	}

	return assembleLabeled(words, ids, p.output.GetData(), labelCount), nil
}

func (p *ONNX) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.session != nil {
		p.session.Destroy()
	}
	if p.input != nil {
		p.input.Destroy()
	}
	if p.output != nil {
		p.output.Destroy()
	}
	return nil
}

func tokenize(vocab map[string]int, words []string, limit int) []int64 {
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		if id, ok := vocab[w]; ok {
			ids = append(ids, int64(id))
		} else {
			ids = append(ids, int64(vocab["<unk>"]))
		}
		if len(ids) >= limit {
			break
		}
	}
	return ids
}

// assembleLabeled reassembles text from per-word labels: 4 punctuation
// classes (none/period/comma/question) crossed with 2 casing classes
// (lower/upper), picked by argmax per position.
func assembleLabeled(words []string, ids []int64, logits []float32, labels int) string {
	var sb strings.Builder
	for i, w := range words {
		if i >= len(ids) {
			break
		}
		best, bestIdx := logits[i*labels], 0
		for j := 1; j < labels; j++ {
			if v := logits[i*labels+j]; v > best {
				best, bestIdx = v, j
			}
		}
		punct := bestIdx / 2
		upper := bestIdx%2 == 1

		word := w
		if upper || i == 0 {
			word = Capitalize(word)
		}
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(word)
		switch punct {
		case 1:
			sb.WriteString(".")
		case 2:
			sb.WriteString(",")
		case 3:
			sb.WriteString("?")
		}
	}
	return sb.String()
}

func loadVocab(path string) (map[string]int, map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	vocab := make(map[string]int)
	idToTok := make(map[int]string)
	scanner := bufio.NewScanner(f)
	id := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		tok := fields[0]
		tokID := id
		if len(fields) > 1 {
			if parsed, err := strconv.Atoi(fields[1]); err == nil {
				tokID = parsed
			}
		}
		vocab[tok] = tokID
		idToTok[tokID] = tok
		id++
	}
	if _, ok := vocab["<unk>"]; !ok {
		vocab["<unk>"] = id
	}
	return vocab, idToTok, scanner.Err()
}
