package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/marksheet/internal/extract"
)

// ErrUnknownBoard is returned when a board name matches no grammar.
var ErrUnknownBoard = errors.New("unknown board")

// Reextract re-runs board extraction over persisted RawText files without
// invoking recognition. Either path may be empty. Sentinel text is treated
// as absent.
func Reextract(infoPath, marksPath, board string) (*extract.StudentRecord, error) {
	if _, ok := extract.NormalizeBoard(board); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
	if infoPath == "" && marksPath == "" {
		return nil, errors.New("no text files given")
	}
	var texts [2]string
	for i, path := range []string{infoPath, marksPath} {
		if path == "" {
			continue
		}
		text, err := ReadText(path)
		if err != nil {
			return nil, err
		}
		texts[i] = usable(text)
	}
	return extract.Extract(texts[0], texts[1], board), nil
}

// Reextract is Reextract that also persists the record when the pipeline
// has an output directory. It returns the record path, or "" when nothing
// was written.
func (p *Pipeline) Reextract(infoPath, marksPath, board string) (*extract.StudentRecord, string, error) {
	rec, err := Reextract(infoPath, marksPath, board)
	if err != nil {
		return nil, "", err
	}
	name := infoPath
	if name == "" {
		name = marksPath
	}
	return rec, p.writeRecord(p.store.NewRun(name), rec), nil
}
