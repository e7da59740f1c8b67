package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

// chunk mirrors one entry of a JSON chunk file.
type chunk struct {
	ChunkID  string        `json:"chunk_id"`
	Section  string        `json:"section"`
	Content  string        `json:"content"`
	Metadata chunkMetadata `json:"metadata"`
}

type chunkMetadata struct {
	Source   string   `json:"source"`
	Category flexList `json:"category"`
	Area     flexList `json:"area"`
	Location flexList `json:"location"`
	Tags     flexList `json:"tags"`
	Keywords flexList `json:"keywords"`
}

// flexList accepts a string, a list of scalars or null.
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if v == nil {
				continue
			}
			out = append(out, fmt.Sprint(v))
		}
		*f = out
		return nil
	}
	var s any
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode scalar: %w", err)
	}
	*f = splitList(fmt.Sprint(s))
	return nil
}

// first returns the first non-empty value.
func (f flexList) first() string {
	for _, v := range f {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFiles reads JSON chunk files in order. Missing files are skipped with a
// warning; it fails only when no passage could be loaded at all.
// Chunks without an id get "<file stem>-<index>"; later duplicates of an id are dropped.
func LoadFiles(paths []string, logger *zap.Logger) ([]document.Document, error) {
	var docs []document.Document
	seen := make(map[string]struct{})

	for _, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Corpus file not found, skipping", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		fileDocs, err := Parse(data, fileStem(path))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		var dropped int
		for _, d := range fileDocs {
			if _, dup := seen[d.ID()]; dup {
				dropped++
				continue
			}
			seen[d.ID()] = struct{}{}
			docs = append(docs, d)
		}

		logger.Info("Corpus file loaded",
			zap.String("path", path),
			zap.Int("documents", len(fileDocs)-dropped),
			zap.Int("duplicates_dropped", dropped),
		)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no passages in %v: %w", paths, domain.ErrEmptyCorpus)
	}
	return docs, nil
}

// Parse decodes one chunk file. idPrefix names chunks that carry no chunk_id.
// Chunks with empty content are ignored.
func Parse(data []byte, idPrefix string) ([]document.Document, error) {
	var chunks []chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}

	docs := make([]document.Document, 0, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		id := strings.TrimSpace(c.ChunkID)
		if id == "" {
			id = fmt.Sprintf("%s-%d", idPrefix, i)
		}
		tags := c.Metadata.Tags
		if len(tags) == 0 {
			tags = c.Metadata.Keywords
		}
		d, err := document.New(id, c.Section, c.Content, document.Metadata{
			Source:   c.Metadata.Source,
			Category: c.Metadata.Category.first(),
			Area:     c.Metadata.Area.first(),
			Location: c.Metadata.Location.first(),
			Tags:     tags,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
