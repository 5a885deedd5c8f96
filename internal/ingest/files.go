package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/dslipak/pdf"
)

var supportedExtensions = []string{".md", ".txt", ".html", ".htm", ".pdf"}

// ImportFiles walks root and imports every supported document below it.
func (im *Importer) ImportFiles(ctx context.Context, root string) (int, error) {
	log.Printf("[ingest] importing files from %s into namespace=%s", root, im.namespace)

	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSupportedFile(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := im.ImportFile(ctx, path)
		total += n
		return err
	})
	return total, err
}

// ImportFile imports one document. A "Link:" or "URL:" line at the top of a
// text file becomes the resource link.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	content, err := readDocument(path)
	if err != nil {
		return 0, err
	}

	content = sanitizeUTF8(strings.TrimSpace(content))
	if content == "" {
		_, err := im.forget(ctx, path)
		return 0, err
	}

	link, content := extractLinkLine(content)
	return im.storeDocument(ctx, filenameToTitle(path), link, path, content)
}

func readDocument(path string) (string, error) {
	lpath := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lpath, ".pdf"):
		text, err := extractTextFromPDF(path)
		if err != nil {
			return "", fmt.Errorf("reading pdf %s: %w", path, err)
		}
		return text, nil

	case strings.HasSuffix(lpath, ".html"), strings.HasSuffix(lpath, ".htm"):
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return extractMainText(string(data)), nil

	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	}
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range supportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func filenameToTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}

func extractLinkLine(content string) (link, rest string) {
	first, remainder, _ := strings.Cut(content, "\n")
	key, value, ok := strings.Cut(strings.TrimSpace(first), ":")
	if !ok {
		return "", content
	}

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "link", "url":
		return strings.TrimSpace(value), strings.TrimSpace(remainder)
	}
	return "", content
}

func extractTextFromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	return sanitizeUTF8(strings.TrimSpace(buf.String())), nil
}
