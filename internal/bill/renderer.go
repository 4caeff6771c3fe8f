// Package bill turns uploaded bill files into JPEG page images suitable
// for vision model input. PDFs are rasterized with mupdf; JPEG and PNG
// uploads are re-encoded as JPEG.
package bill

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// maxPages caps how many PDF pages get rendered, to control vision
// token spend on multi-page bills
const maxPages = 2

const jpegQuality = 85

type Renderer struct {
	logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// RenderPages converts the file at path into one JPEG per page. Image
// uploads produce a single page.
func (r *Renderer) RenderPages(path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("bill file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return r.renderPDF(path)
	case ".jpg", ".jpeg", ".png":
		page, err := r.renderImage(path, ext)
		if err != nil {
			return nil, err
		}
		return [][]byte{page}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func (r *Renderer) renderPDF(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}

	r.logger.Debug("Rendering PDF bill",
		zap.String("path", path),
		zap.Int("total_pages", doc.NumPage()),
		zap.Int("rendered_pages", pageCount))

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to rasterize page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		encoded, err := encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		pages = append(pages, encoded)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF %s", path)
	}
	return pages, nil
}

func (r *Renderer) renderImage(path, ext string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
