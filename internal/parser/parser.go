package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// Upload is one uploaded file.
type Upload struct {
	Name string
	Data []byte
}

// Document holds the extracted text of each page of an upload. A page whose
// text could not be extracted is empty.
type Document struct {
	Name  string
	Pages []string
}

// Extractor turns an upload into page texts.
type Extractor interface {
	Extract(u Upload) (Document, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(u Upload) (Document, error)

func (f ExtractorFunc) Extract(u Upload) (Document, error) { return f(u) }

// Ingestor concatenates the page text of an upload batch.
type Ingestor struct {
	firstDocumentOnly bool
	extractor         Extractor
}

func NewIngestor(cfg config.IngestConfig) *Ingestor {
	return &Ingestor{
		firstDocumentOnly: cfg.FirstDocumentOnly,
		extractor:         ExtractorFunc(Extract),
	}
}

// WithExtractor replaces the format dispatching extractor.
func (in *Ingestor) WithExtractor(e Extractor) *Ingestor {
	in.extractor = e
	return in
}

// Ingest returns the text of every non-empty page of every upload, pages
// joined by a newline. With first_document_only set, only the first upload
// is read.
func (in *Ingestor) Ingest(ctx context.Context, uploads []Upload) (string, error) {
	if len(uploads) == 0 {
		return "", models.ErrNoDocuments
	}

	var pages []string
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		doc, err := in.extractor.Extract(u)
		if err != nil {
			return "", err
		}
		log.Info().Str("file", u.Name).Int("pages", len(doc.Pages)).Msg("Extracted document")

		for _, p := range doc.Pages {
			if p != "" {
				pages = append(pages, p)
			}
		}
		if in.firstDocumentOnly {
			break
		}
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", models.ErrNoText
	}
	return text, nil
}

// Extract picks a reader by file extension.
func Extract(u Upload) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", u.Name, models.ErrUnreadableDocument, r)
		}
	}()

	var pages []string
	ext := strings.ToLower(filepath.Ext(u.Name))
	switch ext {
	case ".pdf":
		pages, err = parsePDF(u.Data)
	case ".docx":
		pages, err = parseDOCX(u.Data)
	case ".pptx":
		pages, err = parsePPTX(u.Data)
	case ".xlsx":
		pages, err = parseXLSX(u.Data)
	case ".xlsm", ".xltx", ".xltm":
		pages, err = parseExcelize(u.Data)
	case ".txt", ".md":
		pages = []string{string(u.Data)}
	default:
		return Document{}, fmt.Errorf("%s: %w: %q", u.Name, models.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w: %w", u.Name, models.ErrUnreadableDocument, err)
	}
	return Document{Name: u.Name, Pages: pages}, nil
}

func parsePDF(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Failed to extract page text")
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func parseDOCX(data []byte) ([]string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return []string{extractTextFromXML(r.Editable().GetContent())}, nil
}

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func parsePPTX(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(body))})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, len(slides))
	for i, s := range slides {
		pages[i] = s.text
	}
	return pages, nil
}

func parseXLSX(data []byte) ([]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t"))
			text.WriteString("\n")
		}
		pages = append(pages, text.String())
	}
	return pages, nil
}

func parseExcelize(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		pages = append(pages, text.String())
	}
	return pages, nil
}

var (
	textRunRe    = regexp.MustCompile(`<(?:a|w):t(?:\s[^>]*)?>([^<]*)</(?:a|w):t>|</(?:a|w):p>`)
	paragraphEnd = regexp.MustCompile(`^</(?:a|w):p>$`)
)

// extractTextFromXML collects the text runs of office XML, one line per
// paragraph.
func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	for _, m := range textRunRe.FindAllStringSubmatch(xmlContent, -1) {
		if paragraphEnd.MatchString(m[0]) {
			text.WriteString("\n")
			continue
		}
		text.WriteString(html.UnescapeString(m[1]))
	}
	return strings.TrimRight(text.String(), "\n")
}
