package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoc 测试用内存文档
type fakeDoc struct {
	pages  []string
	failOn int // 读取该页(从0开始)时返回错误，-1表示不失败
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) Text(i int) (string, error) {
	if i == d.failOn {
		return "", errors.New("broken content stream")
	}
	return d.pages[i], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

// fakeOpener 测试用打开器
type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o *fakeOpener) Open(path string) (Doc, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// createTextPDF 用gofpdf生成多页文本PDF
func createTextPDF(t *testing.T, pages ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "text.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.MultiCell(0, 10, text, "", "", false)
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

// TestTextExtractorWithFakeDoc 测试按页提取与分句
func TestTextExtractorWithFakeDoc(t *testing.T) {
	doc := &fakeDoc{
		pages:  []string{"Hello world. This is a test", "", "Second page.\n"},
		failOn: -1,
	}
	extractor := NewTextExtractor(WithOpener(&fakeOpener{doc: doc}))

	pages, err := extractor.ExtractPages("ignored.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 3, pages[2].Number)
	assert.True(t, doc.closed, "document should be closed after extraction")

	lines, err := extractor.ExtractLines("ignored.pdf")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Hello world.", "This is a test"},
		{},
		{"Second page."},
	}, lines)
}

// TestTextExtractorOpenError 测试文档无法打开时返回DocumentOpenError
func TestTextExtractorOpenError(t *testing.T) {
	extractor := NewTextExtractor(WithOpener(&fakeOpener{err: errors.New("not a pdf")}))

	lines, err := extractor.ExtractLines("broken.pdf")
	assert.Nil(t, lines)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentOpen)

	var openErr *DocumentOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "broken.pdf", openErr.Path)
}

// TestTextExtractorPageError 测试单页失败中止整个文档
func TestTextExtractorPageError(t *testing.T) {
	doc := &fakeDoc{pages: []string{"ok.", "bad", "ok."}, failOn: 1}
	extractor := NewTextExtractor(WithOpener(&fakeOpener{doc: doc}))

	lines, err := extractor.ExtractLines("partial.pdf")
	assert.Nil(t, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	assert.NotErrorIs(t, err, ErrDocumentOpen)
	assert.True(t, doc.closed)
}

// TestTextExtractorFitz 使用真实PDF测试go-fitz后端
func TestTextExtractorFitz(t *testing.T) {
	path := createTextPDF(t, "Hello world. This is a test", "Second page")

	lines, err := NewTextExtractor().ExtractLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Hello world.", "This is a test"}, lines[0])
	assert.Equal(t, []string{"Second page"}, lines[1])
}

// TestTextExtractorFitzCorrupted 测试损坏文件
func TestTextExtractorFitzCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupted.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := NewTextExtractor().ExtractLines(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentOpen)
}
