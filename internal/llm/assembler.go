package llm

import (
	"strings"
)

// 提示词片段
const (
	TextLeadIn      = "Here is the text extracted from the PDF:\n"
	NoTextMarker    = "No text was extracted from the PDF.\n\n"
	ImageLeadIn     = "Here are images extracted from the PDF:\n"
	ImageSpacer     = "\n"
	ChatTextLabel   = "Context from PDF text:\n"
	ChatImagesLabel = "Context from PDF images:"

	// SummaryInstruction 默认摘要指令
	SummaryInstruction = "Please provide an overall summary of the document in a concise bullet-point format. " +
		"Also, identify any key images and briefly describe their content relevant to the document, " +
		"including their page and index number if possible. Use Markdown for the bullet points."
)

// Image 以Base64编码传递给模型的图片
type Image struct {
	Data   string // Base64编码的图片数据
	Format string // 格式，如png、jpeg
}

// MimeType 返回图片的MIME类型
func (i Image) MimeType() string {
	return "image/" + i.Format
}

// Assembler 将提取结果和对话历史组装为模型输入
// 输出只依赖输入
type Assembler struct {
	instruction  string
	imageSpacers bool
}

// AssemblerOption 组装器配置选项
type AssemblerOption func(*Assembler)

// WithInstruction 设置摘要指令
func WithInstruction(instruction string) AssemblerOption {
	return func(a *Assembler) {
		a.instruction = instruction
	}
}

// WithImageSpacers 设置每张图片后是否追加分隔文本
func WithImageSpacers(enabled bool) AssemblerOption {
	return func(a *Assembler) {
		a.imageSpacers = enabled
	}
}

// NewAssembler 创建组装器
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		instruction:  SummaryInstruction,
		imageSpacers: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FlattenText 页内句子以空格连接，页之间以换行连接
func FlattenText(pagesLines [][]string) string {
	pages := make([]string, 0, len(pagesLines))
	for _, lines := range pagesLines {
		pages = append(pages, strings.Join(lines, " "))
	}
	return strings.Join(pages, "\n")
}

// AssembleSummary 组装摘要请求的内容片段
func (a *Assembler) AssembleSummary(pagesLines [][]string, images []Image) []Part {
	parts := make([]Part, 0, len(images)*2+3)

	text := FlattenText(pagesLines)
	if strings.TrimSpace(text) != "" {
		parts = append(parts, TextPart(TextLeadIn+text+"\n\n"))
	} else {
		parts = append(parts, TextPart(NoTextMarker))
	}

	if len(images) > 0 {
		parts = append(parts, TextPart(ImageLeadIn))
		for _, img := range images {
			parts = append(parts, ImagePart(img.MimeType(), img.Data))
			if a.imageSpacers {
				parts = append(parts, TextPart(ImageSpacer))
			}
		}
	}

	return append(parts, TextPart(a.instruction))
}

// AssembleChat 组装对话请求的轮次
// 顺序：文本上下文、图片上下文、历史轮次、新消息
func (a *Assembler) AssembleChat(textContext string, images []Image, history []Turn, message string) []Turn {
	turns := make([]Turn, 0, len(history)+3)

	if textContext != "" {
		turns = append(turns, UserTurn(TextPart(ChatTextLabel+textContext)))
	}

	if len(images) > 0 {
		parts := make([]Part, 0, len(images)+1)
		parts = append(parts, TextPart(ChatImagesLabel))
		for _, img := range images {
			parts = append(parts, ImagePart(img.MimeType(), img.Data))
		}
		turns = append(turns, UserTurn(parts...))
	}

	for _, h := range history {
		if len(h.Parts) == 0 {
			continue
		}
		turns = append(turns, h)
	}

	return append(turns, UserTurn(TextPart(message)))
}
