package chunk

import (
	"fmt"
	"unicode/utf8"

	"mailrelay/backend/internal/domain"
)

// labelTemplate 预估分段标签长度时使用的最宽模板。
// 真实标签在总段数确定后才能生成，先按两位数的情形预留空间。
const labelTemplate = "📩 New Email (9/9)\n\n"

const (
	headerLimit  = 1200
	minFirstBody = 500
	minOtherBody = 1000
)

// Split 把一封邮件的头部摘要和正文切成若干段，
// 每段加上标签后不超过 maxLen 个字符（按 rune 计数）。
// 头部只出现在第一段；若头部过长挤占了正文空间，先把头部
// 截到 headerLimit 再计算。首段正文至少保留 minFirstBody 个
// 字符，后续段至少 minOtherBody 个，保证超长头部下仍有进展。
// 正文为空时返回单独一段：只有头部（截到 maxLen），不带标签。
func Split(header, body string, maxLen int) []domain.MessageChunk {
	headerRunes := []rune(header)
	bodyRunes := []rune(body)

	if len(bodyRunes) == 0 {
		if len(headerRunes) > maxLen {
			headerRunes = headerRunes[:maxLen]
		}
		return []domain.MessageChunk{{Text: string(headerRunes)}}
	}

	// "\n\n" 分隔符占 2 个字符
	firstSize := maxLen - utf8.RuneCountInString(labelTemplate) - len(headerRunes) - 2
	if firstSize < minFirstBody && len(headerRunes) > headerLimit {
		headerRunes = headerRunes[:headerLimit]
		firstSize = maxLen - utf8.RuneCountInString(labelTemplate) - len(headerRunes) - 2
	}
	otherSize := maxLen - utf8.RuneCountInString(labelTemplate)

	if firstSize < minFirstBody {
		firstSize = minFirstBody
	}
	if otherSize < minOtherBody {
		otherSize = minOtherBody
	}

	spans := splitRunes(bodyRunes, firstSize, otherSize)

	header = string(headerRunes)
	total := len(spans)
	chunks := make([]domain.MessageChunk, 0, total)
	for i, span := range spans {
		c := domain.MessageChunk{
			Label: fmt.Sprintf("📩 New Email (%d/%d)\n\n", i+1, total),
		}
		if i == 0 {
			c.Text = header + "\n\n" + span
		} else {
			c.Text = span
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// splitRunes 按首段和后续段各自的配额切分正文，至少返回一段。
func splitRunes(body []rune, firstSize, otherSize int) []string {
	if len(body) <= firstSize {
		return []string{string(body)}
	}

	spans := []string{string(body[:firstSize])}
	rest := body[firstSize:]
	for len(rest) > 0 {
		n := otherSize
		if n > len(rest) {
			n = len(rest)
		}
		spans = append(spans, string(rest[:n]))
		rest = rest[n:]
	}
	return spans
}
