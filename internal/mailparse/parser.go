package mailparse

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"mailrelay/backend/internal/domain"
)

// truncatedThreshold 上游中继对原始邮件的截断上限。
// 达到这个长度说明正文很可能不完整，投递时附加提示。
const truncatedThreshold = 3400

// Parse 把原始邮件文本解析为结构化消息，永不失败。
// 先按 MIME 结构化解析；任何一步出错则降级为逐行正则提取，
// 降级路径强制标记 truncated。
func Parse(raw string) domain.ParsedMessage {
	if raw == "" {
		return domain.ParsedMessage{Truncated: true}
	}

	truncated := utf8.RuneCountInString(raw) >= truncatedThreshold

	msg, err := parseStructured(raw)
	if err != nil {
		return parseFallback(raw)
	}

	msg.Truncated = truncated
	return msg
}

// parseStructured 按 MIME 结构解析邮件
func parseStructured(raw string) (domain.ParsedMessage, error) {
	m, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return domain.ParsedMessage{}, fmt.Errorf("read message: %w", err)
	}

	out := domain.ParsedMessage{
		From:    strings.TrimSpace(decodeHeader(m.Header.Get("From"))),
		Subject: strings.TrimSpace(decodeHeader(m.Header.Get("Subject"))),
		Date:    strings.TrimSpace(m.Header.Get("Date")),
	}

	var plainParts, htmlParts []string

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	switch {
	case err != nil:
		// 没有 Content-Type 或解析失败，当作纯文本处理
		body, readErr := io.ReadAll(m.Body)
		if readErr != nil {
			return domain.ParsedMessage{}, fmt.Errorf("read body: %w", readErr)
		}
		plainParts = append(plainParts, string(body))

	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return domain.ParsedMessage{}, fmt.Errorf("multipart message without boundary")
		}
		mr := multipart.NewReader(m.Body, boundary)
		if err := collectParts(mr, &plainParts, &htmlParts); err != nil {
			return domain.ParsedMessage{}, fmt.Errorf("parse multipart: %w", err)
		}

	default:
		body, err := decodeBody(m.Body, m.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			return domain.ParsedMessage{}, fmt.Errorf("decode body: %w", err)
		}
		if strings.HasPrefix(mediaType, "text/html") {
			htmlParts = append(htmlParts, body)
		} else {
			plainParts = append(plainParts, body)
		}
	}

	// 外链图片只从 HTML 部分提取
	htmlAll := joinNonEmpty(htmlParts, "\n")
	out.ImageURLs = extractImageURLs(htmlAll)

	// 正文选择：纯文本优先，其次 HTML 转文本，最后退回空行分隔启发式
	switch {
	case anyNonEmpty(plainParts):
		out.Body = cleanText(joinNonEmpty(plainParts, "\n\n"))
	case htmlAll != "":
		out.Body = htmlToText(htmlAll)
	default:
		if _, rest, found := strings.Cut(raw, "\n\n"); found {
			out.Body = cleanText(rest)
		}
	}

	return out, nil
}

// collectParts 递归收集多部分邮件中的文本部分，跳过附件。
func collectParts(mr *multipart.Reader, plainParts, htmlParts *[]string) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		if disp, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disp == "attachment" {
			continue
		}

		// 嵌套的 multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			if boundary := params["boundary"]; boundary != "" {
				if err := collectParts(multipart.NewReader(part, boundary), plainParts, htmlParts); err != nil {
					return err
				}
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(mediaType, "text/html"):
			*htmlParts = append(*htmlParts, body)
		case strings.HasPrefix(mediaType, "text/plain"):
			*plainParts = append(*plainParts, body)
		}
	}
	return nil
}

var (
	fromLineRe    = regexp.MustCompile(`(?im)^from:[ \t]*(.+)$`)
	subjectLineRe = regexp.MustCompile(`(?im)^subject:[ \t]*(.+)$`)
	dateLineRe    = regexp.MustCompile(`(?im)^date:[ \t]*(.+)$`)
)

// parseFallback 结构化解析失败时的降级路径：逐行正则提取头部，
// 第一个空行之后的内容当作正文。不提取图片，强制标记 truncated。
func parseFallback(raw string) domain.ParsedMessage {
	out := domain.ParsedMessage{Truncated: true}

	if m := fromLineRe.FindStringSubmatch(raw); m != nil {
		out.From = strings.TrimSpace(m[1])
	}
	if m := subjectLineRe.FindStringSubmatch(raw); m != nil {
		out.Subject = strings.TrimSpace(m[1])
	}
	if m := dateLineRe.FindStringSubmatch(raw); m != nil {
		out.Date = strings.TrimSpace(m[1])
	}

	if _, rest, found := strings.Cut(raw, "\n\n"); found {
		out.Body = cleanText(rest)
	}

	return out
}

// decodeHeader 解码 RFC 2047 编码的头部
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func anyNonEmpty(parts []string) bool {
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
