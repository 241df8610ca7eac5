package mailparse

import (
	"regexp"
	"strings"
)

// maxImageURLs 单封邮件最多转发的外链图片数量
const maxImageURLs = 5

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?>.*?</script\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style.*?>.*?</style\s*>`)
	brTagRe       = regexp.MustCompile(`(?is)<br\s*/?>`)
	pCloseTagRe   = regexp.MustCompile(`(?is)</p\s*>`)
	anyTagRe      = regexp.MustCompile(`(?is)<.*?>`)
	imgSrcRe      = regexp.MustCompile(`(?is)<img[^>]+src=["'](https?://[^"']+)["']`)
	newlineRunRe  = regexp.MustCompile(`\n{4,}`)
)

// htmlToText 把 HTML 正文转为纯文本：去掉 script/style 块，
// <br> 换成换行、</p> 换成空行，剥掉其余标签并解码四个基本实体。
func htmlToText(html string) string {
	html = scriptBlockRe.ReplaceAllString(html, "")
	html = styleBlockRe.ReplaceAllString(html, "")
	html = brTagRe.ReplaceAllString(html, "\n")
	html = pCloseTagRe.ReplaceAllString(html, "\n\n")
	html = anyTagRe.ReplaceAllString(html, "")

	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&amp;", "&")

	return cleanText(html)
}

// extractImageURLs 从 HTML 中提取 <img src> 的 http(s) 外链，
// 按首次出现顺序去重，最多保留 maxImageURLs 条。
func extractImageURLs(html string) []string {
	if html == "" {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, m := range imgSrcRe.FindAllStringSubmatch(html, -1) {
		u := strings.TrimSpace(m[1])
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		if len(urls) == maxImageURLs {
			break
		}
	}
	return urls
}

// cleanText 规整正文空白：去掉 NUL，CRLF 统一为 LF，
// 四个及以上的连续换行收拢为恰好两个空行，并裁掉首尾空白。
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = newlineRunRe.ReplaceAllString(s, "\n\n\n")
	return strings.TrimSpace(s)
}
