package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("短正文只产生一段", func(t *testing.T) {
		chunks := Split("📬 To: a@b.c", "hello world", 3900)

		require.Len(t, chunks, 1)
		assert.Equal(t, "📩 New Email (1/1)\n\n", chunks[0].Label)
		assert.Equal(t, "📬 To: a@b.c\n\nhello world", chunks[0].Text)
	})

	t.Run("空正文只发头部且不带标签", func(t *testing.T) {
		chunks := Split("📬 To: a@b.c", "", 3900)

		require.Len(t, chunks, 1)
		assert.Empty(t, chunks[0].Label)
		assert.Equal(t, "📬 To: a@b.c", chunks[0].Text)
	})

	t.Run("空正文时超长头部截到上限", func(t *testing.T) {
		header := strings.Repeat("h", 5000)
		chunks := Split(header, "", 3900)

		require.Len(t, chunks, 1)
		assert.Empty(t, chunks[0].Label)
		assert.Equal(t, strings.Repeat("h", 3900), chunks[0].Text)
	})

	t.Run("长正文按配额切分且可以无损拼回", func(t *testing.T) {
		header := strings.Repeat("h", 50)
		body := strings.Repeat("x", 6000)

		chunks := Split(header, body, 3900)
		require.Len(t, chunks, 2)

		// 首段正文配额 = 3900 - 标签 19 - 头部 50 - 分隔 2
		firstBody := strings.TrimPrefix(chunks[0].Text, header+"\n\n")
		assert.Equal(t, 3829, utf8.RuneCountInString(firstBody))

		// 每段加上标签后不超过上限
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Label+c.Text), 3900)
		}

		// 正文拼回原文
		var sb strings.Builder
		sb.WriteString(firstBody)
		for _, c := range chunks[1:] {
			sb.WriteString(c.Text)
		}
		assert.Equal(t, body, sb.String())
	})

	t.Run("标签按实际段数编号", func(t *testing.T) {
		body := strings.Repeat("x", 9000)
		chunks := Split("h", body, 3900)

		require.Len(t, chunks, 3)
		assert.Equal(t, "📩 New Email (1/3)\n\n", chunks[0].Label)
		assert.Equal(t, "📩 New Email (2/3)\n\n", chunks[1].Label)
		assert.Equal(t, "📩 New Email (3/3)\n\n", chunks[2].Label)
	})

	t.Run("超长头部被截断给正文让路", func(t *testing.T) {
		header := strings.Repeat("h", 3500)
		body := strings.Repeat("x", 100)

		chunks := Split(header, body, 3900)
		require.Len(t, chunks, 1)

		// 头部截到 1200，之后首段配额重新计算
		assert.True(t, strings.HasPrefix(chunks[0].Text, strings.Repeat("h", 1200)+"\n\n"))
		assert.False(t, strings.Contains(chunks[0].Text, strings.Repeat("h", 1201)))
		assert.True(t, strings.HasSuffix(chunks[0].Text, body))
	})

	t.Run("多字节字符按字符数计数", func(t *testing.T) {
		body := strings.Repeat("中", 6000)
		chunks := Split("头", body, 3900)

		require.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Label+c.Text), 3900)
		}

		var sb strings.Builder
		sb.WriteString(strings.TrimPrefix(chunks[0].Text, "头\n\n"))
		sb.WriteString(chunks[1].Text)
		assert.Equal(t, body, sb.String())
	})
}
