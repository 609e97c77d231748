package telegram

import "strings"

// escapeMarkdown 转义账户名等用户输入中的Markdown特殊字符
func escapeMarkdown(input string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(input)
}
