package repository

const previewRunes = 50

// messagePreview shortens content to the cached preview stored on the
// conversation.
func messagePreview(content string) string {
	r := []rune(content)
	if len(r) <= previewRunes {
		return content
	}
	return string(r[:previewRunes]) + "..."
}
