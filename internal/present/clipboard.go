package present

import (
	"github.com/atotto/clipboard"

	"postcreator/internal/domain"
)

// Clipboard is the copy capability offered next to a generated post.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the operating system clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether a system clipboard utility was found.
func (SystemClipboard) Available() bool {
	return !clipboard.Unsupported
}

// Copy places the post text on cb. It does nothing when there is no post.
func Copy(cb Clipboard, result *domain.GenerationResult) error {
	if cb == nil || result == nil || result.Post == "" {
		return nil
	}
	return cb.WriteAll(result.Post)
}
