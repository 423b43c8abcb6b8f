package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// browserNavigator prints the payment URL and, when open is set, hands it to
// the desktop's URL opener.
type browserNavigator struct {
	out    io.Writer
	open   bool
	opener func(ctx context.Context, url string) *exec.Cmd
}

func (b browserNavigator) Navigate(ctx context.Context, url string) error {
	fmt.Fprintf(b.out, "Mở trang thanh toán: %s\n", url)
	if !b.open {
		return nil
	}
	opener := b.opener
	if opener == nil {
		opener = desktopOpener
	}
	// The openers hand off to the browser and exit, so waiting reaps them.
	if err := opener(ctx, url).Run(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

func desktopOpener(ctx context.Context, url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", url)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.CommandContext(ctx, "xdg-open", url)
	}
}
