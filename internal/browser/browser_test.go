package browser

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.Locale != "pt-BR" {
		t.Errorf("Expected locale to be pt-BR, got %s", opts.Locale)
	}

	if opts.TimezoneID != "America/Sao_Paulo" {
		t.Errorf("Expected timezone to be America/Sao_Paulo, got %s", opts.TimezoneID)
	}
}
