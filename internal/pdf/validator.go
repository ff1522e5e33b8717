package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docforge/pdfmd/internal/domain"
)

// Large files are accepted but flagged, conversion just takes longer.
const largeFileBytes = 100 * 1024 * 1024

// ValidatePath checks that path names a readable PDF file before any bytes
// are loaded.
func ValidatePath(path string, logger zerolog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return domain.InputError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.InputError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.InputError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.InputError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return domain.InputError(fmt.Sprintf("file is not a PDF (has extension %q)", ext), nil)
	}

	if info.Size() == 0 {
		return domain.InputError(fmt.Sprintf("file is empty: %s", path), nil)
	}

	if info.Size() > largeFileBytes {
		logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF is very large, conversion may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.InputError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}
