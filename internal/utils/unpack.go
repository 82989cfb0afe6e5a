package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UnpackZip extracts a zip archive held in memory into dstFolder, creating
// directories as needed. Entries escaping dstFolder are rejected.
func UnpackZip(archive []byte, dstFolder string) error {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}

	for _, file := range reader.File {
		if err := unpackZipEntry(file, dstFolder); err != nil {
			return err
		}
	}
	return nil
}

func unpackZipEntry(file *zip.File, dstFolder string) error {
	dstPath := filepath.Join(dstFolder, file.Name)
	if !strings.HasPrefix(dstPath, filepath.Clean(dstFolder)+string(os.PathSeparator)) {
		return fmt.Errorf("zip entry escapes destination: %s", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(dstPath, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode())
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}
	return nil
}
