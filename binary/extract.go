package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
)

type archiveformat string

const (
	formatZip   archiveformat = "zip"
	formatTar   archiveformat = "tar"
	formatTarGz archiveformat = "tar.gz"
	formatTarXz archiveformat = "tar.xz"
	formatTarBz archiveformat = "tar.bz2"
	formatTarZs archiveformat = "tar.zst"
	formatTarLz archiveformat = "tar.lz"
)

// compound extensions are listed before their short forms
var extensions = []struct {
	suffix string
	format archiveformat
}{
	{".tar.zst", formatTarZs},
	{".tar.bz2", formatTarBz},
	{".tar.gz", formatTarGz},
	{".tar.xz", formatTarXz},
	{".tar.lz", formatTarLz},
	{".tbz2", formatTarBz},
	{".tzst", formatTarZs},
	{".tgz", formatTarGz},
	{".txz", formatTarXz},
	{".tar", formatTar},
	{".zip", formatZip},
}

func formatFor(extension string) (archiveformat, bool) {
	extension = strings.ToLower(extension)
	for _, ext := range extensions {
		if strings.HasSuffix(extension, ext.suffix) {
			return ext.format, true
		}
	}
	return "", false
}

// extract unpacks the archive into destination.
// The format is picked from the archive extension; when the extension is not
// known the content is sniffed instead.
// Entries that would land outside destination make the whole extraction fail.
func extract(archive, extension, destination string) (err error) {
	logdetail(fmt.Sprintf("extracting %s", filepath.Base(archive)))

	start := time.Now()
	defer logtiming(start, &err)

	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	format, ok := formatFor(extension)
	if !ok {
		format, err = sniff(file)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destination, err)
	}

	switch format {
	case formatZip:
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat archive: %w", err)
		}
		return unzip(file, info.Size(), destination)

	case formatTar:
		return untar(file, destination)

	case formatTarGz:
		decompressor, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer decompressor.Close()
		return untar(decompressor, destination)

	case formatTarBz:
		return untar(bzip2.NewReader(file), destination)

	case formatTarXz:
		decompressor, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		return untar(decompressor, destination)

	case formatTarZs:
		decompressor, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer decompressor.Close()
		return untar(decompressor, destination)

	case formatTarLz:
		decompressor, err := lzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create lzip reader: %w", err)
		}
		return untar(decompressor, destination)
	}

	return fmt.Errorf("unsupported archive format %s", format)
}

// sniff mime header to determine file type
func sniff(file *os.File) (archiveformat, error) {
	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read archive header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	switch mime := http.DetectContentType(header[:n]); mime {
	case "application/x-gzip":
		return formatTarGz, nil
	case "application/zip":
		return formatZip, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", mime)
	}
}

// handles tar streams, already decompressed
func untar(file io.Reader, destination string) error {
	reader := tar.NewReader(file)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := within(destination, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writefile(target, header.FileInfo().Mode(), reader); err != nil {
				return err
			}
		default:
			logdetail(fmt.Sprintf("  skipped %s", header.Name))
		}
	}

	return nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, destination string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, entry := range reader.File {
		target, err := within(destination, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		if !entry.Mode().IsRegular() {
			logdetail(fmt.Sprintf("  skipped %s", entry.Name))
			continue
		}

		contents, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", entry.Name, err)
		}

		err = writefile(target, entry.Mode(), contents)
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func writefile(target string, mode fs.FileMode, contents io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()|0o600)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	if _, err := io.Copy(out, contents); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}

	return out.Close()
}

// within joins name to destination, refusing names that escape it.
func within(destination, name string) (string, error) {
	target := filepath.Join(destination, filepath.FromSlash(name))

	rel, err := filepath.Rel(destination, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %s escapes the destination directory", name)
	}

	return target, nil
}
